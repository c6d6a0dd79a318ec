package dto

// CreateTicketRequest is the payload for POST /tickets.
type CreateTicketRequest struct {
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Priority string `json:"priority,omitempty"`
}

// UpdateTicketRequest is a partial ticket update; nil fields are left as-is.
type UpdateTicketRequest struct {
	Subject  *string `json:"subject,omitempty"`
	Body     *string `json:"body,omitempty"`
	Status   *string `json:"status,omitempty"`
	Priority *string `json:"priority,omitempty"`
}

// AssignTicketRequest is the payload for POST /tickets/:id/assign.
type AssignTicketRequest struct {
	AssigneeID string `json:"assignee_id"`
}
