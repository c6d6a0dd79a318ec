package models

import "time"

// TicketStatus enumerates ticket lifecycle states.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

// Ticket is a support request. UserID is the requester; AssigneeID is set
// when a staff member picks it up.
type Ticket struct {
	ID         string         `json:"id" gorm:"column:id;primaryKey"`
	UserID     string         `json:"user_id" gorm:"column:user_id;index"`
	AssigneeID *string        `json:"assignee_id,omitempty" gorm:"column:assignee_id;index"`
	Subject    string         `json:"subject" gorm:"column:subject"`
	Body       string         `json:"body" gorm:"column:body"`
	Status     TicketStatus   `json:"status" gorm:"column:status"`
	Priority   TicketPriority `json:"priority" gorm:"column:priority"`
	CreatedAt  time.Time      `json:"created_at" gorm:"column:created_at"`
	UpdatedAt  time.Time      `json:"updated_at" gorm:"column:updated_at"`
}

func (Ticket) TableName() string { return "tickets" }
