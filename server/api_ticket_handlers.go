package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/opsdesk/opsdesk/dto"
	"github.com/opsdesk/opsdesk/models"
	"github.com/opsdesk/opsdesk/permission"
	"github.com/opsdesk/opsdesk/store"
)

// HandleListTickets returns tickets scoped by role: holders of the
// view_all_tickets capability see everything, plain users only their own.
func (s *Server) HandleListTickets(c *gin.Context) {
	viewer := IdentityFromContext(c)

	var (
		tickets []*models.Ticket
		err     error
	)
	if permission.HasCapability(viewer.Role, permission.ViewAllTickets) {
		tickets, err = s.tickets.ListAll(c.Request.Context())
	} else {
		tickets, err = s.tickets.ListByRequester(c.Request.Context(), viewer.ID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "list tickets failed"})
		return
	}
	c.JSON(http.StatusOK, tickets)
}

// HandleCreateTicket opens a ticket on behalf of the caller.
func (s *Server) HandleCreateTicket(c *gin.Context) {
	viewer := IdentityFromContext(c)

	var req dto.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "invalid JSON payload"})
		return
	}
	if strings.TrimSpace(req.Subject) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "subject is required"})
		return
	}
	ticket := &models.Ticket{
		UserID:   viewer.ID,
		Subject:  req.Subject,
		Body:     req.Body,
		Priority: models.TicketPriority(req.Priority),
	}
	if req.Priority != "" {
		switch models.TicketPriority(req.Priority) {
		case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "unknown priority"})
			return
		}
	}
	if err := s.tickets.Create(c.Request.Context(), ticket); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "create ticket failed"})
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

// HandleGetTicket returns one ticket to its requester, its assignee, or any
// holder of view_all_tickets.
func (s *Server) HandleGetTicket(c *gin.Context) {
	viewer := IdentityFromContext(c)
	ticket, ok := s.loadTicket(c)
	if !ok {
		return
	}
	allowed := ticket.UserID == viewer.ID ||
		(ticket.AssigneeID != nil && *ticket.AssigneeID == viewer.ID) ||
		permission.HasCapability(viewer.Role, permission.ViewAllTickets)
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": "insufficient permissions"})
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// HandleUpdateTicket applies a partial update, gated by CanEditTicket.
func (s *Server) HandleUpdateTicket(c *gin.Context) {
	viewer := IdentityFromContext(c)
	ticket, ok := s.loadTicket(c)
	if !ok {
		return
	}
	if !permission.CanEditTicket(viewer, ticket) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": "insufficient permissions"})
		return
	}

	var req dto.UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "invalid JSON payload"})
		return
	}
	if req.Status != nil {
		switch models.TicketStatus(*req.Status) {
		case models.TicketOpen, models.TicketInProgress, models.TicketResolved, models.TicketClosed:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "unknown status"})
			return
		}
	}

	updated, err := s.tickets.Update(c.Request.Context(), ticket.ID, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "update ticket failed"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// HandleAssignTicket assigns a ticket to a staff member. The route is
// gated by RequireRole, so only moderator-tier callers reach it. The
// assignee must also hold a moderator-tier role.
func (s *Server) HandleAssignTicket(c *gin.Context) {
	ticket, ok := s.loadTicket(c)
	if !ok {
		return
	}

	var req dto.AssignTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AssigneeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "assignee_id is required"})
		return
	}
	assignee, err := s.users.FindByID(c.Request.Context(), req.AssigneeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "assignee not found"})
		return
	}
	if assignee.Role.Tier() < models.TierModerator {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "assignee must be staff"})
		return
	}

	updated, err := s.tickets.Assign(c.Request.Context(), ticket.ID, assignee.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "assign ticket failed"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// HandleReportSummary aggregates ticket counts by status. Route is gated by
// the access_reports capability (admin only).
func (s *Server) HandleReportSummary(c *gin.Context) {
	tickets, err := s.tickets.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "report failed"})
		return
	}
	byStatus := map[models.TicketStatus]int{}
	unassigned := 0
	for _, t := range tickets {
		byStatus[t.Status]++
		if t.AssigneeID == nil {
			unassigned++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"total":      len(tickets),
		"by_status":  byStatus,
		"unassigned": unassigned,
	})
}

func (s *Server) loadTicket(c *gin.Context) (*models.Ticket, bool) {
	ticket, err := s.tickets.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "error_description": "ticket not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "load ticket failed"})
		}
		return nil, false
	}
	return ticket, true
}
