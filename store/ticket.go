package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/opsdesk/opsdesk/dto"
	"github.com/opsdesk/opsdesk/models"
)

// TicketStore provides operations for tickets.
type TicketStore struct {
	DB *gorm.DB
}

func NewTicketStore(db *gorm.DB) *TicketStore { return &TicketStore{DB: db} }

// Create inserts a new ticket for the given requester.
func (s *TicketStore) Create(ctx context.Context, t *models.Ticket) error {
	now := time.Now()
	if t.ID == "" {
		t.ID = models.NewID()
	}
	if t.Status == "" {
		t.Status = models.TicketOpen
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	return s.DB.WithContext(ctx).Create(t).Error
}

// FindByID looks up a ticket by primary key.
func (s *TicketStore) FindByID(ctx context.Context, id string) (*models.Ticket, error) {
	var t models.Ticket
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListAll returns every ticket, newest first.
func (s *TicketStore) ListAll(ctx context.Context) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

// ListByRequester returns tickets opened by one user, newest first.
func (s *TicketStore) ListByRequester(ctx context.Context, userID string) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// Update applies a partial update and returns the stored result.
func (s *TicketStore) Update(ctx context.Context, id string, req dto.UpdateTicketRequest) (*models.Ticket, error) {
	updates := map[string]any{"updated_at": time.Now()}
	if req.Subject != nil {
		updates["subject"] = *req.Subject
	}
	if req.Body != nil {
		updates["body"] = *req.Body
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	res := s.DB.WithContext(ctx).Model(&models.Ticket{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

// Assign sets the assignee and moves an open ticket to in_progress.
func (s *TicketStore) Assign(ctx context.Context, id, assigneeID string) (*models.Ticket, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Ticket{}).Where("id = ?", id).Updates(map[string]any{
			"assignee_id": assigneeID,
			"updated_at":  time.Now(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.Ticket{}).
			Where("id = ? AND status = ?", id, models.TicketOpen).
			Update("status", models.TicketInProgress).Error
	})
	if err != nil {
		return nil, err
	}
	return s.FindByID(ctx, id)
}
