package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/opsdesk/opsdesk/dto"
	"github.com/opsdesk/opsdesk/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// UserStore provides operations for users.
type UserStore struct {
	DB *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore { return &UserStore{DB: db} }

// Create inserts a new identity with an already-hashed password.
func (s *UserStore) Create(ctx context.Context, u *models.Identity) error {
	now := time.Now()
	if u.ID == "" {
		u.ID = models.NewID()
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	return s.DB.WithContext(ctx).Create(u).Error
}

// FindByEmail looks up a user by email.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var u models.Identity
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByID looks up a user by primary key.
func (s *UserStore) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	var u models.Identity
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns all users ordered by creation time.
func (s *UserStore) List(ctx context.Context) ([]*models.Identity, error) {
	var users []*models.Identity
	if err := s.DB.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Update applies a partial update and returns the stored result.
func (s *UserStore) Update(ctx context.Context, id string, req dto.UpdateUserRequest) (*models.Identity, error) {
	updates := map[string]any{"updated_at": time.Now()}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	res := s.DB.WithContext(ctx).Model(&models.Identity{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

// UpdatePassword replaces the stored password hash.
func (s *UserStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res := s.DB.WithContext(ctx).Model(&models.Identity{}).Where("id = ?", id).
		Updates(map[string]any{"password_hash": passwordHash, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a user.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Identity{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSettings returns the user's settings document, or an empty object when
// none was stored yet.
func (s *UserStore) GetSettings(ctx context.Context, id string) (dto.SettingsDocument, error) {
	u, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(u.Settings) == 0 {
		return dto.SettingsDocument(`{}`), nil
	}
	return dto.SettingsDocument(u.Settings), nil
}

// SetSettings replaces the user's settings document.
func (s *UserStore) SetSettings(ctx context.Context, id string, doc dto.SettingsDocument) error {
	res := s.DB.WithContext(ctx).Model(&models.Identity{}).Where("id = ?", id).
		Updates(map[string]any{"settings": []byte(doc), "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
