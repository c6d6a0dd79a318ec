// Package seed populates a development database with known accounts and a
// handful of tickets. Password hashes are computed at seed time, so the seed
// is Go code rather than static SQL.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/opsdesk/opsdesk/models"
	"github.com/opsdesk/opsdesk/store"
)

// DefaultPassword is the password every seeded account gets.
const DefaultPassword = "opsdesk"

type account struct {
	Email     string
	FirstName string
	LastName  string
	Role      models.Role
}

var accounts = []account{
	{"admin@opsdesk.local", "Ada", "Admin", models.RoleAdmin},
	{"mod@opsdesk.local", "Morgan", "Moderator", models.RoleModerator},
	{"support@opsdesk.local", "Sam", "Support", models.RoleSupport},
	{"alice@opsdesk.local", "Alice", "Example", models.RoleUser},
	{"bob@opsdesk.local", "Bob", "Example", models.RoleUser},
}

// Run inserts the development fixtures. Accounts that already exist are left
// untouched, so running it twice is safe.
func Run(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	users := store.NewUserStore(db)
	tickets := store.NewTicketStore(db)

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed: hash password: %w", err)
	}

	byEmail := map[string]*models.Identity{}
	created := 0
	for _, acc := range accounts {
		existing, err := users.FindByEmail(ctx, acc.Email)
		if err == nil {
			byEmail[acc.Email] = existing
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("seed: lookup %s: %w", acc.Email, err)
		}
		u := &models.Identity{
			Email:        acc.Email,
			FirstName:    acc.FirstName,
			LastName:     acc.LastName,
			Role:         acc.Role,
			PasswordHash: string(hash),
		}
		if err := users.Create(ctx, u); err != nil {
			return fmt.Errorf("seed: create %s: %w", acc.Email, err)
		}
		byEmail[acc.Email] = u
		created++
	}

	if created > 0 {
		alice := byEmail["alice@opsdesk.local"]
		bob := byEmail["bob@opsdesk.local"]
		fixtures := []*models.Ticket{
			{UserID: alice.ID, Subject: "Cannot log in to payroll", Body: "Password reset loop since this morning.", Priority: models.PriorityHigh},
			{UserID: alice.ID, Subject: "Request new monitor", Body: "Current one flickers.", Priority: models.PriorityLow},
			{UserID: bob.ID, Subject: "VPN drops every hour", Body: "Started after the last client update.", Priority: models.PriorityMedium},
		}
		for _, tk := range fixtures {
			if err := tickets.Create(ctx, tk); err != nil {
				return fmt.Errorf("seed: create ticket %q: %w", tk.Subject, err)
			}
		}
	}

	logger.Info("seed complete", slog.Int("users_created", created))
	return nil
}
