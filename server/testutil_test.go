package server

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsdesk/opsdesk/models"
	"github.com/opsdesk/opsdesk/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// testEnv is a full server over an in-memory sqlite database.
type testEnv struct {
	srv     *Server
	ts      *httptest.Server
	users   *store.UserStore
	tickets *store.TicketStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Identity{}, &models.Ticket{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := &AppConfig{}
	cfg.applyDefaults()
	cfg.Server.TokenSecret = "test-secret"
	srv := NewServer(cfg, db, nil, nil)
	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(ts.Close)
	return &testEnv{srv: srv, ts: ts, users: srv.users, tickets: srv.tickets}
}

func (env *testEnv) expect(t *testing.T) *httpexpect.Expect {
	t.Helper()
	return httpexpect.Default(t, env.ts.URL)
}

// createUser inserts a user with password "hunter2" and returns it.
func (env *testEnv) createUser(t *testing.T, email string, role models.Role) *models.Identity {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u := &models.Identity{
		Email:        email,
		FirstName:    "Test",
		Role:         role,
		PasswordHash: string(hash),
	}
	if err := env.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

// login authenticates a previously created user and returns the bearer token.
func (env *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	obj := env.expect(t).POST("/auth/login").
		WithJSON(map[string]string{"email": email, "password": "hunter2"}).
		Expect().
		Status(200).
		JSON().Object()
	token := obj.Value("token").String().Raw()
	if token == "" {
		t.Fatalf("no token for %s", email)
	}
	return token
}

func (env *testEnv) createTicket(t *testing.T, requester *models.Identity, subject string) *models.Ticket {
	t.Helper()
	ticket := &models.Ticket{UserID: requester.ID, Subject: subject, Body: "body"}
	if err := env.tickets.Create(context.Background(), ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func bearer(token string) string { return "Bearer " + token }
