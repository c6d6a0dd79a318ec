package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/buntdb"

	"github.com/opsdesk/opsdesk/dto"
	"github.com/opsdesk/opsdesk/gateway"
	"github.com/opsdesk/opsdesk/models"
	"github.com/opsdesk/opsdesk/permission"
)

func testIdentity() models.Identity {
	return models.Identity{
		ID:        "u1",
		Email:     "kim@example.com",
		FirstName: "Kim",
		LastName:  "Reyes",
		Role:      models.RoleManager,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u1",
		"role": "manager",
		"exp":  exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// authBackend serves the handful of endpoints the store talks to.
func authBackend(t *testing.T, token string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req dto.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "invalid_grant", Description: "invalid email or password"})
			return
		}
		_ = json.NewEncoder(w).Encode(dto.LoginResponse{User: testIdentity(), Token: token})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PUT /users/u1", func(w http.ResponseWriter, r *http.Request) {
		var req dto.UpdateUserRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		id := testIdentity()
		if req.FirstName != nil {
			id.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			id.LastName = *req.LastName
		}
		id.UpdatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		_ = json.NewEncoder(w).Encode(dto.FromIdentity(&id))
	})
	return httptest.NewServer(mux)
}

func newStore(t *testing.T, path, backendURL string) *Store {
	t.Helper()
	client := gateway.New(gateway.Config{ProductionBaseURL: backendURL}, nil, nil)
	st, err := Open(path, client, nil)
	if err != nil {
		t.Fatal(err)
	}
	client.SetCredentials(st)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestInitializeWithEmptyStorage(t *testing.T) {
	st := newStore(t, ":memory:", "http://unused.test")

	if st.Initialized() {
		t.Fatal("store should not report initialized before Initialize")
	}
	st.Initialize()
	if !st.Initialized() {
		t.Fatal("Initialize should set the initialized flag")
	}
	if st.IsAuthenticated() {
		t.Fatal("empty storage should restore no session")
	}
	if st.Identity() != nil {
		t.Fatal("identity should be nil when signed out")
	}
}

func TestLoginRestoreRoundTrip(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	backend := authBackend(t, token)
	defer backend.Close()

	path := filepath.Join(t.TempDir(), "session.db")

	st := newStore(t, path, backend.URL)
	st.Initialize()
	id, err := st.Login(context.Background(), "kim@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if id.Role != models.RoleManager || id.Email != "kim@example.com" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	st.Close()

	// page-reload equivalent: a fresh store over the same file
	st2 := newStore(t, path, backend.URL)
	st2.Initialize()
	if !st2.IsAuthenticated() {
		t.Fatal("restored store should be authenticated")
	}
	got := st2.Identity()
	if !reflect.DeepEqual(got, id) {
		t.Fatalf("restored identity differs:\n got %+v\nwant %+v", got, id)
	}
	if st2.Token() != token {
		t.Fatal("restored token differs")
	}
}

func TestLoginFailureCarriesServerMessage(t *testing.T) {
	backend := authBackend(t, "tok")
	defer backend.Close()

	st := newStore(t, ":memory:", backend.URL)
	st.Initialize()

	_, err := st.Login(context.Background(), "kim@example.com", "wrong")
	var se *gateway.ServerError
	if !errors.As(err, &se) {
		t.Fatalf("want ServerError, got %v", err)
	}
	if se.Message != "invalid email or password" {
		t.Fatalf("want server-supplied message, got %q", se.Message)
	}
	if st.IsAuthenticated() {
		t.Fatal("failed login must not create a session")
	}
}

func TestLogoutIsIdempotentAndClearsStorage(t *testing.T) {
	backend := authBackend(t, signedToken(t, time.Now().Add(time.Hour)))
	defer backend.Close()

	path := filepath.Join(t.TempDir(), "session.db")
	st := newStore(t, path, backend.URL)
	st.Initialize()
	if _, err := st.Login(context.Background(), "kim@example.com", "hunter2"); err != nil {
		t.Fatal(err)
	}

	st.Logout(context.Background())
	if st.IsAuthenticated() {
		t.Fatal("logout should clear the session")
	}
	// second logout with no active session is a no-op
	st.Logout(context.Background())
	st.Close()

	st2 := newStore(t, path, backend.URL)
	st2.Initialize()
	if st2.IsAuthenticated() {
		t.Fatal("logout should clear persisted state")
	}
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	st := newStore(t, ":memory:", "http://unused.test")
	st.Initialize()

	_, err := st.UpdateProfile(context.Background(), dto.UpdateUserRequest{})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("want ErrNotAuthenticated, got %v", err)
	}
}

func TestUpdateProfileMergesAndPersists(t *testing.T) {
	backend := authBackend(t, signedToken(t, time.Now().Add(time.Hour)))
	defer backend.Close()

	path := filepath.Join(t.TempDir(), "session.db")
	st := newStore(t, path, backend.URL)
	st.Initialize()
	if _, err := st.Login(context.Background(), "kim@example.com", "hunter2"); err != nil {
		t.Fatal(err)
	}

	first := "Kimberly"
	updated, err := st.UpdateProfile(context.Background(), dto.UpdateUserRequest{FirstName: &first})
	if err != nil {
		t.Fatal(err)
	}
	if updated.FirstName != "Kimberly" {
		t.Fatalf("merge lost the update: %+v", updated)
	}
	if updated.LastName != "Reyes" {
		t.Fatalf("merge dropped untouched fields: %+v", updated)
	}
	st.Close()

	st2 := newStore(t, path, backend.URL)
	st2.Initialize()
	if got := st2.Identity(); got == nil || got.FirstName != "Kimberly" {
		t.Fatalf("merged profile should persist, got %+v", got)
	}
}

func TestPermissionChecksWhileSignedOut(t *testing.T) {
	st := newStore(t, ":memory:", "http://unused.test")
	st.Initialize()

	if st.HasPermission(models.RoleUser) {
		t.Fatal("signed out should fail every role check")
	}
	if st.HasSpecificPermission(permission.ViewAllTickets) {
		t.Fatal("signed out should fail every capability check")
	}
	if st.IsAdmin() || st.IsModeratorTier() || st.IsUser() {
		t.Fatal("signed out should derive no role flags")
	}
}

func TestPermissionChecksAfterLogin(t *testing.T) {
	backend := authBackend(t, signedToken(t, time.Now().Add(time.Hour)))
	defer backend.Close()

	st := newStore(t, ":memory:", backend.URL)
	st.Initialize()
	if _, err := st.Login(context.Background(), "kim@example.com", "hunter2"); err != nil {
		t.Fatal(err)
	}

	// manager is moderator tier
	if !st.HasPermission(models.RoleModerator) {
		t.Fatal("manager should satisfy the moderator tier")
	}
	if st.HasPermission(models.RoleAdmin) {
		t.Fatal("manager should not satisfy admin")
	}
	if !st.HasSpecificPermission(permission.ViewAllTickets) {
		t.Fatal("manager should view all tickets")
	}
	if st.HasSpecificPermission(permission.AccessReports) {
		t.Fatal("manager should not access reports")
	}
	if !st.IsModeratorTier() || st.IsAdmin() || st.IsUser() {
		t.Fatal("derived flags should match the manager role")
	}
}

func TestCorruptPersistedIdentityDegradesToSignedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	db, err := buntdb.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	err = db.Update(func(tx *buntdb.Tx) error {
		if _, _, err := tx.Set("user", "{not json", nil); err != nil {
			return err
		}
		_, _, err := tx.Set("token", "tok", nil)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	st := newStore(t, path, "http://unused.test")
	st.Initialize()
	if !st.Initialized() {
		t.Fatal("Initialize must complete even when storage is corrupt")
	}
	if st.IsAuthenticated() {
		t.Fatal("corrupt identity should degrade to signed out")
	}
}

func TestTokenExpiresAt(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	backend := authBackend(t, signedToken(t, exp))
	defer backend.Close()

	st := newStore(t, ":memory:", backend.URL)
	st.Initialize()

	if _, ok := st.TokenExpiresAt(); ok {
		t.Fatal("signed out store has no token expiry")
	}
	if _, err := st.Login(context.Background(), "kim@example.com", "hunter2"); err != nil {
		t.Fatal(err)
	}
	got, ok := st.TokenExpiresAt()
	if !ok {
		t.Fatal("expected a token expiry")
	}
	if !got.Equal(exp) {
		t.Fatalf("expiry = %v, want %v", got, exp)
	}
}
