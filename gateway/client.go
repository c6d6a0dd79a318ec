package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/opsdesk/opsdesk/models"
)

// Backend identifies which of the two HTTP endpoints a request is routed to.
type Backend int

const (
	BackendProduction Backend = iota
	BackendLocal
)

func (b Backend) String() string {
	if b == BackendLocal {
		return "local"
	}
	return "production"
}

// DefaultRetries is the network retry budget applied when a RequestSpec does
// not set one.
const DefaultRetries = 1

const (
	defaultProbeTTL     = 5 * time.Second
	defaultProbeTimeout = time.Second
)

// Config holds the routing settings for a Client.
type Config struct {
	// ProductionBaseURL is the remote backend, e.g. "https://api.opsdesk.io".
	ProductionBaseURL string
	// LocalBaseURL is the development backend, e.g. "http://localhost:8090".
	LocalBaseURL string
	// LocalMode enables local-first routing. Callers detect it from their
	// runtime environment; it is never probed implicitly.
	LocalMode bool
	// ProbeTTL bounds how often the local health check runs.
	ProbeTTL time.Duration
	// ProbeTimeout bounds a single health check round trip.
	ProbeTimeout time.Duration
}

// CredentialSource supplies the bearer token and role of the current
// identity. The session store implements it.
type CredentialSource interface {
	// Token returns the bearer token, or "" when signed out.
	Token() string
	// CurrentRole returns the signed-in role; ok is false when signed out.
	CurrentRole() (models.Role, bool)
}

// RequestSpec describes one logical HTTP operation.
type RequestSpec struct {
	Method string
	Path   string
	// Body is JSON-encoded when non-nil.
	Body any
	// RequiredRole gates the call before any network I/O; empty means no gate.
	RequiredRole models.Role
	// Retries is the network retry budget against the production backend.
	// Zero means DefaultRetries; use NoRetries to disable.
	Retries int
	// ErrorOpts is handed to the registered ErrorReporter on terminal failure.
	ErrorOpts ErrorOptions
}

// NoRetries disables the retry budget for a single request.
const NoRetries = -1

func (s RequestSpec) budget() int {
	switch {
	case s.Retries == 0:
		return DefaultRetries
	case s.Retries < 0:
		return 0
	default:
		return s.Retries
	}
}

// Client executes logical HTTP operations against the two-backend topology.
// All routing state lives on the instance, so tests construct isolated
// clients instead of patching shared globals.
type Client struct {
	cfg    Config
	http   *http.Client
	probe  *http.Client
	logger *slog.Logger

	mu       sync.Mutex
	creds    CredentialSource
	reporter ErrorReporter

	// liveness probe cache; staleness only affects routing preference
	probeMu   sync.Mutex
	localLive bool
	probedAt  time.Time
}

// New constructs a Client. httpClient may be nil, in which case
// http.DefaultClient semantics with no extra timeout apply.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if cfg.ProbeTTL <= 0 {
		cfg.ProbeTTL = defaultProbeTTL
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		probe:  &http.Client{Timeout: cfg.ProbeTimeout, Transport: httpClient.Transport},
		logger: logger,
	}
}

// SetCredentials registers the token/role source. Last writer wins.
func (c *Client) SetCredentials(src CredentialSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = src
}

// SetErrorReporter registers the error-reporting collaborator. Last writer
// wins; nil unregisters.
func (c *Client) SetErrorReporter(r ErrorReporter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reporter = r
}

func (c *Client) collaborators() (CredentialSource, ErrorReporter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds, c.reporter
}

// Do executes one logical operation per the routing policy and decodes the
// JSON response into out when out is non-nil.
//
// Order of operations: role gate, local liveness probe (local mode only),
// local attempt, production attempt, bounded production retries. A non-2xx
// response from either backend is terminal; only transport failures move the
// request along the chain.
func (c *Client) Do(ctx context.Context, spec RequestSpec, out any) error {
	creds, reporter := c.collaborators()

	if spec.RequiredRole != "" {
		if !roleSatisfied(creds, spec.RequiredRole) {
			return c.terminal(reporter, &AuthorizationError{Required: spec.RequiredRole}, spec.ErrorOpts)
		}
	}

	if c.cfg.LocalMode && c.localAlive(ctx) {
		err := c.attempt(ctx, BackendLocal, spec, creds, out)
		if err == nil {
			return nil
		}
		if _, ok := err.(*NetworkError); !ok {
			// the local backend answered; its verdict stands
			return c.terminal(reporter, err, spec.ErrorOpts)
		}
		c.logger.Warn("local backend dropped mid-flight, falling back to production",
			slog.String("path", spec.Path))
	}

	// production attempts: budget+1 total, retrying only transport failures
	budget := spec.budget()
	var lastErr error
	for attempt := 0; attempt <= budget; attempt++ {
		err := c.attempt(ctx, BackendProduction, spec, creds, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if _, ok := err.(*NetworkError); !ok {
			break
		}
		if attempt < budget {
			c.logger.Warn("production attempt failed, retrying",
				slog.Int("attempt", attempt+1), slog.String("path", spec.Path))
		}
	}
	return c.terminal(reporter, lastErr, spec.ErrorOpts)
}

func roleSatisfied(creds CredentialSource, required models.Role) bool {
	if creds == nil {
		return false
	}
	role, ok := creds.CurrentRole()
	if !ok {
		return false
	}
	return role.Dominates(required)
}

func (c *Client) terminal(reporter ErrorReporter, err error, opts ErrorOptions) error {
	if reporter != nil {
		return reporter.HandleAPIError(err, opts)
	}
	return err
}

// attempt issues a single request against one backend. The returned error is
// a *NetworkError when no HTTP response arrived and a *ServerError for
// non-2xx statuses.
func (c *Client) attempt(ctx context.Context, backend Backend, spec RequestSpec, creds CredentialSource, out any) error {
	base := c.cfg.ProductionBaseURL
	if backend == BackendLocal {
		base = c.cfg.LocalBaseURL
	}

	var body io.Reader
	if spec.Body != nil {
		buf, err := json.Marshal(spec.Body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, base+spec.Path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if spec.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if creds != nil {
		if token := creds.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Backend: backend, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Backend: backend, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return serverErrorFromBody(backend, resp.StatusCode, payload)
	}
	if out != nil && len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// localAlive reports whether the local backend answered its health check
// recently. The result is cached for ProbeTTL, so concurrent requests mostly
// share one probe.
func (c *Client) localAlive(ctx context.Context) bool {
	c.probeMu.Lock()
	defer c.probeMu.Unlock()
	if time.Since(c.probedAt) < c.cfg.ProbeTTL {
		return c.localLive
	}
	c.localLive = c.probeOnce(ctx)
	c.probedAt = time.Now()
	return c.localLive
}

func (c *Client) probeOnce(ctx context.Context) bool {
	url := strings.TrimRight(c.cfg.LocalBaseURL, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := c.probe.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}
