// opsdesk is the terminal client for the helpdesk API. It keeps a signed-in
// session on disk and routes requests to the local development backend or
// production depending on configuration and local backend health.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/opsdesk/opsdesk/dto"
	"github.com/opsdesk/opsdesk/gateway"
	"github.com/opsdesk/opsdesk/models"
	"github.com/opsdesk/opsdesk/server"
	"github.com/opsdesk/opsdesk/session"
)

const usage = `usage: opsdesk <command> [args]

commands:
  login <email> <password>   sign in and persist the session
  logout                     sign out and clear the session
  whoami                     show the signed-in identity
  profile <first> [last]     update the signed-in profile name
  tickets                    list visible tickets
  ticket new <subject> [body]    open a ticket
  ticket assign <id> <assignee>  assign a ticket to a staff member
  users                      list users (staff only)
`

func main() {
	localMode := flag.Bool("local", false, "prefer the local development backend")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := server.GetConfig()
	client := gateway.New(gateway.Config{
		ProductionBaseURL: cfg.Client.ProductionBaseURL,
		LocalBaseURL:      cfg.Client.LocalBaseURL,
		LocalMode:         cfg.Client.LocalMode || *localMode,
		ProbeTTL:          cfg.Client.ProbeTTL(),
		ProbeTimeout:      cfg.Client.ProbeTimeout(),
	}, &http.Client{}, logger)
	client.SetErrorReporter(gateway.ErrorReporterFunc(reportError))

	if err := os.MkdirAll(filepath.Dir(cfg.Client.SessionPath), 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "opsdesk: session dir: %v\n", err)
		os.Exit(1)
	}
	store, err := session.Open(cfg.Client.SessionPath, client, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opsdesk: open session: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	store.Initialize()
	client.SetCredentials(store)

	ctx := context.Background()
	if err := dispatch(ctx, store, client, flag.Args()); err != nil {
		if !reportedByGateway(err) {
			fmt.Fprintf(os.Stderr, "opsdesk: %v\n", err)
		}
		os.Exit(1)
	}
}

// reportedByGateway filters errors the ErrorReporter already printed.
func reportedByGateway(err error) bool {
	return errors.As(err, new(*gateway.ServerError)) ||
		errors.As(err, new(*gateway.NetworkError)) ||
		errors.As(err, new(*gateway.AuthorizationError))
}

// reportError prints terminal request failures once, then passes them through
// so commands still exit nonzero.
func reportError(err error, opts gateway.ErrorOptions) error {
	if opts.Silent {
		return err
	}
	var srvErr *gateway.ServerError
	if errors.As(err, &srvErr) && srvErr.Message != "" {
		fmt.Fprintf(os.Stderr, "opsdesk: %s\n", srvErr.Message)
		return err
	}
	fmt.Fprintf(os.Stderr, "opsdesk: %v\n", err)
	return err
}

func dispatch(ctx context.Context, store *session.Store, client *gateway.Client, args []string) error {
	switch args[0] {
	case "login":
		if len(args) != 3 {
			return errors.New("usage: opsdesk login <email> <password>")
		}
		id, err := store.Login(ctx, args[1], args[2])
		if err != nil {
			var srvErr *gateway.ServerError
			if errors.As(err, &srvErr) && srvErr.Message != "" {
				return fmt.Errorf("%s", srvErr.Message)
			}
			return err
		}
		fmt.Printf("signed in as %s (%s)\n", id.DisplayName(), id.Role)
		return nil

	case "logout":
		store.Logout(ctx)
		fmt.Println("signed out")
		return nil

	case "whoami":
		id := store.Identity()
		if id == nil {
			return errors.New("not signed in")
		}
		fmt.Printf("%s <%s> role=%s\n", id.DisplayName(), id.Email, id.Role)
		if exp, ok := store.TokenExpiresAt(); ok {
			fmt.Printf("token expires %s\n", exp.Format("2006-01-02 15:04:05"))
		}
		return nil

	case "profile":
		if len(args) < 2 {
			return errors.New("usage: opsdesk profile <first> [last]")
		}
		req := dto.UpdateUserRequest{FirstName: &args[1]}
		if len(args) > 2 {
			req.LastName = &args[2]
		}
		id, err := store.UpdateProfile(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("profile updated: %s\n", id.DisplayName())
		return nil

	case "tickets":
		var tickets []models.Ticket
		err := client.Do(ctx, gateway.RequestSpec{Method: http.MethodGet, Path: "/tickets"}, &tickets)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tSUBJECT")
		for _, tk := range tickets {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", tk.ID, tk.Status, tk.Priority, tk.Subject)
		}
		return w.Flush()

	case "ticket":
		return dispatchTicket(ctx, client, args[1:])

	case "users":
		var users []dto.UserResponse
		spec := gateway.RequestSpec{
			Method:       http.MethodGet,
			Path:         "/users",
			RequiredRole: models.RoleModerator,
		}
		if err := client.Do(ctx, spec, &users); err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tROLE\tNAME")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Role, u.DisplayName)
		}
		return w.Flush()

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func dispatchTicket(ctx context.Context, client *gateway.Client, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: opsdesk ticket <new|assign> ...")
	}
	switch args[0] {
	case "new":
		if len(args) < 2 {
			return errors.New("usage: opsdesk ticket new <subject> [body]")
		}
		req := dto.CreateTicketRequest{Subject: args[1]}
		if len(args) > 2 {
			req.Body = args[2]
		}
		var ticket models.Ticket
		spec := gateway.RequestSpec{Method: http.MethodPost, Path: "/tickets", Body: req}
		if err := client.Do(ctx, spec, &ticket); err != nil {
			return err
		}
		fmt.Printf("opened ticket %s\n", ticket.ID)
		return nil

	case "assign":
		if len(args) != 3 {
			return errors.New("usage: opsdesk ticket assign <id> <assignee>")
		}
		var ticket models.Ticket
		spec := gateway.RequestSpec{
			Method:       http.MethodPost,
			Path:         "/tickets/" + args[1] + "/assign",
			Body:         dto.AssignTicketRequest{AssigneeID: args[2]},
			RequiredRole: models.RoleModerator,
		}
		if err := client.Do(ctx, spec, &ticket); err != nil {
			return err
		}
		fmt.Printf("ticket %s assigned to %s\n", ticket.ID, args[2])
		return nil

	default:
		return fmt.Errorf("unknown ticket command %q", args[0])
	}
}
