// Package cmd implements the carpool command line front end.
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/dukerupert/carpool/internal/app"
	"github.com/dukerupert/carpool/internal/config"
	"github.com/dukerupert/carpool/internal/logging"
	"github.com/dukerupert/carpool/internal/model"
	"github.com/dukerupert/carpool/internal/session"
	"github.com/dukerupert/carpool/internal/toast"
)

// cli carries the global flags and builds the application per command.
type cli struct {
	cfgFile   string
	logLevel  string
	logFormat string

	// cfg, when set, is used instead of loading from disk.
	cfg *config.Config
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	return newRoot(&cli{})
}

func newRoot(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "carpool",
		Short: "Ride-sharing client",
		Long: `carpool drives the ride-sharing client core from the terminal.

Sessions for users, admins and donors are kept in a local database, so a
login survives between invocations. Notifications raised while a command
runs are printed as they happen.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default carpool.yaml or $CARPOOL_CONFIG)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "", "log format: text or json")

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.registerCmd(),
		c.statusCmd(),
		c.profileCmd(),
		c.navigateCmd(),
		c.ridesCmd(),
		c.requestsCmd(),
		c.driversCmd(),
		c.feedbackCmd(),
		c.notificationsCmd(),
		c.donateCmd(),
		c.chatCmd(),
		c.listenCmd(),
	)
	return root
}

// ExecuteContext runs the command tree with ctx, which is cancelled on
// interrupt.
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (c *cli) loadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return nil, err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	return cfg, nil
}

// with opens the application, resumes the saved route, streams toasts to
// the command's error stream while fn runs, and closes everything after.
func (c *cli) with(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close failed", "error", err)
		}
	}()

	toasts, unsubscribe := a.Toasts.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		printToasts(cmd.ErrOrStderr(), toasts)
	}()
	defer func() {
		unsubscribe()
		<-done
	}()

	ctx := cmd.Context()
	if _, err := a.Start(ctx); err != nil {
		logger.Warn("failed to resume route", "error", err)
	}
	return fn(ctx, a)
}

func printToasts(w io.Writer, toasts <-chan toast.Toast) {
	for t := range toasts {
		fmt.Fprintf(w, "[%s] %s\n", t.Severity, t.Message)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// audienceFlags registers --admin and --donor on cmd and returns a resolver
// for the session they select.
func audienceFlags(cmd *cobra.Command) func(a *app.App) *session.Store {
	var admin, donor bool
	cmd.Flags().BoolVar(&admin, "admin", false, "use the admin session")
	cmd.Flags().BoolVar(&donor, "donor", false, "use the donor session")
	cmd.MarkFlagsMutuallyExclusive("admin", "donor")
	return func(a *app.App) *session.Store {
		switch {
		case admin:
			return a.Admin
		case donor:
			return a.Donor
		default:
			return a.User
		}
	}
}

func describe(s *session.Store) string {
	snap := s.Snapshot()
	if !snap.Authenticated {
		return fmt.Sprintf("%-6s signed out", snap.Audience)
	}
	p := snap.Profile
	if p == nil {
		p = &model.Profile{Role: model.RoleUnknown}
	}
	return fmt.Sprintf("%-6s %s <%s> role=%s id=%d", snap.Audience, p.Name, p.Email, p.Role, p.ID)
}
