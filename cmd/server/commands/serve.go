package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"investhub/internal/adapters/email"
	web "investhub/internal/adapters/http"
	"investhub/internal/adapters/http/perf"
	"investhub/internal/adapters/storage"
	accountStore "investhub/internal/adapters/storage/account"
	contactStore "investhub/internal/adapters/storage/contact"
	outboxStore "investhub/internal/adapters/storage/outbox"
	"investhub/internal/application/orchestrators"
	"investhub/internal/domain/collection"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func serve(ctx context.Context) error {
	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.MigrateDB(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	schema, err := storage.SchemaVersion(db)
	if err != nil {
		return err
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.Database.SlowQuery)

	stores := &web.Stores{
		AccountStore: accountStore.NewSQLiteStore(timedDB),
		ContactStore: contactStore.NewSQLiteStore(timedDB),
		OutboxStore:  outboxStore.NewSQLiteStore(timedDB),
	}

	content, err := newContent(collector)
	if err != nil {
		return err
	}

	var sender email.Sender = email.NewNoopSender()
	if cfg.Email.ResendAPIKey != "" {
		sender = email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.From)
	} else {
		slog.Warn("email_disabled", "reason", "no resend api key; mail is logged only")
	}

	if err := orchestrators.ExecuteSeedAdmin(ctx, orchestrators.CreateAccountDeps{
		AccountStore: stores.AccountStore,
		GenerateID:   uuid.NewString,
		Now:          time.Now,
	}, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	stopOutbox, err := orchestrators.StartOutboxRetryScheduler(ctx, orchestrators.OutboxRetryDeps{
		OutboxStore: stores.OutboxStore,
		Sender:      sender,
		Now:         time.Now,
		BaseDelay:   cfg.Outbox.BaseDelay,
		MaxDelay:    cfg.Outbox.MaxDelay,
	}, orchestrators.OutboxRetryConfig{
		Enabled:       cfg.Outbox.Enabled,
		Schedule:      cfg.Outbox.Schedule,
		PurgeSchedule: cfg.Outbox.PurgeSchedule,
		RetainDone:    cfg.Outbox.RetainDone,
	})
	if err != nil {
		return err
	}
	defer stopOutbox()

	handler, err := web.NewMux(stores, content, collector, web.Options{
		CSRFKey:        cfg.Server.CSRFKey,
		Production:     cfg.IsProduction(),
		TrustedOrigins: cfg.Server.TrustedOrigins,
		BaseURL:        cfg.Server.BaseURL,
		ContactInbox:   cfg.Email.ContactInbox,
		RateLimit:      cfg.Server.RateLimit,
		RateWindow:     cfg.Server.RateWindow,
		SlowRequest:    cfg.Server.SlowRequest,
		Sender:         sender,
		Collections:    collection.WithPageSize(cfg.CMS.PageSize),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server_starting", "addr", srv.Addr, "version", version, "env", cfg.Env, "schema", schema, "cms", cfg.CMS.BaseURL)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("server_stopping", "grace", cfg.Server.ShutdownGrace)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server_stopped")
	return nil
}
