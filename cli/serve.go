package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stevemurr/todo-sync-server/handler"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := setup(rootOpts, cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()
			return serve(ctx, e)
		},
	}
}

// serve runs the server until ctx is cancelled, then drains it.
func serve(ctx context.Context, e *env) error {
	if err := registerTodoSchema(ctx, e); err != nil {
		return err
	}

	h := handler.New(e.client, e.todos, handler.WithLogger(e.logger))
	srv := &http.Server{
		Addr:              e.cfg.Addr(),
		Handler:           handler.CORS(h, e.cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		e.logger.Info("todo sync server starting",
			"addr", srv.Addr, "store", e.cfg.Backend, "data", e.cfg.DataDir, "collection", e.cfg.Collection)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	e.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
