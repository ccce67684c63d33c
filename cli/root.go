// Package cli implements the todo-sync command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stevemurr/todo-sync-server/collection"
	"github.com/stevemurr/todo-sync-server/config"
	"github.com/stevemurr/todo-sync-server/logging"
	"github.com/stevemurr/todo-sync-server/store"
	"github.com/stevemurr/todo-sync-server/todo"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "todo-sync",
		Short: "Single-user to-do list server with live updates",
		Long: `A to-do list service backed by a validated document store.

Every document written or read is checked against its collection's schema.
The server streams live changes to connected clients over server-sent events.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (.toml, .yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTodoCommand(opts))

	return cmd
}

// env is what a command runs against once its configuration is loaded.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	store  store.Store
	client *store.Client
	todos  *todo.Service
}

func (e *env) Close() error {
	e.todos.Close()
	e.client.Close()
	return e.store.Close()
}

// setup loads configuration for cmd and opens the configured store.
// Logs go to logOut.
func setup(opts *RootOptions, cmd *cobra.Command, logOut io.Writer) (*env, error) {
	cfg, err := config.Load(opts.ConfigPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	s, err := store.New(cfg.Backend, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create store (backend=%s): %w", cfg.Backend, err)
	}
	client := store.NewClient(s, store.WithLogger(logger))
	todos := todo.NewService(client, cfg.Collection, collection.WithLogger(logger))
	return &env{cfg: cfg, logger: logger, store: s, client: client, todos: todos}, nil
}

// registerTodoSchema publishes the to-do shape in the store's schema
// registry so it can be read back over the API.
func registerTodoSchema(ctx context.Context, e *env) error {
	return e.store.PutSchema(ctx, e.cfg.Collection, todo.Shape().JSONSchema())
}
