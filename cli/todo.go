package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stevemurr/todo-sync-server/schema"
	"github.com/stevemurr/todo-sync-server/todo"
)

// NewTodoCommand creates the todo command and its subcommands, which work
// on the configured store directly rather than through a running server.
func NewTodoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "todo",
		Short: "Manage to-do items in the configured store",
	}
	cmd.AddCommand(newTodoAddCommand(rootOpts))
	cmd.AddCommand(newTodoListCommand(rootOpts))
	cmd.AddCommand(newTodoToggleCommand(rootOpts))
	cmd.AddCommand(newTodoEditCommand(rootOpts))
	cmd.AddCommand(newTodoRemoveCommand(rootOpts))
	return cmd
}

// withEnv runs fn against a freshly opened store and closes it afterwards.
func withEnv(rootOpts *RootOptions, cmd *cobra.Command, fn func(e *env) error) error {
	e, err := setup(rootOpts, cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(e)
}

func newTodoAddCommand(rootOpts *RootOptions) *cobra.Command {
	var description string
	var completed bool
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a to-do item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				item := todo.Todo{Title: args[0], Description: description, Status: todo.StatusIncomplete}
				if completed {
					item.Status = todo.StatusCompleted
				}
				id, err := e.todos.Add(cmd.Context(), item.Record())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "longer description")
	cmd.Flags().BoolVar(&completed, "completed", false, "create the item already completed")
	return cmd
}

func newTodoListCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List to-do items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				items, err := e.todos.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(items)
				}
				return printTodos(cmd.OutOrStdout(), items)
			})
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "completed or incomplete (default all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printTodos(w io.Writer, items []todo.Todo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTITLE")
	for _, t := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Status, t.Title)
	}
	return tw.Flush()
}

func newTodoToggleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip an item between completed and incomplete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				item, err := e.todos.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("todo %q not found", args[0])
				}
				status, err := e.todos.ToggleStatus(cmd.Context(), item.ID, item.Status)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", item.ID, status)
				return nil
			})
		},
	}
}

func newTodoEditCommand(rootOpts *RootOptions) *cobra.Command {
	var title, description, status string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := schema.Record{}
			if cmd.Flags().Changed("title") {
				fields["title"] = title
			}
			if cmd.Flags().Changed("description") {
				fields["description"] = description
			}
			if cmd.Flags().Changed("status") {
				fields["status"] = status
			}
			if len(fields) == 0 {
				return fmt.Errorf("nothing to change: set --title, --description or --status")
			}
			return withEnv(rootOpts, cmd, func(e *env) error {
				return e.todos.Update(cmd.Context(), args[0], fields)
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVarP(&status, "status", "s", "", "completed or incomplete")
	return cmd
}

func newTodoRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete an item",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(e *env) error {
				return e.todos.Delete(cmd.Context(), args[0])
			})
		},
	}
}
