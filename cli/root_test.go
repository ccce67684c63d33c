package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/todo-sync-server/todo"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HOST", "PORT", "DATA_DIR", "STORE_BACKEND", "ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_FORMAT", "TODO_COLLECTION"} {
		t.Setenv(k, "")
	}
}

// run executes the CLI against a json store in dir and returns stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--backend", "json", "--data-dir", dir, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "todo-sync", cmd.Use)

	for _, path := range [][]string{{"serve"}, {"todo", "add"}, {"todo", "list"}, {"todo", "toggle"}, {"todo", "edit"}, {"todo", "rm"}} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}

	for _, name := range []string{"config", "host", "port", "data-dir", "backend", "allowed-origins", "log-level", "log-format", "collection"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestTodoCommands(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	out, err := run(t, dir, "todo", "add", "Buy milk", "-d", "2L")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	_, err = run(t, dir, "todo", "add", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Title must not be empty")

	out, err = run(t, dir, "todo", "list", "--json")
	require.NoError(t, err)
	var items []todo.Todo
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.Equal(t, todo.Todo{ID: id, Title: "Buy milk", Description: "2L", Status: todo.StatusIncomplete}, items[0])

	out, err = run(t, dir, "todo", "toggle", id)
	require.NoError(t, err)
	assert.Equal(t, id+" completed\n", out)

	out, err = run(t, dir, "todo", "list", "--filter", "completed")
	require.NoError(t, err)
	assert.Contains(t, out, "Buy milk")
	out, err = run(t, dir, "todo", "list", "--filter", "incomplete")
	require.NoError(t, err)
	assert.NotContains(t, out, "Buy milk")

	_, err = run(t, dir, "todo", "edit", id, "--title", "Buy oat milk")
	require.NoError(t, err)
	_, err = run(t, dir, "todo", "edit", id, "--status", "archived")
	require.Error(t, err)
	_, err = run(t, dir, "todo", "edit", id)
	require.Error(t, err)

	out, err = run(t, dir, "todo", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Buy oat milk")

	_, err = run(t, dir, "todo", "rm", id)
	require.NoError(t, err)
	_, err = run(t, dir, "todo", "toggle", id)
	require.Error(t, err)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServe(t *testing.T) {
	clearEnv(t)
	port := freePort(t)

	cmd := NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"serve", "--backend", "memory", "--host", "127.0.0.1", "--port", fmt.Sprint(port)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/schemas/todos")
	require.NoError(t, err)
	var sch map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sch))
	resp.Body.Close()
	assert.Equal(t, "object", sch["type"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
