// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obspull/obspull-cli/internal/store"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestUsersList_Empty(t *testing.T) {
	t.Setenv("OBSPULL_STORE_DIR", t.TempDir())

	out := execute(t, "users", "list")
	assert.Contains(t, out, "No saved profiles.")
}

func TestUsersListAndDelete(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OBSPULL_STORE_DIR", dir)

	s, err := store.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save("20201234", "hunter2"))

	out := execute(t, "users", "list")
	assert.Contains(t, out, "20201234")

	out = execute(t, "users", "delete", "20201234")
	assert.Contains(t, out, "Deleted 20201234.")

	out = execute(t, "users", "list")
	assert.Contains(t, out, "No saved profiles.")
}
