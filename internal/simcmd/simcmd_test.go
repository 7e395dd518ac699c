package simcmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/xk6-atomics/internal/simconfig"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err := root.Execute()

	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "atomics-sim", rootCmd.Use)

	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	assert.True(t, names["run"], "run subcommand is registered")
	assert.True(t, names["version"], "version subcommand is registered")
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(rootCmd, "version")
	require.NoError(t, err)
	assert.Equal(t, "atomics-sim "+Version+"\n", out)
}

func TestRunCommand(t *testing.T) {
	out, err := executeCommand(rootCmd, "run",
		"--workers", "3",
		"--rows", "5",
		"--check-period", "1ms",
		"--timeout", "10s",
		"--shard-hash", "fnv",
		"--log-level", "error")
	require.NoError(t, err)

	assert.Contains(t, out, "3 workers, 5 rows")
	assert.Contains(t, out, "gates flipped: 5")
}

func TestRunCommand_InvalidFlags(t *testing.T) {
	_, err := executeCommand(rootCmd, "run",
		"--workers", "0",
		"--rows", "5",
		"--check-period", "1ms",
		"--log-level", "error")
	require.Error(t, err)

	var errs simconfig.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Contains(t, err.Error(), "workers")
}

func TestRunCommand_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atomics-sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shards: 4\nlogging:\n  format: json\n"), 0o600))

	out, err := executeCommand(rootCmd, "run",
		"--config", path,
		"--workers", "2",
		"--rows", "2",
		"--check-period", "1ms",
		"--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "2 workers, 2 rows")
}
