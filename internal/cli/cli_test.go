package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Joseda-hg/lazytodo/internal/config"
	"github.com/Joseda-hg/lazytodo/internal/engine"
	"github.com/Joseda-hg/lazytodo/internal/kv"
	"github.com/Joseda-hg/lazytodo/internal/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func runCommand(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", configPath, "--env-file", ""))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandsShareState(t *testing.T) {
	for _, store := range []string{config.StoreSQLite, config.StoreBolt} {
		t.Run(store, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.json")

			out, err := runCommand(t, configPath, "add", "--store", store, "-t", "Read", "-d", "Chapter 3", "--tag", "Estudo", "-p", "alta")
			require.NoError(t, err)
			id := strings.TrimSpace(out)
			require.NotEmpty(t, id)

			out, err = runCommand(t, configPath, "list")
			require.NoError(t, err)
			assert.Contains(t, out, "Read")
			assert.Contains(t, out, "alta")

			out, err = runCommand(t, configPath, "toggle", id)
			require.NoError(t, err)
			assert.Contains(t, out, "concluida")

			out, err = runCommand(t, configPath, "list", "--status", "pendente")
			require.NoError(t, err)
			assert.NotContains(t, out, "Read")

			_, err = runCommand(t, configPath, "rm", id)
			require.NoError(t, err)
			out, err = runCommand(t, configPath, "list")
			require.NoError(t, err)
			assert.NotContains(t, out, id)
		})
	}
}

func TestStoreFlagIsRemembered(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	_, err := runCommand(t, configPath, "tags", "--store", "bolt")
	require.NoError(t, err)

	cfg, err := config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, config.StoreBolt, cfg.Store)
	assert.FileExists(t, filepath.Join(filepath.Dir(configPath), "lazytodo.bolt"))
}

func TestTagCommands(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")

	out, err := runCommand(t, configPath, "tags")
	require.NoError(t, err)
	assert.Equal(t, "Estudo\nMaths\nPython\nReact\nTrabalho\n", out)

	_, err = runCommand(t, configPath, "tags", "add", "Casa")
	require.NoError(t, err)
	_, err = runCommand(t, configPath, "tags", "add", "Casa")
	assert.Error(t, err)

	_, err = runCommand(t, configPath, "add", "-t", "Lab", "-d", "Run it", "--tag", "Python", "--tag", "Lab")
	require.NoError(t, err)
	_, err = runCommand(t, configPath, "tags", "rm", "Python")
	require.NoError(t, err)

	out, err = runCommand(t, configPath, "tags")
	require.NoError(t, err)
	assert.Contains(t, out, "Casa\n")
	assert.Contains(t, out, "Lab (in use, not defined)")
	assert.NotContains(t, out, "Python")
}

func TestAddRejectsInvalidInput(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")

	_, err := runCommand(t, configPath, "add", "-t", "No description")
	assert.Error(t, err)

	_, err = runCommand(t, configPath, "add", "-t", "x", "-d", "y", "--due", "31/12/2026")
	assert.Error(t, err)

	_, err = runCommand(t, configPath, "toggle", "missing")
	assert.Error(t, err)
}

func TestEphemeralLeavesConfigUntouched(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")

	_, err := runCommand(t, configPath, "add", "--ephemeral", "-t", "Temp", "-d", "gone")
	require.NoError(t, err)

	_, err = os.Stat(configPath)
	assert.True(t, os.IsNotExist(err))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(configPath), "lazytodo.db"))
}

func TestHTTPServerListensOnLoopback(t *testing.T) {
	log := zap.NewNop()
	a := &app{
		cfg:    config.Config{WebPort: 8123},
		log:    log,
		engine: engine.New(persist.NewAdapter(kv.NewMemory(), log)),
	}

	srv := newHTTPServer(a)
	assert.Equal(t, "127.0.0.1:8123", srv.Addr)
	assert.NotNil(t, srv.Handler)
}
