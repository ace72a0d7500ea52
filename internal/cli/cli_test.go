package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DISCORD_BOT_TOKEN", "")
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "discordlink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestVerify_CleanConfig(t *testing.T) {
	path := writeConfig(t, "bot_token: abc\n")

	out, err := execute(t, "verify", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Static configuration verification completed without errors")
}

func TestVerify_ReportsErrors(t *testing.T) {
	path := writeConfig(t, "bot_token: ''\neco_command_channel: '#general'\n")

	out, err := execute(t, "verify", "--config", path)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, out, "[Bot Token]")
	assert.Contains(t, out, "[Eco Command Channel]")
}

func TestNormalize_CorrectsThenSettles(t *testing.T) {
	path := writeConfig(t, "bot_token: abc\nchat_channel_links:\n  - discord_guild: Village\n    discord_channel: Eco Chat\n    eco_channel: General\n")

	out, err := execute(t, "normalize", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "configuration corrected")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "discord_channel: eco-chat")

	out, err = execute(t, "normalize", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "configuration already normalized")
}

func TestNormalize_WritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "discordlink.yaml")

	out, err := execute(t, "normalize", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote default configuration")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "eco_command_channel: General")
}
