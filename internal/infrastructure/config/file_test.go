package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

func TestLoadFile_MissingReturnsFallback(t *testing.T) {
	fallback := Defaults(t.TempDir())
	got, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), fallback)
	require.NoError(t, err)
	assert.Equal(t, fallback, got)
}

func TestLoadFile_KeepsFallbackForOmittedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discordlink.yaml")
	raw := "bot_token: abc\nchat_channel_links:\n  - discord_guild: MyGuild\n    discord_channel: My Channel\n    eco_channel: General\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	got, err := LoadFile(path, Defaults("/srv/eco"))
	require.NoError(t, err)
	assert.Equal(t, "abc", got.BotToken)
	assert.Equal(t, DefaultCommandPrefix, got.CommandPrefix)
	require.Len(t, got.ChatChannelLinks, 1)
	assert.Equal(t, "My Channel", got.ChatChannelLinks[0].DiscordChannel)
}

func TestLoadFile_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chat_channel_links: [oops"), 0o600))
	_, err := LoadFile(path, Data{})
	assert.Error(t, err)
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "discordlink.yaml")
	d := Defaults("/srv/eco")
	d.AccountLinkRole = domain.RoleTarget{DiscordGuild: "G", Role: "Linked"}
	d.StatusChannels = []domain.StatusChannel{domain.NewStatusChannel("G", "status")}

	require.NoError(t, WriteFile(path, d))
	got, err := LoadFile(path, Data{})
	require.NoError(t, err)
	assert.Equal(t, d, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}
