package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillchat/quill/internal/discord"
)

func TestStore_OpenMissingFile(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "quill.env"))

	require.NoError(t, err)
	assert.Empty(t, s.Token())
	assert.Nil(t, s.GuildPositions())
}

func TestStore_TokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quill.env")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetToken("tok-1"))
	assert.Equal(t, "tok-1", s.Token())

	// A fresh store reads the value back from disk.
	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", reopened.Token())
}

func TestStore_GuildPositionsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quill.env")

	s, err := Open(path)
	require.NoError(t, err)
	positions := []discord.Snowflake{200, 201, 202}
	require.NoError(t, s.SetGuildPositions(positions))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, positions, reopened.GuildPositions())
}

func TestStore_GuildPositionsSkipsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quill.env")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetToken("tok-1"))

	// Corrupt entries are skipped, valid ones survive.
	require.NoError(t, s.set("GUILD_POSITIONS", "200, junk, ,201"))
	assert.Equal(t, []discord.Snowflake{200, 201}, s.GuildPositions())
}

func TestStore_UpdatesPreserveOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quill.env")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetToken("tok-1"))
	require.NoError(t, s.SetGuildPositions([]discord.Snowflake{200}))
	require.NoError(t, s.SetToken("tok-2"))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", reopened.Token())
	assert.Equal(t, []discord.Snowflake{200}, reopened.GuildPositions())
}
