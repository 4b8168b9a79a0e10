package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBoardConfigDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewBoardConfigHolder(Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, []string{"TODO", "IN_PROGRESS", "IN_REVIEW", "DONE"}, cfg.Statuses)
	assert.Equal(t, "MEDIUM", cfg.DefaultPriority)
	assert.Equal(t, 5, cfg.InsertRetries)
	assert.Equal(t, 1, cfg.StatusRank("IN_PROGRESS"))
	assert.Equal(t, -1, cfg.StatusRank("BLOCKED"))
}

func TestBoardConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yml")
	content := `board:
  statuses: [backlog, doing, done]
  priorities: [low, high]
  defaultPriority: low
  projectKey:
    minLength: 3
    maxLength: 6
  insertRetries: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	holder, err := NewBoardConfigHolder(Config{BoardConfigFile: path}, zaptest.NewLogger(t))
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, []string{"BACKLOG", "DOING", "DONE"}, cfg.Statuses)
	assert.Equal(t, "BACKLOG", cfg.DefaultStatus())
	assert.True(t, cfg.HasPriority("HIGH"))
	assert.False(t, cfg.HasPriority("CRITICAL"))
	assert.Equal(t, KeyLengthRange{MinLength: 3, MaxLength: 6}, cfg.ProjectKey)
	assert.Equal(t, 2, cfg.InsertRetries)
}

func TestBoardConfigRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yml")
	content := `board:
  statuses: [todo, todo]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := NewBoardConfigHolder(Config{BoardConfigFile: path}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
