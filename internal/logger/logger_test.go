package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	log, closer, err := New("debug", path)
	require.NoError(t, err)

	log.WithField("chapter", 3).Debug("extracted")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "extracted")
	assert.Contains(t, string(data), "chapter=3")
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	log, closer, err := New("chatty", "")
	require.NoError(t, err)
	defer closer.Close()
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNewBadFile(t *testing.T) {
	_, _, err := New("info", filepath.Join(t.TempDir(), "missing", "run.log"))
	assert.Error(t, err)
}
