package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToConfiguredPath(t *testing.T) {
	out := filepath.Join(t.TempDir(), "app.log")
	logger, err := New(config.LogConfig{Level: "debug", Encoding: "json", OutputPaths: []string{out}})
	require.NoError(t, err)

	logger.Debug("order placed")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"order placed"`)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.ErrorContains(t, err, "invalid log level")
}
