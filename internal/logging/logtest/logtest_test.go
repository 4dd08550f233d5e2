package logtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewObserved(t *testing.T) {
	logger, logs := NewObserved()
	logger.Debug("bootstrap", zap.String("dir", "/tmp/playground"))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "/tmp/playground", logs.All()[0].ContextMap()["dir"])
}
