package testutil

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceGenerator_Sequence(t *testing.T) {
	gen := NewSequenceGenerator("run")

	assert.Equal(t, "run-1", gen.Generate())
	assert.Equal(t, "run-2", gen.Generate())
	assert.Equal(t, 2, gen.Issued())
}

func TestSequenceGenerator_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "tx-1", NewSequenceGenerator("").Generate())
}

func TestSequenceGenerator_Reset(t *testing.T) {
	gen := NewSequenceGenerator("tx")
	gen.Generate()
	gen.Generate()

	gen.Reset()

	assert.Equal(t, 0, gen.Issued())
	assert.Equal(t, "tx-1", gen.Generate())
}

func TestSequenceGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequenceGenerator("tx")

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				gen.Generate()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, gen.Issued())
}

func TestLogCapture_Entries(t *testing.T) {
	capture, logger := NewLogCapture()

	logger.Debug("phase failed", "phase", "filter")
	logger.Warn("dependency resolution failed", "attempts", 2)

	entries := capture.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "DEBUG", entries[0].Level)
	assert.Equal(t, "phase failed", entries[0].Message)
	assert.Equal(t, "filter", entries[0].Attrs["phase"])
	assert.Equal(t, float64(2), entries[1].Attrs["attempts"])
	assert.NotContains(t, entries[1].Attrs, "time")
}

func TestLogCapture_MessagesByLevel(t *testing.T) {
	capture, logger := NewLogCapture()

	logger.Debug("one")
	logger.Info("two")
	logger.Warn("three")

	assert.Equal(t, []string{"one", "two", "three"}, capture.Messages(slog.LevelDebug))
	assert.Equal(t, []string{"three"}, capture.Messages(slog.LevelWarn))
	assert.True(t, capture.Has("two"))
	assert.False(t, capture.Has("four"))
}
