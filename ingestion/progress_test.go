package ingestion

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 4, 2)
	tracker.Start()

	tracker.Increment(1)
	assert.Empty(t, buf.String(), "below the interval")

	tracker.Increment(1)
	assert.Contains(t, buf.String(), "Ingesting: 2/4 files (50.0%)")

	tracker.Increment(10)
	assert.Contains(t, buf.String(), "4/4 files (100.0%)", "capped at total")

	tracker.Finish()
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	assert.Greater(t, tracker.Elapsed(), time.Duration(0))
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 1)

	tracker.Increment(3)
	tracker.Finish()

	assert.Empty(t, buf.String())
	assert.Equal(t, time.Duration(0), tracker.Elapsed())
}

func TestProgressTracker_UnitAndZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 0, 0)
	tracker.SetLabel("Indexing", "chunks")
	tracker.Start()
	tracker.Finish()

	assert.Contains(t, buf.String(), "Indexing: 0/0 chunks (100.0%)")
	assert.Contains(t, buf.String(), "chunks/s")
}
