package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogActionWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	require.NoError(t, err)
	defer logger.Close()

	ctx := context.Background()
	logger.LogAction(ctx, "setServoAngle", 3, "SUCCESS", 1500*time.Microsecond)
	logger.LogActionParams(ctx, "emergencyStop", -1, "TRIPPED", 200*time.Microsecond, map[string]interface{}{
		"source": "watchdog-timeout",
	})

	require.NoError(t, logger.Close())

	file, err := os.Open(logger.Path())
	require.NoError(t, err)
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, entries, 2)

	assert.Equal(t, "setServoAngle", entries[0].Action)
	assert.Equal(t, 3, entries[0].Channel)
	assert.Equal(t, "SUCCESS", entries[0].Outcome)
	assert.InDelta(t, 1.5, entries[0].LatencyMs, 0.01)
	assert.NotEmpty(t, entries[0].ID)

	assert.Equal(t, "emergencyStop", entries[1].Action)
	assert.Equal(t, -1, entries[1].Channel)
	assert.Equal(t, "watchdog-timeout", entries[1].Params["source"])
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestLogAfterCloseIsSwallowed(t *testing.T) {
	logger, err := NewLogger(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, logger.Close())

	// Must not panic or error.
	logger.LogAction(context.Background(), "setServoAngle", 0, "SUCCESS", time.Millisecond)
	assert.NoError(t, logger.Close(), "close is idempotent")
}
