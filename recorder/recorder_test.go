package recorder

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/rl-abstraction/types"
)

func TestFileRecorder(t *testing.T) {
	r := NewFileRecorder(t.TempDir())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Record(ctx, "RMax-l1", types.EpisodeRecord{Experiment: "RMax-l1", Episode: i, Reward: -0.5}))
	}

	bs, err := os.ReadFile(r.Path("RMax-l1"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(bs)), "\n")
	require.Len(t, lines, 3)

	var record types.EpisodeRecord
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &record))
	assert.Equal(t, 2, record.Episode)
	assert.Equal(t, -0.5, record.Reward)
}

func TestFileRecorderEncodingError(t *testing.T) {
	r := NewFileRecorder(t.TempDir())
	assert.Error(t, r.Record(context.Background(), "bad", make(chan int)))
}

func TestRedisRecorderKey(t *testing.T) {
	assert.Equal(t, "runs:RMax", NewRedisRecorder("127.0.0.1:6379", "runs").Key("RMax"))
	assert.Equal(t, "RMax", NewRedisRecorder("127.0.0.1:6379", "").Key("RMax"))
}

func TestRedisRecorderUnreachable(t *testing.T) {
	// nothing listens on port 1
	r := NewRedisRecorder("127.0.0.1:1", "runs")
	defer r.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, r.Ping(ctx))
	assert.Error(t, r.Record(ctx, "RMax", types.EpisodeRecord{}))
}
