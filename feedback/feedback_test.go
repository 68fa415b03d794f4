package feedback_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/mindcraft-go/feedback"
)

func sample() feedback.Record {
	return feedback.Record{
		World:       "TheAgeOfSigmur",
		Character:   "Zombie Leader",
		Mood:        "angry",
		Interaction: "Who are you?",
		Answer:      "Your worst nightmare.",
	}
}

func TestRecord_Text(t *testing.T) {
	assert.Equal(t, "Who are you?||Your worst nightmare.", sample().Text())
}

func TestFileRecorder_AppendsJSONLines(t *testing.T) {
	rec, err := feedback.NewFileRecorder(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, rec.Record(ctx, sample()))
	second := sample()
	second.Answer = "Go away."
	require.NoError(t, rec.Record(ctx, second))
	require.NoError(t, rec.Close())

	f, err := os.Open(rec.Path("Zombie Leader"))
	require.NoError(t, err)
	defer f.Close()

	var got []feedback.Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r feedback.Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))
		got = append(got, r)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].ID)
	assert.NotEqual(t, got[0].ID, got[1].ID)
	assert.False(t, got[0].Time.IsZero())
	assert.Equal(t, "Go away.", got[1].Answer)
	assert.Contains(t, rec.Path("Zombie Leader"), "Zombie_Leader.jsonl")
}

func TestRedisRecorder_AppendsToStream(t *testing.T) {
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer client.Close()

	rec := feedback.NewRedisRecorderWithClient(client, "", feedback.WithMaxLen(1000))
	require.NoError(t, rec.Record(context.Background(), sample()))
	require.NoError(t, rec.Close())

	entries, err := client.XRange(context.Background(), feedback.DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Zombie Leader", entries[0].Values["character"])
	assert.Equal(t, "Who are you?||Your worst nightmare.", entries[0].Values["text"])
}

func TestNewRedisRecorder_ConnectsAndOwnsClient(t *testing.T) {
	m := miniredis.RunT(t)
	ctx := context.Background()

	rec, err := feedback.NewRedisRecorder(ctx, m.Addr(), "custom")
	require.NoError(t, err)
	require.NoError(t, rec.Record(ctx, sample()))
	require.NoError(t, rec.Close())

	entries, err := m.Stream("custom")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	addr := m.Addr()
	m.Close()
	_, err = feedback.NewRedisRecorder(ctx, addr, "custom")
	assert.Error(t, err)
}
