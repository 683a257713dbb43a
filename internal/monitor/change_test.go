package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/storetrends/internal/assembler"
	"github.com/IshaanNene/storetrends/internal/region"
	"github.com/IshaanNene/storetrends/internal/storage"
	"github.com/IshaanNene/storetrends/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// chart builds a snapshot from "id:price" pairs in rank order.
func chart(t *testing.T, entries ...[2]string) *storage.Snapshot {
	t.Helper()
	us, ok := region.Lookup("us")
	require.True(t, ok)

	var listings []*types.Listing
	for i, e := range entries {
		l := types.NewListing(e[0], "https://store.steampowered.com/app/"+e[0]+"/")
		l.Title = "Game " + e[0]
		l.Price = e[1]
		l.Rank = i + 1
		listings = append(listings, l)
	}
	return storage.NewSnapshot(assembler.New(nil).Success(us, listings))
}

func TestDiff(t *testing.T) {
	old := chart(t, [2]string{"1", "$10"}, [2]string{"2", "$20"}, [2]string{"3", "$30"})
	cur := chart(t, [2]string{"2", "$15"}, [2]string{"1", "$10"}, [2]string{"4", "$40"})

	changes := Diff(old, cur)

	type key struct {
		id  string
		typ ChangeType
	}
	got := make(map[key]Change)
	for _, c := range changes {
		got[key{c.ID, c.Type}] = c
	}
	require.Len(t, changes, 5)

	assert.Equal(t, 2, got[key{"2", ChangeMoved}].OldRank)
	assert.Equal(t, 1, got[key{"2", ChangeMoved}].NewRank)
	assert.Equal(t, "$20", got[key{"2", ChangePrice}].OldValue)
	assert.Equal(t, "$15", got[key{"2", ChangePrice}].NewValue)
	assert.Equal(t, 2, got[key{"1", ChangeMoved}].NewRank)
	assert.Contains(t, got, key{"4", ChangeEntered})
	assert.Equal(t, 3, got[key{"3", ChangeLeft}].OldRank)
	assert.Equal(t, ChangeLeft, changes[len(changes)-1].Type)
}

func TestChangeDetectorBaselineThenDiff(t *testing.T) {
	cd, err := NewChangeDetector(t.TempDir(), testLogger)
	require.NoError(t, err)

	first := chart(t, [2]string{"1", "$10"})
	changes, err := cd.Detect(first)
	require.NoError(t, err)
	assert.Empty(t, changes, "first snapshot is the baseline")

	changes, err = cd.Detect(chart(t, [2]string{"1", "$10"}))
	require.NoError(t, err)
	assert.Empty(t, changes, "identical chart")

	changes, err = cd.Detect(chart(t, [2]string{"1", "$8"}))
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangePrice, changes[0].Type)

	changes, err = cd.Detect(chart(t, [2]string{"1", "$8"}))
	require.NoError(t, err)
	assert.Empty(t, changes, "baseline advances after each detection")
}

func TestSchedulerRunsImmediatelyAndStops(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(time.Hour, testLogger)
	s.Start(context.Background(), func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()
	assert.Equal(t, int32(1), runs.Load())
}

func TestWebhookChannel(t *testing.T) {
	var received struct {
		Count   int      `json:"count"`
		Changes []Change `json:"changes"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	n := NewNotifier(testLogger)
	n.AddChannel(&LogChannel{Logger: testLogger})
	n.AddChannel(&WebhookChannel{URL: ts.URL})
	n.Notify(context.Background(), []Change{{Region: "us", ID: "1", Type: ChangeEntered, NewRank: 1}})

	assert.Equal(t, 1, received.Count)
	require.Len(t, received.Changes, 1)
	assert.Equal(t, ChangeEntered, received.Changes[0].Type)
}

func TestWebhookChannelStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	err := (&WebhookChannel{URL: ts.URL}).Send(context.Background(), []Change{{ID: "1"}})
	assert.ErrorContains(t, err, "502")
}
