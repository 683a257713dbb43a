package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/storetrends/internal/assembler"
	"github.com/IshaanNene/storetrends/internal/config"
	"github.com/IshaanNene/storetrends/internal/region"
	"github.com/IshaanNene/storetrends/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testSnapshot(t *testing.T, code string, prices ...string) *Snapshot {
	t.Helper()
	r, ok := region.Lookup(code)
	require.True(t, ok)

	var listings []*types.Listing
	for i, price := range prices {
		l := types.NewListing(string(rune('a'+i)), "https://store.steampowered.com/app/1/")
		l.Title = "Game, with comma"
		l.Price = price
		l.Platforms = []string{"Windows", "Linux"}
		l.Rank = i + 1
		listings = append(listings, l)
	}

	now := func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }
	return NewSnapshot(assembler.New(now).Success(r, listings))
}

func TestNewSnapshotFromPayload(t *testing.T) {
	snap := testSnapshot(t, "jp", "¥ 1,200", "¥ 980", "¥ 500")

	assert.Equal(t, "jp", snap.Region.Code)
	assert.Equal(t, "2026-10-15T12:00:00.000Z", snap.Timestamp)
	assert.Contains(t, snap.Source, "Japan")
	require.Len(t, snap.Listings, 3)
	assert.Equal(t, len(snap.Listings), snap.Count)
	assert.Equal(t, "¥ 980", snap.Listings[1].Price)
	assert.Equal(t, Checksum(snap.Listings), snap.Checksum)
}

func TestChecksumTracksContentNotTime(t *testing.T) {
	a := testSnapshot(t, "us", "$1.00", "$2.00")
	b := testSnapshot(t, "us", "$1.00", "$2.00")
	c := testSnapshot(t, "us", "$1.00", "$2.50")

	assert.Len(t, a.Checksum, 16)
	assert.Equal(t, a.Checksum, b.Checksum)
	assert.NotEqual(t, a.Checksum, c.Checksum)
}

func TestJSONStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	s, err := NewJSONStorage(path, testLogger)
	require.NoError(t, err)

	require.NoError(t, s.Store([]*Snapshot{testSnapshot(t, "us", "$5.00")}))
	require.NoError(t, s.Store([]*Snapshot{testSnapshot(t, "jp", "¥ 500")}))
	require.NoError(t, s.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []Snapshot
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "jp", got[1].Region.Code)
	assert.Equal(t, "¥ 500", got[1].Listings[0].Price)
}

func TestJSONLStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")

	for _, code := range []string{"us", "de"} {
		s, err := NewJSONLStorage(path, testLogger)
		require.NoError(t, err)
		require.NoError(t, s.Store([]*Snapshot{testSnapshot(t, code, "1")}))
		require.NoError(t, s.Close())
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var codes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var snap Snapshot
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &snap))
		codes = append(codes, snap.Region.Code)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{"us", "de"}, codes)
}

func TestCSVStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	s, err := NewCSVStorage(path, testLogger)
	require.NoError(t, err)

	require.NoError(t, s.Store([]*Snapshot{testSnapshot(t, "uk", "£3.00", "£4.00")}))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvColumns, rows[0])

	col := func(name string) int {
		for i, c := range rows[0] {
			if c == name {
				return i
			}
		}
		t.Fatalf("missing column %s", name)
		return -1
	}
	assert.Equal(t, "uk", rows[1][col("region")])
	assert.Equal(t, "Game, with comma", rows[1][col("title")])
	assert.Equal(t, "£4.00", rows[2][col("price")])
	assert.Equal(t, "2", rows[2][col("rank")])
	assert.Equal(t, "Windows|Linux", rows[2][col("platforms")])
	assert.Equal(t, "", rows[2][col("original_price")])
}

func TestSnapshotDocument(t *testing.T) {
	doc := snapshotDocument(testSnapshot(t, "br", "R$10,00"))
	assert.Equal(t, "br", doc["region"])
	assert.Equal(t, 1, doc["count"])
	captured, ok := doc["captured_at"].(time.Time)
	require.True(t, ok)
	assert.True(t, captured.Equal(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)))
}

type recordingStorage struct {
	name   string
	stored int
	closed bool
	err    error
}

func (r *recordingStorage) Name() string { return r.name }

func (r *recordingStorage) Store(s []*Snapshot) error {
	r.stored += len(s)
	return r.err
}

func (r *recordingStorage) Close() error {
	r.closed = true
	return nil
}

func TestMultiStorageFansOut(t *testing.T) {
	failing := &recordingStorage{name: "a", err: errors.New("disk full")}
	ok := &recordingStorage{name: "b"}
	m := NewMultiStorage([]Storage{failing, ok}, testLogger)

	err := m.Store([]*Snapshot{testSnapshot(t, "us")})
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, 1, ok.stored, "later backends still receive snapshots")

	require.NoError(t, m.Close())
	assert.True(t, failing.closed)
	assert.True(t, ok.closed)
}

func TestNewSelectsBackend(t *testing.T) {
	dir := t.TempDir()

	s, err := New(config.StorageConfig{Type: "csv", OutputPath: filepath.Join(dir, "x.csv")}, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "csv", s.Name())
	require.NoError(t, s.Close())

	_, err = New(config.StorageConfig{Type: "parquet"}, testLogger)
	var serr *types.StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "parquet", serr.Backend)
}
