package assembler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/storetrends/internal/region"
	"github.com/IshaanNene/storetrends/internal/types"
)

var fixedNow = func() time.Time {
	return time.Date(2026, 10, 15, 9, 30, 0, 123_000_000, time.FixedZone("CEST", 2*3600))
}

func TestSuccessPayload(t *testing.T) {
	de, ok := region.Lookup("de")
	require.True(t, ok)

	l := types.NewListing("1001", "https://store.steampowered.com/app/1001/")
	l.Title = "Alpha"
	l.Rank = 1

	p := New(fixedNow).Success(de, []*types.Listing{l})

	assert.True(t, p.Success)
	assert.Equal(t, 1, p.Count)
	assert.Equal(t, "2026-10-15T07:30:00.123Z", p.Timestamp)
	assert.Equal(t, RegionInfo{Code: "de", Name: de.Name, Currency: de.Currency}, p.Region)
	assert.Equal(t, fmt.Sprintf("Steam Store - Popular New Releases (%s)", de.Name), p.Source)
	require.Len(t, p.AvailableRegions, len(region.All()))
	assert.Equal(t, "us", p.AvailableRegions[0].Code)
}

func TestSuccessPayloadJSONShape(t *testing.T) {
	us, _ := region.Lookup("us")
	p := New(fixedNow).Success(us, nil)

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, true, decoded["success"])
	assert.Equal(t, float64(0), decoded["count"])
	assert.Equal(t, []any{}, decoded["games"], "games must encode as an empty array")
	for _, key := range []string{"timestamp", "region", "source", "availableRegions"} {
		assert.Contains(t, decoded, key)
	}
}

func TestListingJSONFieldNames(t *testing.T) {
	us, _ := region.Lookup("us")
	l := types.NewListing("7", "https://store.steampowered.com/app/7/")
	l.Title = "Seven"
	l.Rank = 1

	raw, err := json.Marshal(New(fixedNow).Success(us, []*types.Listing{l}))
	require.NoError(t, err)

	var decoded struct {
		Games []map[string]any `json:"games"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Games, 1)

	game := decoded.Games[0]
	for _, key := range []string{
		"id", "title", "price", "originalPrice", "discountPercent", "isFree", "releaseDate",
		"platforms", "imageUrl", "reviewSentiment", "reviewCount", "steamUrl", "rank",
	} {
		assert.Contains(t, game, key)
	}
	assert.Nil(t, game["originalPrice"])
	assert.Nil(t, game["reviewCount"])
	assert.Equal(t, "Unknown", game["price"])
}

func TestErrorInvalidRegion(t *testing.T) {
	_, err := region.Resolve("xx")
	require.Error(t, err)

	status, payload := New(nil).Error(fmt.Errorf("resolve: %w", err))
	assert.Equal(t, http.StatusBadRequest, status)

	p, ok := payload.(*InvalidRegion)
	require.True(t, ok)
	assert.Equal(t, LabelInvalidRegion, p.Error)
	assert.Equal(t, region.Codes(), p.AvailableRegions)
	assert.Contains(t, p.Message, "'xx'")
}

func TestErrorFetchFailure(t *testing.T) {
	err := &types.FetchError{URL: "https://store.example/search", StatusCode: 503, Err: errors.New("HTTP error! status: 503")}

	status, payload := New(nil).Error(err)
	assert.Equal(t, http.StatusInternalServerError, status)

	p, ok := payload.(*Failure)
	require.True(t, ok)
	assert.False(t, p.Success)
	assert.Equal(t, LabelFetchFailed, p.Error)
	assert.Contains(t, p.Message, "status: 503")
}

func TestZeroAssemblerUsesWallClock(t *testing.T) {
	var a *Assembler
	us, _ := region.Lookup("us")

	p := a.Success(us, nil)
	ts, err := time.Parse(TimestampLayout, p.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}
