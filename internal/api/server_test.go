package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/storetrends/internal/assembler"
	"github.com/IshaanNene/storetrends/internal/config"
	"github.com/IshaanNene/storetrends/internal/observability"
	"github.com/IshaanNene/storetrends/internal/region"
	"github.com/IshaanNene/storetrends/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeQuerier resolves regions for real and returns a canned listing or error.
type fakeQuerier struct {
	err   error
	codes []string
}

func (f *fakeQuerier) Top(ctx context.Context, code string) (*assembler.Success, error) {
	f.codes = append(f.codes, code)
	r, err := region.Resolve(code)
	if err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	l := types.NewListing("1", "https://store.steampowered.com/app/1/")
	l.Title = "One"
	l.Rank = 1
	return assembler.New(nil).Success(r, []*types.Listing{l}), nil
}

func newTestServer(q Querier) *httptest.Server {
	cfg := config.DefaultConfig()
	metrics := observability.NewMetrics(testLogger)
	s := NewServer(cfg, q, assembler.New(nil), metrics, testLogger)
	return httptest.NewServer(s.Handler())
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestTopListingsSuccess(t *testing.T) {
	q := &fakeQuerier{}
	ts := newTestServer(q)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/top-listings?region=FR")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	body := decode(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, "fr", body["region"].(map[string]any)["code"])
	assert.Equal(t, []string{"FR"}, q.codes)
}

func TestLegacyRouteAndDefaultRegion(t *testing.T) {
	ts := newTestServer(&fakeQuerier{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/steam-top-games")
	require.NoError(t, err)
	body := decode(t, resp)
	assert.Equal(t, "us", body["region"].(map[string]any)["code"])
}

func TestTopListingsInvalidRegion(t *testing.T) {
	ts := newTestServer(&fakeQuerier{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/top-listings?region=atlantis")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, "Invalid region", body["error"])
	assert.Contains(t, body["message"], "atlantis")
	assert.Len(t, body["availableRegions"], len(region.Codes()))
}

func TestTopListingsFetchFailure(t *testing.T) {
	q := &fakeQuerier{err: &types.FetchError{URL: "u", StatusCode: 429, Err: errors.New("HTTP error! status: 429")}}
	ts := newTestServer(q)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/top-listings?region=us")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to fetch Steam data", body["error"])
	assert.Contains(t, body["message"], "status: 429")
	assert.NotContains(t, body, "games")
}

func TestNonGetRejected(t *testing.T) {
	ts := newTestServer(&fakeQuerier{})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/top-listings", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodGet, resp.Header.Get("Allow"))
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	body := decode(t, resp)
	assert.Equal(t, "Method not allowed", body["error"])
}

func TestRegionsAndHealth(t *testing.T) {
	ts := newTestServer(&fakeQuerier{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/regions")
	require.NoError(t, err)
	body := decode(t, resp)
	assert.Equal(t, "us", body["default"])
	regions := body["regions"].([]any)
	require.Len(t, regions, len(region.All()))
	assert.Equal(t, "us", regions[0].(map[string]any)["code"])

	resp, err = http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	assert.Equal(t, "ok", decode(t, resp)["status"])
}

func TestMetricsRoute(t *testing.T) {
	ts := newTestServer(&fakeQuerier{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
}

func TestRequestIDPropagates(t *testing.T) {
	ts := newTestServer(&fakeQuerier{})
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/health", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}
