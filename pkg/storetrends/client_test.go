package storetrends

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientTop(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cc := r.URL.Query().Get("cc")
		fmt.Fprintf(w, `<html><body>
<a href="/app/1/" data-ds-appid="1" class="search_result_row"><span class="title">Game in %s</span>
  <div class="search_price_discount_combined"><div class="discount_final_price">9.99</div></div>
</a></body></html>`, cc)
	}))
	defer ts.Close()

	c, err := NewClient(WithSearchURL(ts.URL+"/search/"), WithMaxListings(5))
	require.NoError(t, err)
	defer c.Close()

	res, err := c.Top(context.Background(), "KR")
	require.NoError(t, err)
	require.Len(t, res.Games, 1)
	assert.Equal(t, "Game in kr", res.Games[0].Title)
	assert.Equal(t, "9.99", res.Games[0].Price)

	many, err := c.TopMany(context.Background(), "us", "jp")
	require.NoError(t, err)
	assert.Equal(t, "jp", many[1].Region.Code)

	assert.Equal(t, int64(3), c.Stats()["queries_total"])
	assert.Len(t, c.Regions(), 58)
}

func TestClientInvalidRegion(t *testing.T) {
	c, err := NewClient()
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Top(context.Background(), "moon")
	var invalid *InvalidRegionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "moon", invalid.Code)
}

func TestNewClientRejectsBadOptions(t *testing.T) {
	_, err := NewClient(WithMaxListings(50))
	assert.Error(t, err)
}
