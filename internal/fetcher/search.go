package fetcher

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/IshaanNene/storetrends/internal/region"
	"github.com/IshaanNene/storetrends/internal/types"
)

// Search parameters for the "popular new releases" listing, newest first,
// restricted to Windows titles. Parameter order is fixed.
const searchQuery = "filter=popularnew&sort_by=Released_DESC&os=win"

// SearchURL returns the region-parameterized search URL for base.
func SearchURL(base string, r region.Region) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + searchQuery + "&cc=" + url.QueryEscape(r.Code)
}

// RegionHeaders returns the browser-identifying header block plus hints that
// bias the storefront's geolocation and currency logic toward r.
func RegionHeaders(r region.Region, userAgent string) http.Header {
	h := make(http.Header)
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	h.Set("Sec-Ch-Ua", `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`)
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Connection", "keep-alive")
	h.Set("DNT", "1")

	h.Set("CF-IPCountry", strings.ToUpper(r.Code))
	h.Set("X-Forwarded-For", "8.8.8.8")
	h.Set("X-Real-IP", "8.8.8.8")
	return h
}

// NewSearchRequest builds the single outbound request for region r.
func NewSearchRequest(base string, r region.Region, userAgent string) (*types.Request, error) {
	req, err := types.NewRequest(SearchURL(base, r))
	if err != nil {
		return nil, err
	}
	req.Region = r.Code
	req.Headers = RegionHeaders(r, userAgent)
	return req, nil
}
