package types

import (
	"bytes"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Response is a fetched search page, body already decompressed.
type Response struct {
	Request    *Request
	StatusCode int
	Header     http.Header
	Body       []byte

	// FinalURL is where the page was served from after redirects.
	FinalURL string

	// Backend names the fetcher that produced the page ("http" or "browser").
	Backend string

	Elapsed   time.Duration
	FetchedAt time.Time

	doc *goquery.Document
}

// NewResponse wraps a fetched body for req. FinalURL defaults to the request URL.
func NewResponse(req *Request, backend string, status int, body []byte, elapsed time.Duration) *Response {
	return &Response{
		Request:    req,
		StatusCode: status,
		Header:     make(http.Header),
		Body:       body,
		FinalURL:   req.URLString(),
		Backend:    backend,
		Elapsed:    elapsed,
		FetchedAt:  time.Now(),
	}
}

// Region returns the region code the page was fetched for.
func (r *Response) Region() string {
	if r.Request == nil {
		return ""
	}
	return r.Request.Region
}

// Document parses the body once and caches the tree.
// A page without any markup still parses into an empty document.
func (r *Response) Document() (*goquery.Document, error) {
	if r.doc != nil {
		return r.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, err
	}
	r.doc = doc
	return doc, nil
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
