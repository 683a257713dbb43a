package parser

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/storetrends/internal/pipeline"
	"github.com/IshaanNene/storetrends/internal/types"
)

// MaxListings is the hard cap on listings returned for one page.
const MaxListings = 30

// DefaultBaseURL is the storefront origin relative detail links are resolved against.
const DefaultBaseURL = "https://store.steampowered.com"

// rowSelector matches one search result row.
const rowSelector = "a[data-ds-appid], .search_result_row"

var detailPattern = regexp.MustCompile(`/app/(\d+)`)

// Strategy names the extraction strategy that produced a result.
type Strategy string

const (
	StrategyPrimary  Strategy = "primary"
	StrategyFallback Strategy = "fallback"
)

// Result is the outcome of extracting one page.
type Result struct {
	Strategy Strategy
	Listings []*types.Listing
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxListings lowers the per-page cap. Values outside 1..MaxListings are ignored.
func WithMaxListings(n int) Option {
	return func(e *Extractor) {
		if n > 0 && n <= MaxListings {
			e.max = n
		}
	}
}

// WithPipeline replaces the default listing clean-up chain.
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(e *Extractor) { e.pipeline = p }
}

// WithBaseURL sets the origin relative detail links are resolved against.
func WithBaseURL(base string) Option {
	return func(e *Extractor) {
		if u, err := url.Parse(base); err == nil && u.Host != "" {
			e.base = &url.URL{Scheme: u.Scheme, Host: u.Host}
		}
	}
}

// Extractor turns a search results page into ranked listings. It is stateless
// between calls and safe for concurrent use.
type Extractor struct {
	max      int
	base     *url.URL
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

// New creates an Extractor.
func New(logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		max:    MaxListings,
		logger: logger.With("component", "extractor"),
	}
	WithBaseURL(DefaultBaseURL)(e)
	for _, opt := range opts {
		opt(e)
	}
	if e.pipeline == nil {
		e.pipeline = pipeline.Default(logger, e.base.String())
	}
	return e
}

// Extract parses the response body and extracts listings from it.
func (e *Extractor) Extract(resp *types.Response) (*Result, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{URL: resp.Request.URLString(), Err: err}
	}
	return e.ExtractDocument(doc), nil
}

// ExtractDocument runs the primary row strategy and, when it yields nothing,
// the fallback link scan. An empty result is not an error.
func (e *Extractor) ExtractDocument(doc *goquery.Document) *Result {
	listings := e.extractRows(doc)
	if len(listings) > 0 {
		e.logger.Debug("rows extracted", "strategy", StrategyPrimary, "records", len(listings))
		return &Result{Strategy: StrategyPrimary, Listings: listings}
	}

	listings = e.extractLinks(doc)
	e.logger.Warn("no result rows matched, used link scan", "strategy", StrategyFallback, "records", len(listings))
	return &Result{Strategy: StrategyFallback, Listings: listings}
}

func (e *Extractor) extractRows(doc *goquery.Document) []*types.Listing {
	listings := make([]*types.Listing, 0, e.max)

	doc.Find(rowSelector).EachWithBreak(func(i int, row *goquery.Selection) bool {
		href, ok := row.Attr("href")
		if !ok || href == "" {
			href = row.Find("a[href]").First().AttrOr("href", "")
		}

		id, ok := detailID(href)
		if !ok {
			e.logger.Debug("row skipped", "index", i, "reason", "no detail link")
			return true
		}

		title := firstText(row, titleSelectors)
		if title == "" {
			e.logger.Debug("row skipped", "index", i, "id", id, "reason", "no title")
			return true
		}

		l := types.NewListing(id, e.absolute(href))
		l.Title = title
		l.ImageURL = resolveImage(row)
		applyPrice(l, row)
		if date := firstText(row, releaseDateSelectors); date != "" {
			l.ReleaseDate = date
		}
		l.Platforms = resolvePlatforms(row)
		applyReview(l, row)

		if e.accept(&listings, l) {
			return len(listings) < e.max
		}
		return true
	})

	return listings
}

// accept runs l through the pipeline and appends it with the next rank.
func (e *Extractor) accept(listings *[]*types.Listing, l *types.Listing) bool {
	out, err := e.pipeline.Process(l)
	if err != nil {
		e.logger.Warn("listing rejected by pipeline", "id", l.ID, "error", err)
		return false
	}
	if out == nil {
		return false
	}
	out.Rank = len(*listings) + 1
	*listings = append(*listings, out)
	return true
}

// absolute returns href unchanged when it is already absolute, else resolves it against the base origin.
func (e *Extractor) absolute(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return e.base.String() + href
	}
	return e.base.ResolveReference(ref).String()
}

// detailID reports the numeric id in a detail link.
func detailID(href string) (string, bool) {
	if !strings.Contains(href, "/app/") {
		return "", false
	}
	m := detailPattern.FindStringSubmatch(href)
	if m == nil {
		return "", false
	}
	return m[1], true
}
