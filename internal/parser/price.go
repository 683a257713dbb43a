package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/storetrends/internal/types"
)

const (
	priceContainerSelector = ".search_price_discount_combined, .col.search_price"
	freeMarkerSelector     = ".discount_final_price.free, .free"
)

// pricePatterns recognize a display price in free text, in priority order.
var pricePatterns = func() []*regexp.Regexp {
	const amount = `[\d,]+\.?\d*`
	symbols := []string{`\$`, `€`, `£`, `¥`, `฿`, `₹`, `₩`, `₺`, `R\$`, `CDN\$`, `AUD`, `Mex\$`, `pуб`}

	patterns := make([]*regexp.Regexp, 0, len(symbols)+1)
	for _, s := range symbols {
		patterns = append(patterns, regexp.MustCompile(s+`\s*`+amount))
	}
	patterns = append(patterns,
		regexp.MustCompile(amount+`\s*(?:USD|EUR|GBP|THB|JPY|KRW|INR|TRY|BRL|CAD|AUD|MXN|RUB)`),
		regexp.MustCompile(amount+`\s*(?:€|pуб\.?)`),
	)
	return patterns
}()

// applyPrice fills the price fields of l from the row's price container.
func applyPrice(l *types.Listing, row *goquery.Selection) {
	box := row.Find(priceContainerSelector).First()
	if box.Length() == 0 {
		return
	}

	if box.Find(freeMarkerSelector).Length() > 0 {
		l.MarkFree()
		return
	}

	if pct := strings.TrimSpace(box.Find(".discount_pct").First().Text()); pct != "" {
		l.DiscountPercent = &pct
	}
	if orig := strings.TrimSpace(box.Find(".discount_original_price").First().Text()); orig != "" {
		l.OriginalPrice = &orig
	}
	if final := box.Find(".discount_final_price").First(); final.Length() > 0 && !final.HasClass("free") {
		if text := strings.TrimSpace(final.Text()); text != "" {
			l.Price = text
		}
	}
	if l.Price != types.UnknownPrice {
		return
	}

	text := strings.TrimSpace(box.Text())
	prices := scanPrices(text)
	switch {
	case len(prices) > 0:
		l.Price = prices[len(prices)-1]
		if len(prices) > 1 && l.OriginalPrice == nil {
			first := prices[0]
			l.OriginalPrice = &first
		}
	case strings.Contains(strings.ToLower(text), "free"):
		l.MarkFree()
	}
}

type priceMatch struct {
	start, end int
	priority   int
}

// scanPrices returns every price found in text ordered by position.
// A match overlapping an earlier (or, at the same offset, longer) match is dropped.
func scanPrices(text string) []string {
	var matches []priceMatch
	for i, re := range pricePatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			matches = append(matches, priceMatch{start: loc[0], end: loc[1], priority: i})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.start != b.start {
			return a.start < b.start
		}
		if la, lb := a.end-a.start, b.end-b.start; la != lb {
			return la > lb
		}
		return a.priority < b.priority
	})

	var (
		prices []string
		kept   []priceMatch
	)
	for _, m := range matches {
		if overlapsAny(m, kept) {
			continue
		}
		kept = append(kept, m)
		prices = append(prices, text[m.start:m.end])
	}
	return prices
}

func overlapsAny(m priceMatch, kept []priceMatch) bool {
	for _, k := range kept {
		if m.start < k.end && k.start < m.end {
			return true
		}
	}
	return false
}
