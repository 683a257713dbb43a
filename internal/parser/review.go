package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/storetrends/internal/types"
)

var (
	sentimentPattern   = regexp.MustCompile(`^([^<]+)`)
	reviewCountPattern = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})*)\s+user\s+reviews?`)
)

// applyReview reads the review summary tooltip, falling back to its visible text.
func applyReview(l *types.Listing, row *goquery.Selection) {
	if tooltip, ok := row.Find(".search_review_summary").First().Attr("data-tooltip-html"); ok {
		sentiment, count := parseTooltip(tooltip)
		l.ReviewSentiment = sentiment
		l.ReviewCount = count
	}

	if l.ReviewSentiment == nil {
		if text := strings.TrimSpace(row.Find(".search_review_summary span, .review_summary").Text()); text != "" {
			l.ReviewSentiment = &text
		}
	}
}

// parseTooltip splits a tooltip like "Very Positive<br>95% of the 2,767 user reviews..."
// into its sentiment label and review count.
func parseTooltip(tooltip string) (sentiment *string, count *int) {
	if m := sentimentPattern.FindStringSubmatch(tooltip); m != nil {
		if s := strings.TrimSpace(m[1]); s != "" {
			sentiment = &s
		}
	}
	if m := reviewCountPattern.FindStringSubmatch(tooltip); m != nil {
		if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
			count = &n
		}
	}
	return sentiment, count
}
