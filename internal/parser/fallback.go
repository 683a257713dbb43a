package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/storetrends/internal/types"
)

const detailLinkXPath = `//a[contains(@href, '/app/')]`

// extractLinks scans the first detail links on the page when no result rows matched.
// Listings carry only an id, a title and the detail URL; everything else keeps its default.
func (e *Extractor) extractLinks(doc *goquery.Document) []*types.Listing {
	listings := make([]*types.Listing, 0, e.max)
	if len(doc.Nodes) == 0 {
		return listings
	}

	nodes, err := htmlquery.QueryAll(doc.Nodes[0], detailLinkXPath)
	if err != nil {
		e.logger.Error("link scan failed", "error", err)
		return listings
	}
	if len(nodes) > e.max {
		nodes = nodes[:e.max]
	}

	for _, n := range nodes {
		if l := e.linkListing(n); l != nil {
			e.accept(&listings, l)
		}
	}

	return listings
}

// linkListing builds a minimal listing from one detail link, or nil if the link carries no id.
func (e *Extractor) linkListing(n *html.Node) *types.Listing {
	href := htmlquery.SelectAttr(n, "href")
	id, ok := detailID(href)
	if !ok {
		return nil
	}

	title := strings.TrimSpace(htmlquery.InnerText(n))
	if title == "" {
		title = strings.TrimSpace(htmlquery.SelectAttr(n, "title"))
	}
	if title == "" {
		if img := htmlquery.FindOne(n, ".//img[@alt]"); img != nil {
			title = strings.TrimSpace(htmlquery.SelectAttr(img, "alt"))
		}
	}
	if title == "" {
		title = fmt.Sprintf("Game %s", id)
	}

	l := types.NewListing(id, e.absolute(href))
	l.Title = title
	return l
}
