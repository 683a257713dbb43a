package types

import (
	"strconv"
	"strings"
)

// Default values substituted when a field cannot be resolved from a row.
const (
	UnknownPrice       = "Unknown"
	UnknownReleaseDate = "Unknown"
	FreePrice          = "Free"
	DefaultPlatform    = "Windows"
)

// Listing is one ranked storefront entry extracted from a search results page.
// Nullable fields are pointers so they serialize as JSON null when absent.
type Listing struct {
	// ID is the numeric item identifier taken from the detail link.
	ID string `json:"id" bson:"id"`

	// Title is the display name. Never empty.
	Title string `json:"title" bson:"title"`

	// Price is the localized display price, "Free", or "Unknown".
	Price string `json:"price" bson:"price"`

	// OriginalPrice is the pre-discount price, set only when a discount is detected.
	OriginalPrice *string `json:"originalPrice" bson:"originalPrice"`

	// DiscountPercent is the discount label as displayed (e.g. "-40%").
	DiscountPercent *string `json:"discountPercent" bson:"discountPercent"`

	IsFree bool `json:"isFree" bson:"isFree"`

	// ReleaseDate is free-form display text, "Unknown" when absent.
	ReleaseDate string `json:"releaseDate" bson:"releaseDate"`

	// Platforms is ordered Windows, Mac, Linux and never empty.
	Platforms []string `json:"platforms" bson:"platforms"`

	ImageURL string `json:"imageUrl" bson:"imageUrl"`

	ReviewSentiment *string `json:"reviewSentiment" bson:"reviewSentiment"`
	ReviewCount     *int    `json:"reviewCount" bson:"reviewCount"`

	// DetailURL is the absolute URL of the item's own page.
	DetailURL string `json:"steamUrl" bson:"steamUrl"`

	// Rank is the 1-based position in the result list.
	Rank int `json:"rank" bson:"rank"`
}

// NewListing creates a Listing with every optional field at its default.
func NewListing(id, detailURL string) *Listing {
	return &Listing{
		ID:          id,
		Price:       UnknownPrice,
		ReleaseDate: UnknownReleaseDate,
		Platforms:   []string{DefaultPlatform},
		DetailURL:   detailURL,
	}
}

// MarkFree flags the listing as free to play and clears any discount data.
func (l *Listing) MarkFree() {
	l.IsFree = true
	l.Price = FreePrice
	l.OriginalPrice = nil
	l.DiscountPercent = nil
}

// ToFlatMap returns a flat map suitable for CSV export.
func (l *Listing) ToFlatMap() map[string]string {
	flat := map[string]string{
		"rank":         strconv.Itoa(l.Rank),
		"id":           l.ID,
		"title":        l.Title,
		"price":        l.Price,
		"is_free":      strconv.FormatBool(l.IsFree),
		"release_date": l.ReleaseDate,
		"platforms":    strings.Join(l.Platforms, "|"),
		"image_url":    l.ImageURL,
		"detail_url":   l.DetailURL,
	}
	if l.OriginalPrice != nil {
		flat["original_price"] = *l.OriginalPrice
	}
	if l.DiscountPercent != nil {
		flat["discount_percent"] = *l.DiscountPercent
	}
	if l.ReviewSentiment != nil {
		flat["review_sentiment"] = *l.ReviewSentiment
	}
	if l.ReviewCount != nil {
		flat["review_count"] = strconv.Itoa(*l.ReviewCount)
	}
	return flat
}

// FlatMapColumns is the stable CSV column order for ToFlatMap output.
var FlatMapColumns = []string{
	"rank", "id", "title", "price", "original_price", "discount_percent", "is_free",
	"release_date", "platforms", "review_sentiment", "review_count", "image_url", "detail_url",
}
