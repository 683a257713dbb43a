package pipeline

import (
	"net/url"
	"strings"

	"github.com/IshaanNene/storetrends/internal/types"
)

// WhitespaceMiddleware collapses runs of whitespace in every text field.
type WhitespaceMiddleware struct{}

func (m *WhitespaceMiddleware) Name() string { return "whitespace" }

func (m *WhitespaceMiddleware) Process(l *types.Listing) (*types.Listing, error) {
	l.Title = collapse(l.Title)
	l.Price = collapse(l.Price)
	l.ReleaseDate = collapse(l.ReleaseDate)
	l.ImageURL = strings.TrimSpace(l.ImageURL)
	for _, p := range []**string{&l.OriginalPrice, &l.DiscountPercent, &l.ReviewSentiment} {
		if *p == nil {
			continue
		}
		if s := collapse(**p); s != "" {
			*p = &s
		} else {
			*p = nil
		}
	}
	return l, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ImageURLMiddleware makes protocol-relative and relative image URLs absolute.
type ImageURLMiddleware struct {
	base *url.URL
}

// NewImageURLMiddleware creates an ImageURLMiddleware resolving against base.
// An unparseable base leaves relative paths untouched.
func NewImageURLMiddleware(base string) *ImageURLMiddleware {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		u = nil
	}
	return &ImageURLMiddleware{base: u}
}

func (m *ImageURLMiddleware) Name() string { return "image_url" }

func (m *ImageURLMiddleware) Process(l *types.Listing) (*types.Listing, error) {
	switch {
	case l.ImageURL == "":
	case strings.HasPrefix(l.ImageURL, "//"):
		l.ImageURL = "https:" + l.ImageURL
	case strings.HasPrefix(l.ImageURL, "/") && m.base != nil:
		if ref, err := url.Parse(l.ImageURL); err == nil {
			l.ImageURL = m.base.ResolveReference(ref).String()
		}
	}
	return l, nil
}

// DefaultValueMiddleware restores documented defaults for fields left blank.
type DefaultValueMiddleware struct{}

func (m *DefaultValueMiddleware) Name() string { return "default_values" }

func (m *DefaultValueMiddleware) Process(l *types.Listing) (*types.Listing, error) {
	if l.Price == "" {
		l.Price = types.UnknownPrice
	}
	if l.ReleaseDate == "" {
		l.ReleaseDate = types.UnknownReleaseDate
	}
	if len(l.Platforms) == 0 {
		l.Platforms = []string{types.DefaultPlatform}
	}
	return l, nil
}

// RequiredFieldsMiddleware drops listings missing a title or detail URL.
type RequiredFieldsMiddleware struct{}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(l *types.Listing) (*types.Listing, error) {
	if l.Title == "" || l.DetailURL == "" {
		return nil, nil
	}
	return l, nil
}
