package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/storetrends/internal/types"
)

// Selector cascades, tried in order until one yields a value.
var (
	titleSelectors = []string{
		".title",
		".search_name .title",
		"h4",
		".name",
		".search_name",
		"[data-ds-tagids] .title",
	}

	imageSelectors = []string{
		".search_capsule img",
		".col.search_capsule img",
		`img[src*="capsule"]`,
		".search_result_row img",
		"img",
	}

	releaseDateSelectors = []string{
		".search_released",
		".col.search_released",
		".release_date",
	}
)

const platformSelector = ".platform_img, .search_result_icons img, .platforms img"

// platformMarkers maps a class or src substring to its label, in output order.
var platformMarkers = []struct {
	marker string
	label  string
}{
	{"win", "Windows"},
	{"mac", "Mac"},
	{"linux", "Linux"},
}

// firstText returns the trimmed text of the first selector whose first match has any.
func firstText(row *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(row.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// resolveImage prefers a capsule image and otherwise keeps the last non-empty candidate.
func resolveImage(row *goquery.Selection) string {
	var found string
	for _, sel := range imageSelectors {
		img := row.Find(sel).First()
		if img.Length() == 0 {
			continue
		}
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" {
			src = strings.TrimSpace(img.AttrOr("data-src", ""))
		}
		if src == "" {
			continue
		}
		if strings.Contains(src, "capsule") {
			return src
		}
		found = src
	}
	return found
}

// resolvePlatforms reads platform icons, falling back to Windows alone.
func resolvePlatforms(row *goquery.Selection) []string {
	seen := make(map[string]bool, len(platformMarkers))
	row.Find(platformSelector).Each(func(_ int, icon *goquery.Selection) {
		hint := icon.AttrOr("class", "")
		if hint == "" {
			hint = icon.AttrOr("src", "")
		}
		hint = strings.ToLower(hint)
		for _, p := range platformMarkers {
			if strings.Contains(hint, p.marker) {
				seen[p.label] = true
			}
		}
	})

	var platforms []string
	for _, p := range platformMarkers {
		if seen[p.label] {
			platforms = append(platforms, p.label)
		}
	}
	if len(platforms) == 0 {
		return []string{types.DefaultPlatform}
	}
	return platforms
}
