// Package region holds the compiled-in storefront region catalog and the
// resolver that validates user-supplied region codes against it.
package region

import (
	"strings"

	"github.com/IshaanNene/storetrends/internal/types"
)

// DefaultCode is the region used when a request does not name one.
const DefaultCode = "us"

// Region is a storefront locale.
type Region struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Flag     string `json:"flag"`
}

// catalog is ordered by storefront market grouping. Never mutated after init.
var catalog = []Region{
	// North America
	{"us", "United States", "$", "🇺🇸"},
	{"ca", "Canada", "CDN$", "🇨🇦"},
	{"mx", "Mexico", "Mex$", "🇲🇽"},

	// Europe
	{"uk", "United Kingdom", "£", "🇬🇧"},
	{"de", "Germany", "€", "🇩🇪"},
	{"fr", "France", "€", "🇫🇷"},
	{"it", "Italy", "€", "🇮🇹"},
	{"es", "Spain", "€", "🇪🇸"},
	{"nl", "Netherlands", "€", "🇳🇱"},
	{"pl", "Poland", "zł", "🇵🇱"},
	{"ru", "Russia", "pуб", "🇷🇺"},
	{"tr", "Turkey", "₺", "🇹🇷"},
	{"se", "Sweden", "kr", "🇸🇪"},
	{"no", "Norway", "kr", "🇳🇴"},
	{"dk", "Denmark", "kr", "🇩🇰"},
	{"fi", "Finland", "€", "🇫🇮"},
	{"ch", "Switzerland", "CHF", "🇨🇭"},
	{"at", "Austria", "€", "🇦🇹"},
	{"be", "Belgium", "€", "🇧🇪"},
	{"pt", "Portugal", "€", "🇵🇹"},
	{"gr", "Greece", "€", "🇬🇷"},
	{"cz", "Czech Republic", "Kč", "🇨🇿"},
	{"hu", "Hungary", "Ft", "🇭🇺"},
	{"ro", "Romania", "lei", "🇷🇴"},
	{"bg", "Bulgaria", "лв", "🇧🇬"},
	{"hr", "Croatia", "kn", "🇭🇷"},
	{"sk", "Slovakia", "€", "🇸🇰"},
	{"si", "Slovenia", "€", "🇸🇮"},
	{"lt", "Lithuania", "€", "🇱🇹"},
	{"lv", "Latvia", "€", "🇱🇻"},
	{"ee", "Estonia", "€", "🇪🇪"},
	{"ua", "Ukraine", "₴", "🇺🇦"},

	// Asia-Pacific
	{"jp", "Japan", "¥", "🇯🇵"},
	{"kr", "South Korea", "₩", "🇰🇷"},
	{"cn", "China", "¥", "🇨🇳"},
	{"hk", "Hong Kong", "HK$", "🇭🇰"},
	{"tw", "Taiwan", "NT$", "🇹🇼"},
	{"sg", "Singapore", "S$", "🇸🇬"},
	{"my", "Malaysia", "RM", "🇲🇾"},
	{"th", "Thailand", "฿", "🇹🇭"},
	{"id", "Indonesia", "Rp", "🇮🇩"},
	{"ph", "Philippines", "₱", "🇵🇭"},
	{"vn", "Vietnam", "₫", "🇻🇳"},
	{"in", "India", "₹", "🇮🇳"},
	{"au", "Australia", "AUD", "🇦🇺"},
	{"nz", "New Zealand", "NZ$", "🇳🇿"},

	// South America
	{"br", "Brazil", "R$", "🇧🇷"},
	{"ar", "Argentina", "ARS$", "🇦🇷"},
	{"cl", "Chile", "CLP$", "🇨🇱"},
	{"co", "Colombia", "COL$", "🇨🇴"},
	{"pe", "Peru", "S/", "🇵🇪"},
	{"uy", "Uruguay", "$U", "🇺🇾"},

	// Middle East & Africa
	{"il", "Israel", "₪", "🇮🇱"},
	{"ae", "UAE", "د.إ", "🇦🇪"},
	{"sa", "Saudi Arabia", "SR", "🇸🇦"},
	{"kw", "Kuwait", "KD", "🇰🇼"},
	{"qa", "Qatar", "QR", "🇶🇦"},
	{"za", "South Africa", "R", "🇿🇦"},
}

var (
	byCode = indexCatalog(catalog)
	codes  = catalogCodes(catalog)
)

func indexCatalog(regions []Region) map[string]Region {
	idx := make(map[string]Region, len(regions))
	for _, r := range regions {
		if _, dup := idx[r.Code]; dup || r.Code != strings.ToLower(r.Code) {
			panic("region: invalid catalog entry " + r.Code)
		}
		idx[r.Code] = r
	}
	return idx
}

func catalogCodes(regions []Region) []string {
	out := make([]string, len(regions))
	for i, r := range regions {
		out[i] = r.Code
	}
	return out
}

// All returns a copy of the catalog in its fixed order.
func All() []Region {
	return append([]Region(nil), catalog...)
}

// Codes returns a copy of every catalog code in catalog order.
func Codes() []string {
	return append([]string(nil), codes...)
}

// Lookup returns the region for an exact lowercase code.
func Lookup(code string) (Region, bool) {
	r, ok := byCode[code]
	return r, ok
}

// Resolve validates a requested code. Matching is case-insensitive and
// surrounding whitespace is ignored; an empty code selects DefaultCode.
// Unknown codes yield a *types.InvalidRegionError listing every valid code.
func Resolve(requested string) (Region, error) {
	code := strings.ToLower(strings.TrimSpace(requested))
	if code == "" {
		code = DefaultCode
	}
	if r, ok := byCode[code]; ok {
		return r, nil
	}
	return Region{}, &types.InvalidRegionError{Code: code, Available: Codes()}
}
