// Package assembler builds the outward-facing payloads for top-listing queries.
package assembler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/IshaanNene/storetrends/internal/region"
	"github.com/IshaanNene/storetrends/internal/types"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Error labels carried in failure payloads.
const (
	LabelInvalidRegion = "Invalid region"
	LabelFetchFailed   = "Failed to fetch Steam data"
	LabelMethod        = "Method not allowed"
)

// RegionInfo is the public view of a region.
type RegionInfo struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// Success is the payload returned when extraction completes.
type Success struct {
	Success          bool             `json:"success"`
	Count            int              `json:"count"`
	Timestamp        string           `json:"timestamp"`
	Region           RegionInfo       `json:"region"`
	Source           string           `json:"source"`
	Games            []*types.Listing `json:"games"`
	AvailableRegions []RegionInfo     `json:"availableRegions"`
}

// InvalidRegion is the payload returned for a region code outside the catalog.
type InvalidRegion struct {
	Error            string   `json:"error"`
	AvailableRegions []string `json:"availableRegions"`
	Message          string   `json:"message"`
}

// Failure is the payload returned when the page could not be fetched or parsed.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MethodNotAllowed is the payload for non-GET requests.
type MethodNotAllowed struct {
	Error string `json:"error"`
}

// Assembler builds payloads. The zero value uses the wall clock.
type Assembler struct {
	now func() time.Time
}

// New creates an Assembler. A nil clock means time.Now.
func New(now func() time.Time) *Assembler {
	return &Assembler{now: now}
}

func (a *Assembler) timestamp() string {
	now := time.Now
	if a != nil && a.now != nil {
		now = a.now
	}
	return now().UTC().Format(TimestampLayout)
}

// Success wraps listings with the region metadata and the catalog.
func (a *Assembler) Success(r region.Region, listings []*types.Listing) *Success {
	if listings == nil {
		listings = []*types.Listing{}
	}
	return &Success{
		Success:          true,
		Count:            len(listings),
		Timestamp:        a.timestamp(),
		Region:           Info(r),
		Source:           SourceLabel(r),
		Games:            listings,
		AvailableRegions: Catalog(),
	}
}

// Error maps err to an HTTP status and its failure payload.
func (a *Assembler) Error(err error) (int, any) {
	var invalid *types.InvalidRegionError
	if errors.As(err, &invalid) {
		return http.StatusBadRequest, &InvalidRegion{
			Error:            LabelInvalidRegion,
			AvailableRegions: invalid.Available,
			Message:          invalid.Error(),
		}
	}
	return http.StatusInternalServerError, &Failure{
		Success: false,
		Error:   LabelFetchFailed,
		Message: err.Error(),
	}
}

// SourceLabel returns the human-readable provenance label for a region.
func SourceLabel(r region.Region) string {
	return fmt.Sprintf("Steam Store - Popular New Releases (%s)", r.Name)
}

// Info returns the public fields of r.
func Info(r region.Region) RegionInfo {
	return RegionInfo{Code: r.Code, Name: r.Name, Currency: r.Currency}
}

// Catalog returns every region's public fields in catalog order.
func Catalog() []RegionInfo {
	all := region.All()
	infos := make([]RegionInfo, len(all))
	for i, r := range all {
		infos[i] = Info(r)
	}
	return infos
}
