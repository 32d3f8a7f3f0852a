package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // region zones must resolve on hosts without a zoneinfo database
)

// ErrInvalidRegion is returned when a region code is not recognized.
var ErrInvalidRegion = errors.New("invalid region")

// Region identifies the jurisdiction a card is issued in or a purchase is made in.
// Two regions are foreign to each other when they differ.
type Region string

// Supported regions.
const (
	RegionCN    Region = "CN"
	RegionHK    Region = "HK"
	RegionUS    Region = "US"
	RegionJP    Region = "JP"
	RegionNZ    Region = "NZ"
	RegionTW    Region = "TW"
	RegionOther Region = "OTHER"
)

type regionInfo struct {
	currency string
	symbol   string
	name     string
	zone     string
}

var regions = map[Region]regionInfo{
	RegionCN:    {currency: "CNY", symbol: "¥", name: "Mainland China", zone: "Asia/Shanghai"},
	RegionHK:    {currency: "HKD", symbol: "HK$", name: "Hong Kong", zone: "Asia/Hong_Kong"},
	RegionUS:    {currency: "USD", symbol: "$", name: "United States", zone: "America/New_York"},
	RegionJP:    {currency: "JPY", symbol: "JP¥", name: "Japan", zone: "Asia/Tokyo"},
	RegionNZ:    {currency: "NZD", symbol: "NZ$", name: "New Zealand", zone: "Pacific/Auckland"},
	RegionTW:    {currency: "TWD", symbol: "NT$", name: "Taiwan", zone: "Asia/Taipei"},
	RegionOther: {currency: "USD", symbol: "$", name: "Other", zone: "UTC"},
}

// AllRegions returns every supported region.
func AllRegions() []Region {
	return []Region{RegionCN, RegionHK, RegionUS, RegionJP, RegionNZ, RegionTW, RegionOther}
}

// Valid reports whether r is a supported region.
func (r Region) Valid() bool {
	_, ok := regions[r]
	return ok
}

// CurrencyCode returns the ISO 4217 code of the region's currency.
// Spend in RegionOther is billed as USD.
func (r Region) CurrencyCode() string {
	return regions[r].currency
}

// CurrencySymbol returns the display symbol for the region's currency.
func (r Region) CurrencySymbol() string {
	return regions[r].symbol
}

// DisplayName returns the region's human readable name.
func (r Region) DisplayName() string {
	return regions[r].name
}

// Location returns the time zone a card issued in r keeps its calendar in.
// US cards follow Eastern time. Unknown regions use UTC.
func (r Region) Location() *time.Location {
	info, ok := regions[r]
	if !ok {
		return time.UTC
	}
	loc, err := time.LoadLocation(info.zone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CapYear returns the calendar year date falls in for a card issued in
// issuing. Annual caps reset on 1 January in the issuing region.
func CapYear(date time.Time, issuing Region) int {
	return date.In(issuing.Location()).Year()
}

// IsForeignTo reports whether spend in r is foreign for a card issued in issuing.
func (r Region) IsForeignTo(issuing Region) bool {
	return r != issuing
}

// ParseRegion converts user input such as "hk" or "HK" into a Region.
func ParseRegion(s string) (Region, error) {
	r := Region(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRegion, s)
	}
	return r, nil
}

// RegionFromCurrency maps a currency code (or any string containing one)
// to the region that uses it. Unrecognized currencies map to RegionOther.
func RegionFromCurrency(code string) Region {
	upper := strings.ToUpper(code)
	switch {
	case strings.Contains(upper, "CNY"):
		return RegionCN
	case strings.Contains(upper, "USD"):
		return RegionUS
	case strings.Contains(upper, "HKD"):
		return RegionHK
	case strings.Contains(upper, "JPY"):
		return RegionJP
	case strings.Contains(upper, "NZD"):
		return RegionNZ
	case strings.Contains(upper, "TWD"):
		return RegionTW
	default:
		return RegionOther
	}
}
