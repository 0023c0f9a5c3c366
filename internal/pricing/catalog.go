package pricing

import (
	"fmt"
	"sort"
	"strings"

	"tripmeter/internal/domain"
)

// FallbackFareProfile prices vehicle classes that have no configured profile.
// Quotes made with it are flagged provisional so clients can warn the rider.
var FallbackFareProfile = domain.FareProfile{
	VehicleClass: "fallback",
	BaseFare:     1000,
	PerKmRate:    200,
	MinimumFare:  1500,
}

// Catalog holds the fare profiles loaded at startup, keyed by vehicle class.
// It is read-only after construction and safe for concurrent use.
type Catalog struct {
	profiles map[string]domain.FareProfile
}

// NewCatalog validates profiles and indexes them by lower-cased vehicle class.
func NewCatalog(profiles []domain.FareProfile) (*Catalog, error) {
	c := &Catalog{profiles: make(map[string]domain.FareProfile, len(profiles))}
	for _, p := range profiles {
		if p.VehicleClass == "" {
			return nil, fmt.Errorf("%w: fare profile without vehicle class", domain.ErrInvalidArgument)
		}
		if !p.Valid() {
			return nil, fmt.Errorf("%w: fare profile %q has negative rates", domain.ErrInvalidArgument, p.VehicleClass)
		}
		c.profiles[normalizeClass(p.VehicleClass)] = p
	}
	return c, nil
}

// Lookup returns the profile for vehicleClass. When the class is unknown, or
// the catalog is empty, it returns FallbackFareProfile and provisional=true.
func (c *Catalog) Lookup(vehicleClass string) (profile domain.FareProfile, provisional bool) {
	if c != nil {
		if p, ok := c.profiles[normalizeClass(vehicleClass)]; ok {
			return p, false
		}
	}
	return FallbackFareProfile, true
}

// Len returns the number of configured profiles.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.profiles)
}

// Profiles returns a copy of every configured profile ordered by vehicle class.
func (c *Catalog) Profiles() []domain.FareProfile {
	if c == nil {
		return nil
	}
	out := make([]domain.FareProfile, 0, len(c.profiles))
	for _, p := range c.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleClass < out[j].VehicleClass })
	return out
}

func normalizeClass(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
