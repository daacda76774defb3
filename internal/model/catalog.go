package model

import (
	"errors"
	"fmt"
)

// ErrUnknownShorthand is returned when the engine config does not name a
// shorthand the policy needs. All placement logic is meaningless without it.
var ErrUnknownShorthand = errors.New("unit shorthand not found in config")

// Cost is a price in both pools.
type Cost struct {
	SP float64
	MP float64
}

// Of returns the component of the cost charged to the given pool.
func (c Cost) Of(p Pool) float64 {
	if p == MobilePool {
		return c.MP
	}
	return c.SP
}

// UnitInfo is the resolved engine definition of one unit kind.
type UnitInfo struct {
	Shorthand   string
	Cost        Cost
	UpgradeCost Cost
	Upgradable  bool
}

// Catalog maps the internal UnitKind enum to the engine's shorthands and costs.
// It is built once at game start and read-only afterwards.
type Catalog struct {
	units [numKinds]UnitInfo

	// RemoveShorthand and UpgradeShorthand are the pseudo-units used in the
	// build queue for removals and upgrades.
	RemoveShorthand  string
	UpgradeShorthand string
}

// NewCatalog validates and indexes the unit definitions. units must be in
// table order (Wall first, Interceptor last).
func NewCatalog(units []UnitInfo, removeShorthand, upgradeShorthand string) (*Catalog, error) {
	if len(units) < len(AllKinds) {
		return nil, fmt.Errorf("%w: config defines %d units, need %d", ErrUnknownShorthand, len(units), len(AllKinds))
	}
	if upgradeShorthand == "" {
		return nil, fmt.Errorf("%w: upgrade", ErrUnknownShorthand)
	}

	c := &Catalog{
		RemoveShorthand:  removeShorthand,
		UpgradeShorthand: upgradeShorthand,
	}
	seen := make(map[string]UnitKind, len(AllKinds))
	for _, kind := range AllKinds {
		info := units[kind]
		if info.Shorthand == "" {
			return nil, fmt.Errorf("%w: %s", ErrUnknownShorthand, kind)
		}
		if prev, dup := seen[info.Shorthand]; dup {
			return nil, fmt.Errorf("shorthand %q used by both %s and %s", info.Shorthand, prev, kind)
		}
		c.units[kind] = info
		seen[info.Shorthand] = kind
	}
	return c, nil
}

// Shorthand returns the engine identifier for a kind.
func (c *Catalog) Shorthand(k UnitKind) string {
	return c.units[k].Shorthand
}

// Info returns the definition of a kind.
func (c *Catalog) Info(k UnitKind) UnitInfo {
	return c.units[k]
}

// Shorthands returns kind name → shorthand for logging and match records.
func (c *Catalog) Shorthands() map[string]string {
	out := make(map[string]string, len(AllKinds))
	for _, k := range AllKinds {
		out[k.String()] = c.units[k].Shorthand
	}
	return out
}
