package parser

import (
	"encoding/json"
	"fmt"

	"github.com/turretline/algo/internal/model"
)

const (
	removeIndex  = 6
	upgradeIndex = 7
)

type costFields struct {
	Cost1 *float64 `json:"cost1"`
	Cost2 *float64 `json:"cost2"`
}

type unitInformation struct {
	Shorthand string `json:"shorthand"`
	costFields
	Upgrade *costFields `json:"upgrade"`
}

type gameConfig struct {
	UnitInformation []unitInformation `json:"unitInformation"`
}

func (c costFields) cost(fallback model.Cost) model.Cost {
	out := fallback
	if c.Cost1 != nil {
		out.SP = *c.Cost1
	}
	if c.Cost2 != nil {
		out.MP = *c.Cost2
	}
	return out
}

// ParseConfig resolves the unit catalog from the game config line. It fails
// with model.ErrUnknownShorthand when a placeable kind or the upgrade
// pseudo-unit has no shorthand.
func (p *Parser) ParseConfig(line []byte) (*model.Catalog, error) {
	var cfg gameConfig
	if err := json.Unmarshal(line, &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling game config: %w", err)
	}

	infos := cfg.UnitInformation
	units := make([]model.UnitInfo, 0, len(model.AllKinds))
	for i := 0; i < len(model.AllKinds) && i < len(infos); i++ {
		base := infos[i].cost(model.Cost{})
		info := model.UnitInfo{
			Shorthand:   infos[i].Shorthand,
			Cost:        base,
			UpgradeCost: base,
		}
		if infos[i].Upgrade != nil {
			info.Upgradable = true
			info.UpgradeCost = infos[i].Upgrade.cost(base)
		}
		units = append(units, info)
	}

	var remove, upgrade string
	if len(infos) > removeIndex {
		remove = infos[removeIndex].Shorthand
	}
	if len(infos) > upgradeIndex {
		upgrade = infos[upgradeIndex].Shorthand
	}

	catalog, err := model.NewCatalog(units, remove, upgrade)
	if err != nil {
		return nil, fmt.Errorf("error resolving unit catalog: %w", err)
	}

	p.logger.Debug("Parsed game config", "units", catalog.Shorthands(), "upgrade", upgrade)
	return catalog, nil
}
