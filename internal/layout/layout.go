// Package layout loads the static placement table the opening defence and
// the rush are built from.
package layout

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/turretline/algo/internal/model"
)

//go:embed default.yaml
var defaultTable []byte

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid layout")

// Rush describes the even-turn mobile push.
type Rush struct {
	Probe model.Coordinate
	Spawn model.Coordinate
	Unit  model.UnitKind
	Count int
}

// Layout is a validated placement table.
type Layout struct {
	Version       string
	Support       []model.Coordinate
	Tier1         []model.Coordinate
	Tier1Upgrades []model.Coordinate
	Tier2         []model.Coordinate
	Rush          Rush
}

type yamlRush struct {
	Probe []int  `yaml:"probe"`
	Spawn []int  `yaml:"spawn"`
	Unit  string `yaml:"unit"`
	Count int    `yaml:"count"`
}

type yamlLayout struct {
	Version       string   `yaml:"version"`
	Support       [][]int  `yaml:"support"`
	Tier1         [][]int  `yaml:"tier1"`
	Tier1Upgrades [][]int  `yaml:"tier1Upgrades"`
	Tier2         [][]int  `yaml:"tier2"`
	Rush          yamlRush `yaml:"rush"`
}

// Default returns the embedded table.
func Default() (*Layout, error) {
	return Parse(defaultTable)
}

// Load reads a table from path. An empty path yields the embedded default.
func Load(path string) (*Layout, error) {
	if path == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	l, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Parse decodes and validates a YAML table.
func Parse(data []byte) (*Layout, error) {
	var raw yamlLayout
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}

	l := &Layout{Version: raw.Version}
	lists := []struct {
		name     string
		src      [][]int
		dst      *[]model.Coordinate
		optional bool
	}{
		{"support", raw.Support, &l.Support, false},
		{"tier1", raw.Tier1, &l.Tier1, false},
		{"tier1Upgrades", raw.Tier1Upgrades, &l.Tier1Upgrades, false},
		{"tier2", raw.Tier2, &l.Tier2, true},
	}
	for _, list := range lists {
		if len(list.src) == 0 && !list.optional {
			return nil, fmt.Errorf("%w: %s is empty", ErrInvalid, list.name)
		}
		coords := make([]model.Coordinate, 0, len(list.src))
		for i, pair := range list.src {
			c, err := coordinate(pair)
			if err != nil {
				return nil, fmt.Errorf("%w: %s[%d]: %v", ErrInvalid, list.name, i, err)
			}
			coords = append(coords, c)
		}
		*list.dst = coords
	}

	var err error
	if l.Rush.Probe, err = coordinate(raw.Rush.Probe); err != nil {
		return nil, fmt.Errorf("%w: rush.probe: %v", ErrInvalid, err)
	}
	if l.Rush.Spawn, err = coordinate(raw.Rush.Spawn); err != nil {
		return nil, fmt.Errorf("%w: rush.spawn: %v", ErrInvalid, err)
	}
	if l.Rush.Unit, err = model.ParseKind(raw.Rush.Unit); err != nil {
		return nil, fmt.Errorf("%w: rush.unit: %v", ErrInvalid, err)
	}
	if l.Rush.Unit.Structural() {
		return nil, fmt.Errorf("%w: rush.unit %s is not a mobile unit", ErrInvalid, l.Rush.Unit)
	}
	switch {
	case raw.Rush.Count < 0:
		return nil, fmt.Errorf("%w: rush.count is negative", ErrInvalid)
	case raw.Rush.Count == 0:
		l.Rush.Count = model.Unbounded
	default:
		l.Rush.Count = raw.Rush.Count
	}

	return l, nil
}

func coordinate(pair []int) (model.Coordinate, error) {
	if len(pair) != 2 {
		return model.Coordinate{}, fmt.Errorf("want [x, y], got %v", pair)
	}
	return model.C(pair[0], pair[1]), nil
}
