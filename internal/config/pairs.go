package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pair names the two symbols of one backtest, with optional per-pair
// parameter overrides.
type Pair struct {
	SymbolA        string   `yaml:"symbol_a"`
	SymbolB        string   `yaml:"symbol_b"`
	Lookback       *int     `yaml:"lookback,omitempty"`
	EntryThreshold *float64 `yaml:"entry_threshold,omitempty"`
	ExitThreshold  *float64 `yaml:"exit_threshold,omitempty"`
}

// PairsFile is a batch of pairs to backtest in one run.
type PairsFile struct {
	Pairs []Pair `yaml:"pairs"`
}

// LoadPairs reads a YAML batch file of pairs. Symbols are trimmed and
// uppercased; a file without usable pairs is an error.
func LoadPairs(path string) (*PairsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pairs file: %w", err)
	}

	var pf PairsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(pf.Pairs) == 0 {
		return nil, fmt.Errorf("%s: no pairs defined", path)
	}

	for i := range pf.Pairs {
		p := &pf.Pairs[i]
		p.SymbolA = strings.ToUpper(strings.TrimSpace(p.SymbolA))
		p.SymbolB = strings.ToUpper(strings.TrimSpace(p.SymbolB))
		if p.SymbolA == "" || p.SymbolB == "" {
			return nil, fmt.Errorf("%s: pair %d is missing a symbol", path, i+1)
		}
	}
	return &pf, nil
}
