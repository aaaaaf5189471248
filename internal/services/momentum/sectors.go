package momentum

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed sectors.yaml
var sectorsYAML []byte

// SectorTable maps tickers to a reference exchange-traded basket
type SectorTable struct {
	Default string              `yaml:"default"`
	Baskets map[string][]string `yaml:"baskets"`

	index map[string]string
}

// LoadSectorTable parses a basket table
func LoadSectorTable(data []byte) (*SectorTable, error) {
	var table SectorTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse sector table: %w", err)
	}
	if table.Default == "" {
		table.Default = "SPY"
	}

	table.index = make(map[string]string)
	for etf, tickers := range table.Baskets {
		for _, t := range tickers {
			table.index[strings.ToUpper(t)] = etf
		}
	}
	return &table, nil
}

// DefaultSectorTable returns the embedded basket table
func DefaultSectorTable() *SectorTable {
	table, err := LoadSectorTable(sectorsYAML)
	if err != nil {
		panic(err)
	}
	return table
}

// Basket returns the basket for ticker, or the default
func (t *SectorTable) Basket(ticker string) string {
	if etf, ok := t.index[strings.ToUpper(ticker)]; ok {
		return etf
	}
	return t.Default
}
