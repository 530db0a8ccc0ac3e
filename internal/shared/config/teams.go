package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed teams.yaml
var defaultTeams []byte

// TeamMapping traduz nomes curtos da Betfair para os nomes completos do football-data
type TeamMapping struct {
	Teams map[string]string `yaml:"teams"`
}

// LoadTeamMapping lê o YAML em path; com path vazio usa o arquivo embutido
func LoadTeamMapping(path string) (*TeamMapping, error) {
	raw := defaultTeams
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read team mapping: %w", err)
		}
		raw = b
	}

	var m TeamMapping
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse team mapping: %w", err)
	}
	if m.Teams == nil {
		m.Teams = map[string]string{}
	}
	return &m, nil
}

// FullName retorna o nome football-data; nomes sem mapeamento voltam como vieram
func (m *TeamMapping) FullName(betfairName string) string {
	if full, ok := m.Teams[betfairName]; ok {
		return full
	}
	return betfairName
}

// ShortName é o inverso de FullName; nomes sem mapeamento voltam como vieram
func (m *TeamMapping) ShortName(fullName string) string {
	for short, full := range m.Teams {
		if full == fullName {
			return short
		}
	}
	return fullName
}
