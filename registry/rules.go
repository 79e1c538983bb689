package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule assigns an analysis kind to every operator kind matching one of
// its glob patterns.
type Rule struct {
	Analysis AnalysisKind `yaml:"analysis"`
	Ops      []string     `yaml:"ops"`
}

// RulesConfig holds the rules configuration file layout.
type RulesConfig struct {
	Rules []Rule `yaml:"rules"`
}

// ParseRules parses YAML rule data.
func ParseRules(data []byte) ([]Rule, error) {
	var config RulesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	for _, rule := range config.Rules {
		if !validAnalysisKind(rule.Analysis) {
			return nil, fmt.Errorf("parsing rules: unknown analysis kind %q", rule.Analysis)
		}
	}
	return config.Rules, nil
}

// LoadRules loads analysis rules from a YAML file and appends them to
// the registry.
func (r *Registry) LoadRules(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading rules file: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return err
	}
	r.AddRules(rules)
	return nil
}

// AddRules appends rules; earlier rules take precedence.
func (r *Registry) AddRules(rules []Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rules...)
}

// Rules returns the registry's rules in precedence order.
func (r *Registry) Rules() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Rule(nil), r.rules...)
}

// SaveRules writes rules to a YAML file.
func SaveRules(path string, rules []Rule) error {
	data, err := yaml.Marshal(RulesConfig{Rules: rules})
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing rules file: %w", err)
	}
	return nil
}
