package rules

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type ruleFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

// ruleEntry lets a file omit enabled, which then defaults to true.
type ruleEntry struct {
	ID        string `yaml:"rule_id"`
	Name      string `yaml:"rule_name"`
	Condition string `yaml:"condition"`
	Action    string `yaml:"action"`
	Priority  int    `yaml:"priority"`
	Enabled   *bool  `yaml:"enabled"`
}

// LoadRules decodes a YAML rule file of the form
//
//	rules:
//	  - rule_id: HIGH_INCOME_VERIFICATION
//	    rule_name: High Income Requires Additional Verification
//	    condition: annual_income > 250000
//	    action: require_income_documentation
//	    priority: 80
func LoadRules(r io.Reader) ([]BusinessRule, error) {
	var file ruleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	out := make([]BusinessRule, 0, len(file.Rules))
	for _, entry := range file.Rules {
		rule := BusinessRule{
			ID:        entry.ID,
			Name:      entry.Name,
			Condition: entry.Condition,
			Action:    entry.Action,
			Priority:  entry.Priority,
			Enabled:   entry.Enabled == nil || *entry.Enabled,
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.ID, err)
		}
		out = append(out, rule)
	}
	return out, nil
}

// LoadRulesFile reads rules from path.
func LoadRulesFile(path string) ([]BusinessRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()
	return LoadRules(f)
}
