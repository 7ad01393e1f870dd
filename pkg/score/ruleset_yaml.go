package score

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ruleSpec is the YAML form of one rule. Predicates are resolved through the
// registry by signal name, so a file can only re-weight known signals.
//
// Example (YAML):
//
//	name: full-tuned
//	reject_max: 40
//	marginal_max: 50
//	top_signals: 5
//	rules:
//	  - signal: missing_crm
//	    points: 12
//	    category: tech
//	  - signal: license_expired
//	    category: licensing
//	    disqualifier: true
type ruleSpec struct {
	Signal       string `yaml:"signal"`
	Points       int    `yaml:"points"`
	Category     string `yaml:"category"`
	Disqualifier bool   `yaml:"disqualifier"`
}

type ruleSetSpec struct {
	Name           string     `yaml:"name"`
	RejectMax      int        `yaml:"reject_max"`
	MarginalMax    int        `yaml:"marginal_max"`
	TopSignalCount int        `yaml:"top_signals"`
	Rules          []ruleSpec `yaml:"rules"`
}

// LoadRuleSet reads a rule set from a YAML file, binding each rule to a
// registered predicate. Operators tune weights and thresholds without
// recompiling; unknown signal names are rejected.
func LoadRuleSet(path string) (RuleSet, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("read rule set: %w", err)
	}
	return ParseRuleSet(b)
}

// ParseRuleSet parses YAML rule-set bytes.
func ParseRuleSet(b []byte) (RuleSet, error) {
	var spec ruleSetSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return RuleSet{}, fmt.Errorf("parse rule set YAML: %w", err)
	}
	if strings.TrimSpace(spec.Name) == "" {
		return RuleSet{}, fmt.Errorf("rule set name is required")
	}
	if spec.RejectMax > spec.MarginalMax {
		return RuleSet{}, fmt.Errorf("rule set %q: reject_max %d exceeds marginal_max %d", spec.Name, spec.RejectMax, spec.MarginalMax)
	}
	if len(spec.Rules) == 0 {
		return RuleSet{}, fmt.Errorf("rule set %q has no rules", spec.Name)
	}

	rs := RuleSet{
		Name:           spec.Name,
		RejectMax:      spec.RejectMax,
		MarginalMax:    spec.MarginalMax,
		TopSignalCount: spec.TopSignalCount,
	}
	for _, r := range spec.Rules {
		p, ok := PredicateFor(r.Signal)
		if !ok {
			return RuleSet{}, fmt.Errorf("rule set %q: unknown signal %q", spec.Name, r.Signal)
		}
		if r.Disqualifier && r.Points != 0 {
			return RuleSet{}, fmt.Errorf("rule set %q: disqualifier %q must not carry points", spec.Name, r.Signal)
		}
		rs.Rules = append(rs.Rules, Rule{
			Signal:       r.Signal,
			Points:       r.Points,
			Category:     Category(r.Category),
			Disqualifier: r.Disqualifier,
			When:         p,
		})
	}
	return rs, nil
}
