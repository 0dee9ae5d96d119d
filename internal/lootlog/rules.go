package lootlog

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultFiles embed.FS

// Rule extracts a (looter, item) pair from one log line.
type Rule struct {
	Name   string
	re     *regexp.Regexp
	looter int
	item   int
}

type ruleDef struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Looter  int    `yaml:"looter"`
	Item    int    `yaml:"item"`
}

type ruleFile struct {
	Rules []ruleDef `yaml:"rules"`
}

// DefaultRules returns the embedded rule table.
func DefaultRules() ([]Rule, error) {
	raw, err := fs.ReadFile(defaultFiles, "rules.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded rules: %w", err)
	}
	return ParseRules(raw)
}

// LoadRules returns the rules in path, or the embedded defaults when path is
// empty. An override file replaces the whole table.
func LoadRules(path string) ([]Rule, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRules()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	rules, err := ParseRules(raw)
	if err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules compiles a YAML rule table, keeping its order.
func ParseRules(raw []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("no rules defined")
	}
	seen := make(map[string]bool, len(f.Rules))
	out := make([]Rule, 0, len(f.Rules))
	for i, s := range f.Rules {
		r, err := compileRule(s)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("duplicate rule name %q", r.Name)
		}
		seen[r.Name] = true
		out = append(out, r)
	}
	return out, nil
}

// NewRule builds a rule in code; mostly useful in tests.
func NewRule(name, pattern string, looterGroup, itemGroup int) (Rule, error) {
	return compileRule(ruleDef{Name: name, Pattern: pattern, Looter: looterGroup, Item: itemGroup})
}

func compileRule(s ruleDef) (Rule, error) {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return Rule{}, fmt.Errorf("missing name")
	}
	re, err := regexp.Compile(s.Pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("%s: %w", name, err)
	}
	n := re.NumSubexp()
	if s.Looter < 1 || s.Looter > n || s.Item < 1 || s.Item > n {
		return Rule{}, fmt.Errorf("%s: groups looter=%d item=%d out of range 1..%d", name, s.Looter, s.Item, n)
	}
	if s.Looter == s.Item {
		return Rule{}, fmt.Errorf("%s: looter and item share group %d", name, s.Item)
	}
	return Rule{Name: name, re: re, looter: s.Looter, item: s.Item}, nil
}

// apply returns the trimmed looter and item when the rule matches line.
func (r Rule) apply(line string) (looter, item string, ok bool) {
	m := r.re.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[r.looter]), strings.TrimSpace(m[r.item]), true
}
