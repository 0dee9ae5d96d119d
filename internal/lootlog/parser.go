package lootlog

import (
	"errors"
	"sort"
	"strings"

	"github.com/park285/lootsync/internal/loot"
)

// ErrNoLootData is returned when no line of the input produced an entry.
var ErrNoLootData = errors.New("no loot data found")

// Resolver maps an item name to its catalog id, returning loot.UnknownItemID
// on a miss.
type Resolver interface {
	ResolveID(name string) int
}

// Match is the result of running the rule table on one line.
type Match struct {
	Rule   string
	Looter string
	Item   string
}

type Parser struct {
	rules    []Rule
	resolver Resolver
	allow    map[string]bool
}

type Option func(*Parser)

// WithAllowlist restricts results to the named looters (case-insensitive).
// An empty list allows everyone.
func WithAllowlist(looters []string) Option {
	return func(p *Parser) {
		for _, l := range looters {
			if s := strings.ToLower(strings.TrimSpace(l)); s != "" {
				if p.allow == nil {
					p.allow = make(map[string]bool)
				}
				p.allow[s] = true
			}
		}
	}
}

func NewParser(rules []Rule, resolver Resolver, opts ...Option) *Parser {
	p := &Parser{rules: append([]Rule(nil), rules...), resolver: resolver}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Match runs the rules in order and stops at the first one that matches.
func (p *Parser) Match(line string) (Match, bool) {
	for _, r := range p.rules {
		looter, item, ok := r.apply(line)
		if !ok {
			continue
		}
		return Match{Rule: r.Name, Looter: looter, Item: item}, true
	}
	return Match{}, false
}

// Parse turns raw log text into entries sorted by item name. Unmatched lines
// are skipped; unknown items keep loot.UnknownItemID.
func (p *Parser) Parse(text string) ([]loot.Entry, error) {
	var out []loot.Entry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		m, ok := p.Match(line)
		if !ok || m.Looter == "" || m.Item == "" {
			continue
		}
		if p.allow != nil && !p.allow[strings.ToLower(m.Looter)] {
			continue
		}
		out = append(out, loot.Entry{
			Looter:   m.Looter,
			ItemName: m.Item,
			ItemID:   p.resolve(m.Item),
		})
	}
	if len(out) == 0 {
		return nil, ErrNoLootData
	}
	SortByItem(out)
	return out, nil
}

func (p *Parser) resolve(name string) int {
	if p.resolver == nil {
		return loot.UnknownItemID
	}
	return p.resolver.ResolveID(name)
}

// SortByItem orders entries by item name, byte-wise, keeping input order for
// equal names.
func SortByItem(entries []loot.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ItemName < entries[j].ItemName
	})
}
