package catalog

import (
	"strings"

	"github.com/park285/lootsync/internal/loot"
	"github.com/park285/lootsync/pkg/lootdto"
)

// Entry is one catalog item.
type Entry struct {
	Name    string
	ID      int
	Lore    string
	Slots   []string
	Classes []string
}

// Catalog maps normalized item names to entries. It is built once and then
// only read, so lookups need no locking.
type Catalog struct {
	items map[string]Entry
}

func New() *Catalog {
	return &Catalog{items: make(map[string]Entry)}
}

// Normalize is the key form used for lookups.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Add stores e under its normalized name, replacing any earlier entry.
func (c *Catalog) Add(e Entry) {
	key := Normalize(e.Name)
	if key == "" {
		return
	}
	c.items[key] = e
}

func (c *Catalog) Lookup(name string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	e, ok := c.items[Normalize(name)]
	return e, ok
}

// ResolveID returns the item's id or loot.UnknownItemID.
func (c *Catalog) ResolveID(name string) int {
	if e, ok := c.Lookup(name); ok {
		return e.ID
	}
	return loot.UnknownItemID
}

// Search returns the entries for names in request order. Unknown names and
// repeats are skipped.
func (c *Catalog) Search(names []string) []Entry {
	out := make([]Entry, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		key := Normalize(n)
		if seen[key] {
			continue
		}
		seen[key] = true
		if e, ok := c.Lookup(key); ok {
			out = append(out, e)
		}
	}
	return out
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

func ToDTO(e Entry) lootdto.CatalogItem {
	return lootdto.CatalogItem{
		Name:    e.Name,
		ID:      e.ID,
		Lore:    e.Lore,
		Slots:   append([]string(nil), e.Slots...),
		Classes: append([]string(nil), e.Classes...),
	}
}
