package catalog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// FieldMap holds zero-based field positions in a pipe-delimited line.
// Optional fields use -1 when the source does not carry them.
type FieldMap struct {
	Name    int
	ID      int
	Lore    int
	Slots   int
	Classes int
}

// DefaultFields matches name|lore|slots|classes|id.
var DefaultFields = FieldMap{Name: 0, Lore: 1, Slots: 2, Classes: 3, ID: 4}

// ParseFieldMap reads "name:0,id:4,lore:1" style layouts. Keys not mentioned
// are absent; name and id are required. An empty layout yields DefaultFields.
func ParseFieldMap(layout string) (FieldMap, error) {
	if strings.TrimSpace(layout) == "" {
		return DefaultFields, nil
	}
	fm := FieldMap{Name: -1, ID: -1, Lore: -1, Slots: -1, Classes: -1}
	for _, part := range strings.Split(layout, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, ":")
		if !ok {
			key, val, ok = strings.Cut(part, "=")
		}
		if !ok {
			return FieldMap{}, fmt.Errorf("catalog fields: malformed %q", part)
		}
		pos, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || pos < 0 {
			return FieldMap{}, fmt.Errorf("catalog fields: bad position in %q", part)
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "name":
			fm.Name = pos
		case "id":
			fm.ID = pos
		case "lore":
			fm.Lore = pos
		case "slots":
			fm.Slots = pos
		case "classes":
			fm.Classes = pos
		default:
			return FieldMap{}, fmt.Errorf("catalog fields: unknown key %q", key)
		}
	}
	if fm.Name < 0 || fm.ID < 0 {
		return FieldMap{}, fmt.Errorf("catalog fields: name and id positions are required")
	}
	return fm, nil
}

// required is the minimum field count a line needs.
func (f FieldMap) required() int {
	n := f.Name
	if f.ID > n {
		n = f.ID
	}
	return n + 1
}

// Stats summarizes one Parse run.
type Stats struct {
	Lines   int
	Loaded  int
	Skipped int
}

const maxLineBytes = 1 << 20

// Parse reads pipe-delimited catalog lines into c. Lines with too few fields,
// an empty name or a non-numeric id are skipped.
func Parse(r io.Reader, fields FieldMap) (*Catalog, Stats, error) {
	c := New()
	var st Stats

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		st.Lines++
		e, ok := parseLine(line, fields)
		if !ok {
			st.Skipped++
			continue
		}
		c.Add(e)
		st.Loaded++
	}
	if err := sc.Err(); err != nil {
		return c, st, fmt.Errorf("read catalog: %w", err)
	}
	return c, st, nil
}

func parseLine(line string, f FieldMap) (Entry, bool) {
	parts := strings.Split(line, "|")
	if len(parts) < f.required() {
		return Entry{}, false
	}
	name := strings.TrimSpace(parts[f.Name])
	if name == "" {
		return Entry{}, false
	}
	id, err := strconv.Atoi(strings.TrimSpace(parts[f.ID]))
	if err != nil {
		return Entry{}, false
	}
	e := Entry{Name: name, ID: id}
	if v, ok := field(parts, f.Lore); ok {
		e.Lore = strings.TrimSpace(v)
	}
	if v, ok := field(parts, f.Slots); ok {
		e.Slots = DecodeSlots(parseMask(v))
	}
	if v, ok := field(parts, f.Classes); ok {
		e.Classes = DecodeClasses(parseMask(v))
	}
	return e, true
}

func field(parts []string, pos int) (string, bool) {
	if pos < 0 || pos >= len(parts) {
		return "", false
	}
	return parts[pos], true
}
