package catalog

import (
	"strconv"
	"strings"
)

// ClassCodes is indexed by bit position in the class bitmask.
var ClassCodes = [16]string{
	"WAR", "CLR", "PAL", "RNG", "SHD", "DRU", "MNK", "BRD",
	"ROG", "SHM", "NEC", "WIZ", "MAG", "ENC", "BST", "BER",
}

// SlotNames is indexed by bit position in the slot bitmask. Ear, Wrist and
// Fingers occupy two bits each.
var SlotNames = [21]string{
	"Charm", "Ear", "Head", "Face", "Ear", "Neck", "Shoulders", "Arms",
	"Back", "Wrist", "Wrist", "Range", "Hands", "Primary", "Secondary",
	"Fingers", "Fingers", "Chest", "Legs", "Feet", "Waist",
}

// DecodeClasses returns the class codes whose bit is set, in enumeration order.
func DecodeClasses(mask uint64) []string {
	var out []string
	for i, code := range ClassCodes {
		if mask&(1<<uint(i)) != 0 {
			out = append(out, code)
		}
	}
	return out
}

// DecodeSlots returns the slot names whose bit is set. Names shared by two
// bits appear once, at their first position.
func DecodeSlots(mask uint64) []string {
	var out []string
	seen := make(map[string]bool, len(SlotNames))
	for i, name := range SlotNames {
		if mask&(1<<uint(i)) == 0 || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// parseMask reads a decimal bitmask; anything unparsable decodes as empty.
func parseMask(s string) uint64 {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
