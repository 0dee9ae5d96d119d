package loot

import "github.com/park285/lootsync/pkg/lootdto"

// UnknownItemID marks an entry whose item name is not in the catalog.
const UnknownItemID = 999

// Entry is one looted item in the live list.
type Entry struct {
	ID          string `json:"id"`
	Looter      string `json:"looter"`
	ItemName    string `json:"itemName"`
	ItemID      int    `json:"itemId"`
	Recipient   string `json:"recipient"`
	Distributed bool   `json:"distributed"`
}

// Known reports whether the item resolved against the catalog.
func (e Entry) Known() bool { return e.ItemID != UnknownItemID }

// Ref addresses an entry by stable id or, when ID is empty, by position.
type Ref struct {
	ID    string
	Index int
}

// PatchResult describes an applied patch.
type PatchResult struct {
	Entry Entry
	Index int
	// Finalized is set when the patch flipped distributed to true for an
	// entry that has a recipient.
	Finalized bool
}

func ToDTO(e Entry) lootdto.LootEntry {
	return lootdto.LootEntry{
		ID:          e.ID,
		Looter:      e.Looter,
		ItemName:    e.ItemName,
		ItemID:      e.ItemID,
		Recipient:   e.Recipient,
		Distributed: e.Distributed,
	}
}

func ToDTOs(list []Entry) []lootdto.LootEntry {
	out := make([]lootdto.LootEntry, 0, len(list))
	for _, e := range list {
		out = append(out, ToDTO(e))
	}
	return out
}

func FromDTO(d lootdto.LootEntry) Entry {
	return Entry{
		ID:          d.ID,
		Looter:      d.Looter,
		ItemName:    d.ItemName,
		ItemID:      d.ItemID,
		Recipient:   d.Recipient,
		Distributed: d.Distributed,
	}
}

func FromDTOs(list []lootdto.LootEntry) []Entry {
	out := make([]Entry, 0, len(list))
	for _, d := range list {
		out = append(out, FromDTO(d))
	}
	return out
}
