package lootdto

// Message kinds on the sync channel.
const (
	TypeLootListUpdate = "lootListUpdate"
	TypeItemUpdate     = "itemUpdate"
)

// LootEntry is the wire shape of one looted item. Rows are not validated:
// a client list is stored as sent, blank names included.
type LootEntry struct {
	ID          string `json:"id,omitempty"`
	Looter      string `json:"looter"`
	ItemName    string `json:"itemName"`
	ItemID      int    `json:"itemId"`
	Recipient   string `json:"recipient"`
	Distributed bool   `json:"distributed"`
}

// Envelope is decoded first to route an inbound frame by type.
type Envelope struct {
	Type string `json:"type" validate:"required,oneof=lootListUpdate itemUpdate"`
}

// LootListUpdate replaces the whole list.
type LootListUpdate struct {
	Type  string      `json:"type"`
	Items []LootEntry `json:"items" validate:"required"`
}

// ItemUpdate patches one entry. Clients address the entry by index, id or both;
// the server fills Item with the full updated entry when relaying.
type ItemUpdate struct {
	Type        string     `json:"type"`
	Index       *int       `json:"index,omitempty" validate:"omitempty,min=0"`
	ID          string     `json:"id,omitempty" validate:"omitempty,uuid"`
	Recipient   string     `json:"recipient"`
	Distributed bool       `json:"distributed"`
	Item        *LootEntry `json:"item,omitempty"`
}
