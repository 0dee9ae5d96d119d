package lootdto

// UploadResponse is returned after a log upload was parsed.
type UploadResponse struct {
	Count int         `json:"count"`
	Items []LootEntry `json:"items"`
}

// SearchRequest asks for catalog entries by item name.
type SearchRequest struct {
	Names []string `json:"names" validate:"required,max=500"`
}

// CatalogItem is the wire shape of a catalog entry.
type CatalogItem struct {
	Name    string   `json:"name"`
	ID      int      `json:"id"`
	Lore    string   `json:"lore,omitempty"`
	Slots   []string `json:"slots,omitempty"`
	Classes []string `json:"classes,omitempty"`
}

// SearchResponse lists matched catalog entries; unmatched names are omitted.
type SearchResponse struct {
	Items []CatalogItem `json:"items"`
}

// Health is the body of /healthz.
type Health struct {
	Status  string `json:"status"`
	Catalog int    `json:"catalog"`
	Clients int    `json:"clients"`
	Entries int    `json:"entries"`
}
