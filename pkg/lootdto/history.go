package lootdto

// HistoryRecord is one finalized assignment.
type HistoryRecord struct {
	Timestamp string `json:"timestamp"`
	ItemName  string `json:"itemName"`
	Recipient string `json:"recipient"`
}
