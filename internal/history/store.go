package history

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/park285/lootsync/pkg/lootdto"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown history backend")

// Record is one finalized assignment.
type Record struct {
	Timestamp time.Time
	ItemName  string
	Recipient string
}

// NewRecord stamps a record with the current UTC time.
func NewRecord(itemName, recipient string) Record {
	return Record{
		Timestamp: time.Now().UTC().Truncate(time.Second),
		ItemName:  strings.TrimSpace(itemName),
		Recipient: strings.TrimSpace(recipient),
	}
}

// Store is an append-only log of finalized assignments.
type Store interface {
	Append(ctx context.Context, rec Record) error
	List(ctx context.Context) ([]Record, error)
	Close() error
}

func ToDTO(r Record) lootdto.HistoryRecord {
	return lootdto.HistoryRecord{
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339),
		ItemName:  r.ItemName,
		Recipient: r.Recipient,
	}
}

func ToDTOs(list []Record) []lootdto.HistoryRecord {
	out := make([]lootdto.HistoryRecord, 0, len(list))
	for _, r := range list {
		out = append(out, ToDTO(r))
	}
	return out
}

// Nop discards appends and lists nothing.
type Nop struct{}

func (Nop) Append(context.Context, Record) error   { return nil }
func (Nop) List(context.Context) ([]Record, error) { return nil, nil }
func (Nop) Close() error                           { return nil }
