package syncclient

import (
	"context"

	"github.com/park285/lootsync/pkg/lootdto"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

// Message is any frame the server sends; which fields are set depends on Type.
type Message struct {
	Type        string              `json:"type"`
	Items       []lootdto.LootEntry `json:"items,omitempty"`
	Index       *int                `json:"index,omitempty"`
	ID          string              `json:"id,omitempty"`
	Recipient   string              `json:"recipient,omitempty"`
	Distributed bool                `json:"distributed,omitempty"`
	Item        *lootdto.LootEntry  `json:"item,omitempty"`
}

type MessageCallback func(msg *Message)

type StateCallback func(state State)

type Client interface {
	Connect(ctx context.Context) error
	OnMessage(cb MessageCallback) int
	RemoveMessageCallback(id int)
	OnStateChange(cb StateCallback) int
	RemoveStateCallback(id int)
	SendItemUpdate(ctx context.Context, upd lootdto.ItemUpdate) error
	SendList(ctx context.Context, items []lootdto.LootEntry) error
	Close(ctx context.Context) error
}
