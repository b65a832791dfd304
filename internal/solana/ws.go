package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeAccount subscribes to state changes of a single account.
	SubscribeAccount(ctx context.Context, pubkey string) (<-chan AccountNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// AccountNotification represents an accountSubscribe message.
type AccountNotification struct {
	Pubkey   string
	Slot     int64
	Lamports uint64
	Owner    string
	Data     string // base64 encoded
}
