package c4fast

import "context"

// MessageCallback receives one raw inbound frame. Decoding is the caller's job.
type MessageCallback func(raw []byte)

type StateCallback func(state WebSocketState)

type WSClient interface {
	Connect(ctx context.Context) error
	OnMessage(cb MessageCallback) int
	RemoveMessageCallback(id int)
	OnStateChange(cb StateCallback) int
	RemoveStateCallback(id int)
	WriteJSON(ctx context.Context, v any) error
	State() WebSocketState
	Close(ctx context.Context) error
}

var _ WSClient = (*WebSocket)(nil)
