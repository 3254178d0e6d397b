// Package room provides interfaces for types to be in compliance with.
package room

import (
	"context"

	"github.com/vmartynov/vm_go_code_drop/internal/service/modelshare"
)

// Session defines a set of methods for one participant's live view of a room.
// A session owns its polling loop and must be released with Leave.
type Session interface {
	Code() string
	Device() string
	View() modelshare.RoomView
	Updates() <-chan modelshare.RoomView
	Append(ctx context.Context, text string) error
	Leave()
}

// Processor defines a set of methods for types implementing Processor.
type Processor interface {
	Create(ctx context.Context, device string) (code string, err error)
	Join(ctx context.Context, code string, device string) (session Session, err error)
	Append(ctx context.Context, code string, device string, text string) error
	Peek(ctx context.Context, code string) (view modelshare.RoomView, err error)
	Count(ctx context.Context) (n int, err error)
}
