package store

import (
	"context"
	"errors"
)

// ErrSlotEmpty is returned by Slot.Get when nothing was stored under the key.
var ErrSlotEmpty = errors.New("slot is empty")

// Slot is a named value in durable key-value storage. Put replaces the whole value.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, payload []byte) error
	Close() error
}
