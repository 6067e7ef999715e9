// Package cache stores JSON encoded values under string keys. Values are
// canonical JSON so that unchanged data can be detected byte for byte.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// WritePolicy controls what Put does when the stored bytes already match.
type WritePolicy int

const (
	// SkipIfUnchanged leaves an identical entry, and its timestamp, alone.
	SkipIfUnchanged WritePolicy = iota
	// AlwaysWrite rewrites the entry and bumps its timestamp.
	AlwaysWrite
)

func (p WritePolicy) String() string {
	if p == AlwaysWrite {
		return "always_write"
	}
	return "skip_if_unchanged"
}

var ErrBadValue = errors.New("cache: stored value does not decode")

// Store is a best effort key/value cache.
type Store interface {
	// Get decodes the value under key into dest. ok is false on a miss.
	Get(ctx context.Context, key string, dest any) (ok bool, err error)
	Put(ctx context.Context, key string, value any, policy WritePolicy) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// UpdatedAt reports when key was last written.
	UpdatedAt(ctx context.Context, key string) (time.Time, bool, error)
}

// Encode returns the canonical JSON form of v. Map keys are sorted.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cache: encode: %w", err)
	}
	return b, nil
}

func decode(key string, raw []byte, dest any) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadValue, key, err)
	}
	return nil
}
