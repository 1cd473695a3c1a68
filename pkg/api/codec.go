// Package api defines the wire messages, procedure names and clients of
// the splitpass RPC services.
//
// Messages are plain Go structs carried as JSON over Connect. Servers and
// clients must both install Codec, which replaces Connect's protobuf-only
// JSON codec under the same "json" name.
package api

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

var _ connect.Codec = Codec{}

// Codec marshals messages with encoding/json.
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", msg, err)
	}
	return b, nil
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("failed to unmarshal %T: %w", msg, err)
	}
	return nil
}

// WithCodec returns the option that installs Codec on a handler or client.
func WithCodec() connect.Option {
	return connect.WithCodec(Codec{})
}
