// Package envelope implements the wire schema for the supervisor/worker
// protocol: a closed set of envelope shapes (a PLUGINS batch request, and
// a MESSAGE event carrying one of five outcomes) built on top of the tlv
// field encoding. This replaces a general-purpose tagged property tree
// with a closed sum type, since no other envelope shapes are ever sent on
// this wire.
package envelope

import (
	"github.com/pluginhost/validatorctl/internal/envelope/tlv"
)

// Envelope is the generic wire shape: a message type tag plus a flat
// TLV field list. Domain-specific encode/decode helpers (PluginsRequest,
// MessageEvent) build and parse the field list; Envelope itself carries
// no semantics beyond the type tag.
type Envelope struct {
	MessageType uint32
	Fields      []tlv.Field
}

// Encode renders the field list into the bytes that ride as an outer
// frame's payload.
func (e Envelope) Encode() []byte {
	return tlv.EncodeFields(e.Fields)
}

// Decode parses a frame payload into an Envelope, validating the
// required-field contract for messageType before returning it. An
// envelope that fails validation is considered malformed and should be
// dropped by the caller, not treated as a connection loss (see
// internal/transport).
func Decode(messageType uint32, payload []byte) (Envelope, error) {
	fields, err := tlv.DecodeFields(payload)
	if err != nil {
		return Envelope{}, err
	}
	if err := validateFields(messageType, fields); err != nil {
		return Envelope{}, err
	}
	return Envelope{MessageType: messageType, Fields: fields}, nil
}
