package envelope

import (
	"fmt"

	"github.com/pluginhost/validatorctl/internal/envelope/tlv"
)

// PluginRef names one child of a batch request: exactly one of FileOrID
// or PluginDescriptor is expected to be set (§3).
type PluginRef struct {
	FileOrID string
	// PluginDescriptor is the raw descriptor blob, opaque to the
	// transport. It rides the wire base64-encoded inside a string field
	// and is decoded back to raw bytes here.
	PluginDescriptor []byte
}

// PluginsRequest is the PLUGINS batch request: an optional strictness
// level plus an ordered sequence of PLUGIN children. Strictness is a nil
// pointer when the sender omits strictnessLevel entirely; it is never
// synthesized from a zero value, since strictness is opaque to the
// orchestrator (GLOSSARY) and 0 is a legitimate explicit level, not a
// stand-in for "unset".
type PluginsRequest struct {
	Strictness *int
	Plugins    []PluginRef
}

// StrictnessLevel is a small constructor for PluginsRequest.Strictness,
// since Go has no literal syntax for "pointer to this int".
func StrictnessLevel(v int) *int {
	return &v
}

// EncodePluginsRequest builds the wire Envelope for req. Each child is
// encoded as its own nested TLV group (a length-prefixed bytes field
// under FieldPlugin) so that document order survives the otherwise-flat
// TLV payload — the one place this codec goes beyond the teacher's flat
// field list, since PLUGIN children repeat and must stay ordered.
func EncodePluginsRequest(req PluginsRequest) Envelope {
	var fields []tlv.Field
	if req.Strictness != nil {
		fields = append(fields, tlv.NewFieldU32(FieldStrictness, uint32(*req.Strictness)))
	}
	for _, p := range req.Plugins {
		fields = append(fields, tlv.NewFieldBytes(FieldPlugin, encodePluginRef(p)))
	}
	return Envelope{MessageType: MsgPlugins, Fields: fields}
}

// DecodePluginsRequest extracts a PluginsRequest from an already-decoded
// Envelope of type MsgPlugins. strictnessLevel is genuinely optional on
// the wire (see schema.go); the default-if-absent rule (§4.4 step 1) is
// applied by the worker dispatcher, not here, so this layer only reports
// what was actually on the wire.
func DecodePluginsRequest(env Envelope) (PluginsRequest, error) {
	if env.MessageType != MsgPlugins {
		return PluginsRequest{}, fmt.Errorf("envelope: expected MsgPlugins, got %d", env.MessageType)
	}

	req := PluginsRequest{}
	if f, ok := tlv.GetField(env.Fields, FieldStrictness); ok {
		v, err := f.U32()
		if err != nil {
			return PluginsRequest{}, fmt.Errorf("envelope: decoding strictnessLevel: %w", err)
		}
		req.Strictness = StrictnessLevel(int(v))
	}
	for _, group := range tlv.GetFields(env.Fields, FieldPlugin) {
		ref, err := decodePluginRef(group.Value)
		if err != nil {
			return PluginsRequest{}, fmt.Errorf("envelope: decoding PLUGIN child: %w", err)
		}
		req.Plugins = append(req.Plugins, ref)
	}
	return req, nil
}

func encodePluginRef(p PluginRef) []byte {
	var fields []tlv.Field
	if p.FileOrID != "" {
		fields = append(fields, tlv.NewFieldString(FieldFileOrID, p.FileOrID))
	} else {
		fields = append(fields, tlv.NewFieldString(FieldPluginDescription, encodeDescriptorBase64(p.PluginDescriptor)))
	}
	return tlv.EncodeFields(fields)
}

func decodePluginRef(payload []byte) (PluginRef, error) {
	fields, err := tlv.DecodeFields(payload)
	if err != nil {
		return PluginRef{}, err
	}
	if f, ok := tlv.GetField(fields, FieldFileOrID); ok {
		return PluginRef{FileOrID: f.String()}, nil
	}
	if f, ok := tlv.GetField(fields, FieldPluginDescription); ok {
		raw, err := decodeDescriptorBase64(f.String())
		if err != nil {
			return PluginRef{}, err
		}
		return PluginRef{PluginDescriptor: raw}, nil
	}
	return PluginRef{}, nil
}
