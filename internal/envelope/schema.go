package envelope

import (
	"fmt"

	"github.com/pluginhost/validatorctl/internal/envelope/tlv"
)

// Message type IDs, the envelope's outermost tag.
const (
	MsgPlugins uint32 = 1
	MsgMessage uint32 = 2
)

// Event type IDs, carried as the "type" property of a MsgMessage envelope.
const (
	EventConnected uint8 = 1
	EventStarted   uint8 = 2
	EventLog       uint8 = 3
	EventResult    uint8 = 4
	EventComplete  uint8 = 5
)

// Field IDs.
const (
	FieldStrictness        uint16 = 1
	FieldPlugin            uint16 = 2 // repeated, one per PLUGIN child
	FieldFileOrID          uint16 = 3
	FieldPluginDescription uint16 = 4
	FieldEventType         uint16 = 5
	FieldText              uint16 = 6
	FieldNumFailures       uint16 = 7
)

type requirement struct {
	id   uint16
	kind uint8
}

type ValidationError struct {
	MessageType uint32
	EventType   uint8
	FieldID     uint16
	Reason      string
}

func (e ValidationError) Error() string {
	if e.FieldID == 0 {
		return fmt.Sprintf("envelope: message_type=%d: %s", e.MessageType, e.Reason)
	}
	return fmt.Sprintf("envelope: message_type=%d field=%d: %s", e.MessageType, e.FieldID, e.Reason)
}

// pluginsRequirements is empty: strictnessLevel is genuinely optional on
// the wire (§4.4 step 1 "default 5 if absent" only makes sense if absence
// is possible), and PLUGIN children are likewise allowed to be empty
// (§8 scenario "empty batch").
var pluginsRequirements = []requirement{}

// eventRequirements enforces invariants 4-5: a result carries a non-empty
// fileOrID and a numFailures field; started carries a fileOrID; log
// carries text; connected and complete carry no extras.
var eventRequirements = map[uint8][]requirement{
	EventConnected: {},
	EventStarted:   {{FieldFileOrID, tlv.TypeString}},
	EventLog:       {{FieldText, tlv.TypeString}},
	EventResult: {
		{FieldFileOrID, tlv.TypeString},
		{FieldNumFailures, tlv.TypeU32},
	},
	EventComplete: {},
}

// validateFields enforces the required-field/required-type contract for
// messageType, and for MsgMessage additionally validates the nested event
// shape selected by its "type" property.
func validateFields(messageType uint32, fields []tlv.Field) error {
	switch messageType {
	case MsgPlugins:
		return requireAll(messageType, 0, fields, pluginsRequirements)
	case MsgMessage:
		typeField, ok := tlv.GetField(fields, FieldEventType)
		if !ok {
			return ValidationError{MessageType: messageType, FieldID: FieldEventType, Reason: "missing required field"}
		}
		eventType, err := typeField.U8()
		if err != nil {
			return ValidationError{MessageType: messageType, FieldID: FieldEventType, Reason: "type mismatch"}
		}
		reqs, ok := eventRequirements[eventType]
		if !ok {
			return ValidationError{MessageType: messageType, Reason: fmt.Sprintf("unknown event type %d", eventType)}
		}
		if err := requireAll(messageType, eventType, fields, reqs); err != nil {
			return err
		}
		if eventType == EventResult {
			f, _ := tlv.GetField(fields, FieldFileOrID)
			if f.String() == "" {
				return ValidationError{MessageType: messageType, EventType: eventType, FieldID: FieldFileOrID, Reason: "result fileOrID must be non-empty"}
			}
			n, _ := f.U32()
			_ = n
		}
		return nil
	default:
		return ValidationError{MessageType: messageType, Reason: "unknown message_type"}
	}
}

func requireAll(messageType uint32, eventType uint8, fields []tlv.Field, reqs []requirement) error {
	for _, req := range reqs {
		f, found := tlv.GetField(fields, req.id)
		if !found {
			return ValidationError{MessageType: messageType, EventType: eventType, FieldID: req.id, Reason: "missing required field"}
		}
		if f.Type != req.kind {
			return ValidationError{MessageType: messageType, EventType: eventType, FieldID: req.id, Reason: "type mismatch"}
		}
	}
	return nil
}
