package envelope

import (
	"encoding/base64"
	"fmt"

	"github.com/pluginhost/validatorctl/internal/envelope/tlv"
)

// MessageEvent is the MESSAGE envelope: one of five outcomes selected by
// Type, each carrying only the auxiliary properties §3 names for it.
type MessageEvent struct {
	Type        uint8
	FileOrID    string
	Text        string
	NumFailures int
}

func Connected() MessageEvent { return MessageEvent{Type: EventConnected} }

func Started(fileOrID string) MessageEvent {
	return MessageEvent{Type: EventStarted, FileOrID: fileOrID}
}

func Log(text string) MessageEvent {
	return MessageEvent{Type: EventLog, Text: text}
}

func Result(fileOrID string, numFailures int) MessageEvent {
	return MessageEvent{Type: EventResult, FileOrID: fileOrID, NumFailures: numFailures}
}

func Complete() MessageEvent { return MessageEvent{Type: EventComplete} }

// EncodeMessageEvent builds the wire Envelope for ev.
func EncodeMessageEvent(ev MessageEvent) Envelope {
	fields := []tlv.Field{tlv.NewFieldU8(FieldEventType, ev.Type)}
	switch ev.Type {
	case EventStarted:
		fields = append(fields, tlv.NewFieldString(FieldFileOrID, ev.FileOrID))
	case EventLog:
		fields = append(fields, tlv.NewFieldString(FieldText, ev.Text))
	case EventResult:
		fields = append(fields,
			tlv.NewFieldString(FieldFileOrID, ev.FileOrID),
			tlv.NewFieldU32(FieldNumFailures, uint32(ev.NumFailures)),
		)
	}
	return Envelope{MessageType: MsgMessage, Fields: fields}
}

// DecodeMessageEvent extracts a MessageEvent from an already-decoded
// Envelope of type MsgMessage.
func DecodeMessageEvent(env Envelope) (MessageEvent, error) {
	if env.MessageType != MsgMessage {
		return MessageEvent{}, fmt.Errorf("envelope: expected MsgMessage, got %d", env.MessageType)
	}
	typeField, _ := tlv.GetField(env.Fields, FieldEventType)
	eventType, err := typeField.U8()
	if err != nil {
		return MessageEvent{}, fmt.Errorf("envelope: decoding event type: %w", err)
	}

	ev := MessageEvent{Type: eventType}
	switch eventType {
	case EventStarted:
		f, _ := tlv.GetField(env.Fields, FieldFileOrID)
		ev.FileOrID = f.String()
	case EventLog:
		f, _ := tlv.GetField(env.Fields, FieldText)
		ev.Text = f.String()
	case EventResult:
		f, _ := tlv.GetField(env.Fields, FieldFileOrID)
		ev.FileOrID = f.String()
		n, _ := tlv.GetField(env.Fields, FieldNumFailures)
		numFailures, err := n.U32()
		if err != nil {
			return MessageEvent{}, fmt.Errorf("envelope: decoding numFailures: %w", err)
		}
		ev.NumFailures = int(numFailures)
	}
	return ev, nil
}

func encodeDescriptorBase64(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

func decodeDescriptorBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
