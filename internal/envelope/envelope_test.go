package envelope_test

import (
	"bytes"
	"testing"

	"github.com/pluginhost/validatorctl/internal/envelope"
)

func TestPluginsRequestRoundTrip(t *testing.T) {
	req := envelope.PluginsRequest{
		Strictness: envelope.StrictnessLevel(10),
		Plugins: []envelope.PluginRef{
			{FileOrID: "plug-A"},
			{FileOrID: "plug-B"},
			{PluginDescriptor: []byte("opaque-descriptor-blob")},
		},
	}

	env := envelope.EncodePluginsRequest(req)
	wire := env.Encode()

	decodedEnv, err := envelope.Decode(envelope.MsgPlugins, wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	got, err := envelope.DecodePluginsRequest(decodedEnv)
	if err != nil {
		t.Fatalf("DecodePluginsRequest: %v", err)
	}

	if got.Strictness == nil || req.Strictness == nil || *got.Strictness != *req.Strictness {
		t.Fatalf("strictness mismatch: got %v want %v", got.Strictness, req.Strictness)
	}
	if len(got.Plugins) != len(req.Plugins) {
		t.Fatalf("plugin count mismatch: got %d want %d", len(got.Plugins), len(req.Plugins))
	}
	for i, want := range req.Plugins {
		g := got.Plugins[i]
		if g.FileOrID != want.FileOrID {
			t.Fatalf("plugin[%d].FileOrID mismatch: got %q want %q", i, g.FileOrID, want.FileOrID)
		}
		if !bytes.Equal(g.PluginDescriptor, want.PluginDescriptor) {
			t.Fatalf("plugin[%d].PluginDescriptor mismatch: got %v want %v", i, g.PluginDescriptor, want.PluginDescriptor)
		}
	}
}

func TestPluginsRequestEmptyBatch(t *testing.T) {
	env := envelope.EncodePluginsRequest(envelope.PluginsRequest{Strictness: envelope.StrictnessLevel(5)})
	decodedEnv, err := envelope.Decode(envelope.MsgPlugins, env.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := envelope.DecodePluginsRequest(decodedEnv)
	if err != nil {
		t.Fatalf("DecodePluginsRequest: %v", err)
	}
	if len(got.Plugins) != 0 {
		t.Fatalf("expected no plugins, got %d", len(got.Plugins))
	}
}

func TestPluginsRequestStrictnessAbsentStaysNil(t *testing.T) {
	env := envelope.EncodePluginsRequest(envelope.PluginsRequest{Plugins: []envelope.PluginRef{{FileOrID: "plug-A"}}})
	decodedEnv, err := envelope.Decode(envelope.MsgPlugins, env.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := envelope.DecodePluginsRequest(decodedEnv)
	if err != nil {
		t.Fatalf("DecodePluginsRequest: %v", err)
	}
	if got.Strictness != nil {
		t.Fatalf("expected nil strictness when omitted, got %v", *got.Strictness)
	}
}

func TestMessageEventRoundTrip(t *testing.T) {
	cases := []envelope.MessageEvent{
		envelope.Connected(),
		envelope.Started("plug-A"),
		envelope.Log("line1\nline2"),
		envelope.Result("plug-A", 3),
		envelope.Complete(),
	}

	for _, ev := range cases {
		env := envelope.EncodeMessageEvent(ev)
		decodedEnv, err := envelope.Decode(envelope.MsgMessage, env.Encode())
		if err != nil {
			t.Fatalf("Decode(type=%d): %v", ev.Type, err)
		}
		got, err := envelope.DecodeMessageEvent(decodedEnv)
		if err != nil {
			t.Fatalf("DecodeMessageEvent(type=%d): %v", ev.Type, err)
		}
		if got != ev {
			t.Fatalf("round trip mismatch: got %+v want %+v", got, ev)
		}
	}
}

func TestResultRequiresNonEmptyFileOrID(t *testing.T) {
	env := envelope.EncodeMessageEvent(envelope.Result("", 1))
	if _, err := envelope.Decode(envelope.MsgMessage, env.Encode()); err == nil {
		t.Fatalf("expected validation error for empty fileOrID in result")
	}
}

func TestDecodeToleratesNothingBeyondPayload(t *testing.T) {
	// The codec only ever sees exactly PayloadLen bytes; trailing garbage
	// on the wire is the frame layer's concern, not the codec's (§4.2).
	// This test documents that Decode over an exact payload slice never
	// looks past its bounds.
	env := envelope.EncodeMessageEvent(envelope.Complete())
	wire := env.Encode()
	if _, err := envelope.Decode(envelope.MsgMessage, wire[:len(wire)]); err != nil {
		t.Fatalf("Decode: %v", err)
	}
}

func TestUnknownMessageType(t *testing.T) {
	if _, err := envelope.Decode(999, nil); err == nil {
		t.Fatalf("expected error for unknown message type")
	}
}
