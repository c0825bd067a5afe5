package tlv

import "testing"

func TestEncodeDecodeFieldsRoundTrip(t *testing.T) {
	fields := []Field{
		NewFieldU32(1, 7),
		NewFieldString(2, "plugin.vst3"),
		NewFieldBytes(3, []byte{0xde, 0xad, 0xbe, 0xef}),
	}
	encoded := EncodeFields(fields)

	got, err := DecodeFields(encoded)
	if err != nil {
		t.Fatalf("DecodeFields: %v", err)
	}
	if len(got) != len(fields) {
		t.Fatalf("got %d fields, want %d", len(got), len(fields))
	}

	u32, err := got[0].U32()
	if err != nil || u32 != 7 {
		t.Fatalf("field 0: got %v, %v, want 7", u32, err)
	}
	if got[1].String() != "plugin.vst3" {
		t.Fatalf("field 1: got %q", got[1].String())
	}
	if string(got[2].Value) != "\xde\xad\xbe\xef" {
		t.Fatalf("field 2: got %x", got[2].Value)
	}
}

func TestGetFieldReturnsFirstMatch(t *testing.T) {
	fields := []Field{NewFieldU8(9, 1), NewFieldU8(9, 2)}
	f, ok := GetField(fields, 9)
	if !ok {
		t.Fatalf("expected a match")
	}
	v, _ := f.U8()
	if v != 1 {
		t.Fatalf("got %d, want first match 1", v)
	}
}

func TestGetFieldsReturnsAllMatchesInOrder(t *testing.T) {
	fields := []Field{NewFieldU8(9, 1), NewFieldU32(4, 99), NewFieldU8(9, 2), NewFieldU8(9, 3)}
	matches := GetFields(fields, 9)
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	for i, want := range []uint8{1, 2, 3} {
		v, err := matches[i].U8()
		if err != nil || v != want {
			t.Fatalf("match %d: got %v,%v want %d", i, v, err, want)
		}
	}
}

func TestDecodeFieldsRejectsShortHeader(t *testing.T) {
	if _, err := DecodeFields([]byte{0x00, 0x01, 0x02}); err != ErrShortFieldHeader {
		t.Fatalf("got %v, want ErrShortFieldHeader", err)
	}
}

func TestDecodeFieldsRejectsTruncatedValue(t *testing.T) {
	f := NewFieldString(1, "hello world")
	encoded := EncodeField(f)
	truncated := encoded[:len(encoded)-3]
	if _, err := DecodeFields(truncated); err != ErrShortFieldValue {
		t.Fatalf("got %v, want ErrShortFieldValue", err)
	}
}

func TestMustTypeMismatch(t *testing.T) {
	f := NewFieldU32(1, 42)
	if err := MustType(f, TypeString); err == nil {
		t.Fatalf("expected a type mismatch error")
	}
	if err := MustType(f, TypeU32); err != nil {
		t.Fatalf("unexpected error for a matching type: %v", err)
	}
}
