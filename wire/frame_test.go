package wire

import (
	"bytes"
	"testing"

	"github.com/shardkeep/shardkeep/cmn"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msg := SendBlock(cmn.DataBlock, "report.pdf", 3, []byte("encrypted-bytes"))

	frame, err := Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	length := SplitHeader(frame[:HeaderLen])
	payload := frame[HeaderLen:]
	if int(length) != len(payload) {
		t.Fatalf("length prefix %d does not match payload length %d", length, len(payload))
	}

	decoded, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if TypeOf(decoded) != TypeSendBlock {
		t.Fatalf("got type %q want %q", TypeOf(decoded), TypeSendBlock)
	}
	if decoded["name"] != "report.pdf" {
		t.Fatalf("got name %v", decoded["name"])
	}

	// content must survive the actual Encode->Decode path as a []byte,
	// not just in a hand-built cmn.SimpleKVs that never touched JSON:
	// jsoniter marshals a []byte under interface{} as a base64 string,
	// and Decode must undo that or every consumer's type assertion on
	// msg["content"] silently fails.
	content, ok := decoded["content"].([]byte)
	if !ok {
		t.Fatalf("decoded content is not a []byte, got %T", decoded["content"])
	}
	if !bytes.Equal(content, []byte("encrypted-bytes")) {
		t.Fatalf("got content %q want %q", content, "encrypted-bytes")
	}
}

func TestEncodeDecodeBlockContentRoundTrip(t *testing.T) {
	original := []byte{0x00, 0xff, 0x10, 0x02, 0xAB, 0xCD}
	msg := Block(cmn.MetaBlock, "f.bin", 1, original)

	frame, err := Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(frame[HeaderLen:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	content, ok := decoded["content"].([]byte)
	if !ok {
		t.Fatalf("decoded content is not a []byte, got %T", decoded["content"])
	}
	if !bytes.Equal(content, original) {
		t.Fatalf("got content %v want %v", content, original)
	}
}

func TestDecodeMalformedFrame(t *testing.T) {
	_, err := Decode([]byte("not a valid deflate stream"))
	if cmn.KindOf(err) != cmn.ErrMalformedFrame {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestEncodeRequiresTypeField(t *testing.T) {
	_, err := Encode(cmn.SimpleKVs{"name": "x"})
	if cmn.KindOf(err) != cmn.ErrMalformedFrame {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestGroupMetadataRoundTrip(t *testing.T) {
	meta := &GroupMetadata{
		Hashes: map[int]string{1: "abc", 2: "def"},
		Xor:    []byte{0x01, 0x02, 0x03},
	}
	raw, err := meta.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalGroupMetadata(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !bytes.Equal(got.Xor, meta.Xor) || got.Hashes[1] != "abc" || got.Hashes[2] != "def" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
