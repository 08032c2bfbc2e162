// Package wire implements the length-prefixed frame codec used on
// every TCP connection between the coordinator and a peer (spec.md
// section 4.1 / section 6): a 4-byte big-endian length, followed by
// exactly that many bytes of a compressed, serialized message map.
package wire

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/flate"
	jsoniter "github.com/json-iterator/go"

	"github.com/shardkeep/shardkeep/cmn"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HeaderLen is the size in bytes of the length prefix.
const HeaderLen = 4

// compressionLevel favors encode/decode speed over ratio: block
// payloads are already AES-encrypted (high entropy) by the time they
// reach the frame codec, so only the map's JSON scaffolding compresses
// meaningfully.
const compressionLevel = flate.BestSpeed

// Encode serializes msg to JSON, deflates it, and prepends the 4-byte
// big-endian length of the compressed payload.
func Encode(msg cmn.SimpleKVs) ([]byte, error) {
	if _, ok := msg["type"]; !ok {
		return nil, cmn.NewError(cmn.ErrMalformedFrame, "message missing required \"type\" field")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, cmn.WrapError(cmn.ErrMalformedFrame, "marshal payload", err)
	}
	compressed, err := deflate(raw)
	if err != nil {
		return nil, cmn.WrapError(cmn.ErrMalformedFrame, "compress payload", err)
	}
	frame := make([]byte, HeaderLen+len(compressed))
	binary.BigEndian.PutUint32(frame[:HeaderLen], uint32(len(compressed)))
	copy(frame[HeaderLen:], compressed)
	return frame, nil
}

// binaryFields lists the cmn.SimpleKVs keys that carry raw []byte
// payloads on the wire (block content). encoding/json — and jsoniter's
// compatible config — marshals a []byte stored under an interface{}
// map value as a base64 string, the same way it would a typed []byte
// struct field; but Unmarshal into map[string]interface{} has no type
// hint to turn that string back into a []byte the way it would for a
// typed field (see GroupMetadata.Xor), so every message carrying one of
// these keys needs this explicit undo step after Unmarshal.
var binaryFields = [...]string{"content"}

// restoreBinaryFields base64-decodes msg's binaryFields in place,
// turning the JSON string Unmarshal produced back into the []byte the
// sender actually put on the wire.
func restoreBinaryFields(msg cmn.SimpleKVs) error {
	for _, field := range binaryFields {
		v, ok := msg[field]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return err
		}
		msg[field] = decoded
	}
	return nil
}

// Decode inflates and parses the payload of a single frame (the bytes
// following the length header). It fails with ErrKind ErrMalformedFrame
// if decompression or parsing fails, or the decoded value is not a map.
func Decode(payload []byte) (cmn.SimpleKVs, error) {
	raw, err := inflate(payload)
	if err != nil {
		return nil, cmn.WrapError(cmn.ErrMalformedFrame, "decompress payload", err)
	}
	var msg cmn.SimpleKVs
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, cmn.WrapError(cmn.ErrMalformedFrame, "unmarshal payload", err)
	}
	if _, ok := msg["type"]; !ok {
		return nil, cmn.NewError(cmn.ErrMalformedFrame, "message missing required \"type\" field")
	}
	if err := restoreBinaryFields(msg); err != nil {
		return nil, cmn.WrapError(cmn.ErrMalformedFrame, "decode binary field", err)
	}
	return msg, nil
}

// SplitHeader reads the 4-byte length prefix from a header buffer.
func SplitHeader(header []byte) uint32 {
	return binary.BigEndian.Uint32(header[:HeaderLen])
}

func deflate(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, compressionLevel)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(compressed []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return out, nil
}
