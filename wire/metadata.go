package wire

import "github.com/shardkeep/shardkeep/cmn"

// GroupMetadata is the decrypted payload carried by a parity group's
// METADATA block (spec.md section 3 / section 6): a hash per DATA
// block number in the group, plus the group's XOR parity.
type GroupMetadata struct {
	Hashes map[int]string `json:"hashes"`
	Xor    []byte         `json:"xor"`
}

// Marshal serializes the metadata with the frame codec's inner
// encoder — jsoniter then deflate, the same compressed-object
// encoding used inside every frame (spec.md section 6: "a serialized
// map {hashes, xor}"). The result is what gets AES-encrypted and sent
// as a METADATA block's content.
func (m *GroupMetadata) Marshal() ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return deflate(raw)
}

// UnmarshalGroupMetadata parses a decrypted METADATA block payload.
// It returns an error (not a panic) on malformed input because a
// corrupted or truncated metadata block is an expected restore-time
// failure mode (spec.md section 4.7 Phase C: "metadata is absent or
// malformed").
func UnmarshalGroupMetadata(raw []byte) (*GroupMetadata, error) {
	inflated, err := inflate(raw)
	if err != nil {
		return nil, cmn.WrapError(cmn.ErrMalformedFrame, "decompress metadata", err)
	}
	var m GroupMetadata
	if err := json.Unmarshal(inflated, &m); err != nil {
		return nil, cmn.WrapError(cmn.ErrMalformedFrame, "unmarshal metadata", err)
	}
	if m.Hashes == nil {
		return nil, cmn.NewError(cmn.ErrMalformedFrame, "metadata missing hashes map")
	}
	return &m, nil
}
