// Package cmn provides common low-level types and utilities shared by
// every shardkeep package: the server, the peer daemon, and the engines
// that move blocks between them.
package cmn

import "fmt"

// BlockType distinguishes a plain data block from the metadata block
// that carries a parity group's hashes and XOR parity.
type BlockType string

const (
	DataBlock BlockType = "data"
	MetaBlock BlockType = "metadata"

	// AnyNumber and AnyType are the wildcard values used in ask_block
	// and delete_block queries (spec.md section 6).
	AnyNumber = "*"
	AnyType   = "*"
)

func (bt BlockType) String() string { return string(bt) }

// IsValid reports whether bt is one of the two recognized block types.
func (bt BlockType) IsValid() bool {
	return bt == DataBlock || bt == MetaBlock
}

// BlockID is the triple (file_name, block_number, block_type) that
// uniquely identifies a duplicate-group of block files across peers.
type BlockID struct {
	Name   string
	Number int
	Type   BlockType
}

func (id BlockID) String() string {
	return fmt.Sprintf("%s/%d.%s", id.Name, id.Number, id.Type)
}

// FileName returns the deterministic on-disk block file name, per
// spec.md section 6: "{name}_{number}.{block_type}".
func (id BlockID) FileName() string {
	return fmt.Sprintf("%s_%d.%s", id.Name, id.Number, id.Type)
}

// SimpleKVs is a convenience alias used for loosely typed key/value
// payloads that travel over the wire before being decoded into a
// concrete message type.
type SimpleKVs map[string]interface{}
