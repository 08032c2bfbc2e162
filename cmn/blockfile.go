package cmn

import (
	"strconv"
	"strings"
)

// ParseBlockFileName implements the on-disk block naming rule (spec.md
// section 6): split on the last underscore for (name, rest), then
// split rest on the last dot for (number, block_type).
func ParseBlockFileName(fileName string) (BlockID, error) {
	us := strings.LastIndex(fileName, "_")
	if us < 0 {
		return BlockID{}, NewError(ErrMalformedFrame, "not a block file name: "+fileName)
	}
	name, rest := fileName[:us], fileName[us+1:]
	dot := strings.LastIndex(rest, ".")
	if dot < 0 {
		return BlockID{}, NewError(ErrMalformedFrame, "not a block file name: "+fileName)
	}
	numStr, blockType := rest[:dot], rest[dot+1:]
	number, err := strconv.Atoi(numStr)
	if err != nil {
		return BlockID{}, NewError(ErrMalformedFrame, "bad block number in: "+fileName)
	}
	bt := BlockType(blockType)
	if !bt.IsValid() {
		return BlockID{}, NewError(ErrMalformedFrame, "bad block type in: "+fileName)
	}
	return BlockID{Name: name, Number: number, Type: bt}, nil
}
