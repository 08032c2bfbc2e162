package wire

import "github.com/shardkeep/shardkeep/cmn"

// Message type tags, spec.md section 6.
const (
	TypeSendBlock     = "send_block"
	TypeAskBlock       = "ask_block"
	TypeDeleteBlock    = "delete_block"
	TypeAskDiskState   = "ask_disk_state"
	TypeAskStorageState = "ask_storage_state"
	TypeKill           = "kill"

	TypeBlock        = "block"
	TypeFileSent     = "file_sent"
	TypeDiskState    = "disk_state"
	TypeStorageState = "storage_state"
)

// SendBlock builds a server->peer send_block message. number is an
// int; content is already AES-encrypted.
func SendBlock(blockType cmn.BlockType, name string, number int, content []byte) cmn.SimpleKVs {
	return cmn.SimpleKVs{
		"type":       TypeSendBlock,
		"block_type": string(blockType),
		"name":       name,
		"number":     number,
		"content":    content,
	}
}

// AskBlock builds a server->peer query. blockType and number accept
// cmn.AnyType/cmn.AnyNumber as wildcards.
func AskBlock(name string, blockType, number interface{}) cmn.SimpleKVs {
	return cmn.SimpleKVs{
		"type":       TypeAskBlock,
		"name":       name,
		"block_type": blockType,
		"number":     number,
	}
}

func DeleteBlock(name string, blockType, number interface{}) cmn.SimpleKVs {
	return cmn.SimpleKVs{
		"type":       TypeDeleteBlock,
		"name":       name,
		"block_type": blockType,
		"number":     number,
	}
}

func AskDiskState() cmn.SimpleKVs {
	return cmn.SimpleKVs{"type": TypeAskDiskState}
}

func AskStorageState() cmn.SimpleKVs {
	return cmn.SimpleKVs{"type": TypeAskStorageState}
}

func Kill() cmn.SimpleKVs {
	return cmn.SimpleKVs{"type": TypeKill}
}

// Block builds a peer->server block response.
func Block(blockType cmn.BlockType, name string, number int, content []byte) cmn.SimpleKVs {
	return cmn.SimpleKVs{
		"type":       TypeBlock,
		"block_type": string(blockType),
		"name":       name,
		"number":     number,
		"content":    content,
	}
}

func FileSent(name string) cmn.SimpleKVs {
	return cmn.SimpleKVs{"type": TypeFileSent, "name": name}
}

func DiskState(total, free uint64) cmn.SimpleKVs {
	return cmn.SimpleKVs{"type": TypeDiskState, "total": total, "free": free}
}

// BlockDescriptor names one block in a storage_state inventory reply.
type BlockDescriptor struct {
	Name      string `json:"name"`
	Number    int    `json:"number"`
	BlockType string `json:"block_type"`
}

func StorageState(blocks []BlockDescriptor) cmn.SimpleKVs {
	return cmn.SimpleKVs{"type": TypeStorageState, "blocks": blocks}
}

// TypeOf safely extracts the "type" tag from a decoded message.
func TypeOf(msg cmn.SimpleKVs) string {
	t, _ := msg["type"].(string)
	return t
}
