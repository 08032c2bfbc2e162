// Package ctl implements the control protocol between shardctl (the
// CLI) and shardserver (the coordinator process): a one-shot
// request/response exchange over the same length-prefixed frame codec
// wire.Encode/Decode uses for the peer protocol (spec.md section 6),
// reusing that codec rather than introducing a second one for a
// second kind of connection.
//
// Grounded on wire/messages.go's builder-function style: each command
// gets a small constructor returning a cmn.SimpleKVs, dispatched on
// the same "type" field convention the peer protocol already uses.
package ctl

import "github.com/shardkeep/shardkeep/cmn"

const (
	TypeDistribute  = "cmd_distribute"
	TypeRestore     = "cmd_restore"
	TypeReconstruct = "cmd_reconstruct"
	TypeDelete      = "cmd_delete"
	TypeKill        = "cmd_kill"
	TypeKillThread  = "cmd_kill_thread"
	TypeLS          = "cmd_ls"
	TypeStats       = "cmd_stats"
	TypeClients     = "cmd_clients"
	TypeResponse    = "cmd_response"
)

func Distribute(filePath string, blockSize int64, duplicationLevel, validationLevel int) cmn.SimpleKVs {
	return cmn.SimpleKVs{
		"type": TypeDistribute, "file_path": filePath, "block_size": blockSize,
		"duplication_level": duplicationLevel, "validation_level": validationLevel,
	}
}

func Restore(name, destinationPath string) cmn.SimpleKVs {
	return cmn.SimpleKVs{"type": TypeRestore, "name": name, "destination_path": destinationPath}
}

func Reconstruct() cmn.SimpleKVs { return cmn.SimpleKVs{"type": TypeReconstruct} }

func Delete(name string) cmn.SimpleKVs { return cmn.SimpleKVs{"type": TypeDelete, "name": name} }

func Kill(peer string) cmn.SimpleKVs { return cmn.SimpleKVs{"type": TypeKill, "peer": peer} }

func KillThread(name string) cmn.SimpleKVs {
	return cmn.SimpleKVs{"type": TypeKillThread, "name": name}
}

func LS() cmn.SimpleKVs { return cmn.SimpleKVs{"type": TypeLS} }

func Stats() cmn.SimpleKVs { return cmn.SimpleKVs{"type": TypeStats} }

func Clients() cmn.SimpleKVs { return cmn.SimpleKVs{"type": TypeClients} }

// Response wraps the result of any command above. Data is command
// specific: TypeLS returns a "files" array, TypeStats a "tasks" array,
// TypeClients a "peers" array.
func Response(ok bool, errMsg string, data cmn.SimpleKVs) cmn.SimpleKVs {
	if data == nil {
		data = cmn.SimpleKVs{}
	}
	data["type"] = TypeResponse
	data["ok"] = ok
	data["error"] = errMsg
	return data
}
