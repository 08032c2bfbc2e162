package distribute

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shardkeep/shardkeep/cmn"
	"github.com/shardkeep/shardkeep/crypto"
	"github.com/shardkeep/shardkeep/wire"
)

type sentMsg struct {
	peer string
	msg  cmn.SimpleKVs
}

func captureSend(sent *[]sentMsg) SendFunc {
	return func(peer string, msg cmn.SimpleKVs) error {
		*sent = append(*sent, sentMsg{peer: peer, msg: msg})
		return nil
	}
}

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "report.bin")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestDistributeDuplicationAndMetadataCounts(t *testing.T) {
	// 7 blocks of size 4, D=2, V=3 => P4: data messages = 7*2=14,
	// metadata messages = ceil(7/3)=3.
	content := make([]byte, 28)
	for i := range content {
		content[i] = byte(i)
	}
	path := writeTempFile(t, content)

	var sent []sentMsg
	req := Request{
		FilePath:         path,
		BlockSize:        4,
		DuplicationLevel: 2,
		ValidationLevel:  3,
		Key:              crypto.DeriveKey([]byte("seed")),
		Peers:            []string{"p0", "p1", "p2"},
	}
	task := New("t1", req, captureSend(&sent))
	result := task.Run()

	if !result.Success {
		t.Fatalf("expected success, got err %v", result.Err)
	}
	if result.BlockNumber != 7 {
		t.Fatalf("got block number %d, want 7", result.BlockNumber)
	}

	dataCount, metaCount := 0, 0
	for _, s := range sent {
		switch wire.TypeOf(s.msg) {
		case wire.TypeSendBlock:
			if s.msg["block_type"] == string(cmn.DataBlock) {
				dataCount++
			} else if s.msg["block_type"] == string(cmn.MetaBlock) {
				metaCount++
			}
		}
	}
	if dataCount != 14 {
		t.Fatalf("got %d data messages, want 14", dataCount)
	}
	if metaCount != 3 {
		t.Fatalf("got %d metadata messages, want 3", metaCount)
	}
}

func TestDistributeRoundRobinAssignment(t *testing.T) {
	// P5: for |peers|=P, data_idx = ((n-1)*D + i) mod P for the i-th
	// duplicate (0-based) of block n.
	content := make([]byte, 12) // 3 blocks of size 4
	path := writeTempFile(t, content)

	var sent []sentMsg
	req := Request{
		FilePath:         path,
		BlockSize:        4,
		DuplicationLevel: 2,
		ValidationLevel:  10, // no mid-loop flush; only trailing group
		Key:              crypto.DeriveKey([]byte("seed")),
		Peers:            []string{"p0", "p1", "p2"},
	}
	task := New("t1", req, captureSend(&sent))
	task.Run()

	// First duplicate of block 1 goes to peers[0] (data_idx starts at 0),
	// and the k-th data message overall goes to peers[k mod P].
	firstDataMsgs := 0
	for _, s := range sent {
		if wire.TypeOf(s.msg) == wire.TypeSendBlock && s.msg["block_type"] == string(cmn.DataBlock) {
			if want := req.Peers[firstDataMsgs%len(req.Peers)]; s.peer != want {
				t.Fatalf("data message %d should go to %s, got %s", firstDataMsgs, want, s.peer)
			}
			firstDataMsgs++
		}
	}
}

func TestDistributeMissingFileReportsFileNotFound(t *testing.T) {
	req := Request{
		FilePath:         filepath.Join(t.TempDir(), "does-not-exist.bin"),
		BlockSize:        4,
		DuplicationLevel: 1,
		ValidationLevel:  2,
		Key:              crypto.DeriveKey([]byte("seed")),
		Peers:            []string{"p0"},
	}
	var sent []sentMsg
	task := New("t1", req, captureSend(&sent))
	result := task.Run()

	if result.Success {
		t.Fatal("expected failure for missing file")
	}
	if cmn.KindOf(result.Err) != cmn.ErrFileNotFound {
		t.Fatalf("expected ErrFileNotFound, got %v", result.Err)
	}
}

func TestDistributeCancellation(t *testing.T) {
	content := make([]byte, 4096)
	path := writeTempFile(t, content)

	req := Request{
		FilePath:         path,
		BlockSize:        4,
		DuplicationLevel: 1,
		ValidationLevel:  2,
		Key:              crypto.DeriveKey([]byte("seed")),
		Peers:            []string{"p0"},
	}
	var sent []sentMsg
	task := New("t1", req, captureSend(&sent))
	task.Cancel()
	result := task.Run()

	if result.Success {
		t.Fatal("expected cancellation to prevent success")
	}
	if cmn.KindOf(result.Err) != cmn.ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", result.Err)
	}
}

func TestDistributeSmallFileProducesOneDataAndOneMetadataBlock(t *testing.T) {
	content := []byte("hi") // shorter than one block_size
	path := writeTempFile(t, content)

	req := Request{
		FilePath:         path,
		BlockSize:        16,
		DuplicationLevel: 1,
		ValidationLevel:  4,
		Key:              crypto.DeriveKey([]byte("seed")),
		Peers:            []string{"p0"},
	}
	var sent []sentMsg
	task := New("t1", req, captureSend(&sent))
	result := task.Run()
	if !result.Success {
		t.Fatalf("expected success, got %v", result.Err)
	}

	dataCount, metaCount := 0, 0
	for _, s := range sent {
		if s.msg["block_type"] == string(cmn.DataBlock) {
			dataCount++
		} else if s.msg["block_type"] == string(cmn.MetaBlock) {
			metaCount++
		}
	}
	if dataCount != 1 || metaCount != 1 {
		t.Fatalf("got data=%d meta=%d, want 1 and 1", dataCount, metaCount)
	}
}
