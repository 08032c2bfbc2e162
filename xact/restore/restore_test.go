package restore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shardkeep/shardkeep/cmn"
	"github.com/shardkeep/shardkeep/crypto"
	"github.com/shardkeep/shardkeep/wire"
)

type testFile struct {
	key     []byte
	name    string
	blocks  map[int][]byte // block number -> plaintext content
	V       int
	N       int
	groups  map[int][]byte // group number -> xor
	hashes  map[int]map[int]string
}

func buildTestFile(name string, blockContents [][]byte, V int) *testFile {
	tf := &testFile{
		key:    crypto.DeriveKey([]byte("restore-test-seed")),
		name:   name,
		blocks: make(map[int][]byte),
		V:      V,
		N:      len(blockContents),
		groups: make(map[int][]byte),
		hashes: make(map[int]map[int]string),
	}
	for i, c := range blockContents {
		n := i + 1
		tf.blocks[n] = c
		g := (n-1)/V + 1
		tf.groups[g] = crypto.XorPad(tf.groups[g], c)
		if tf.hashes[g] == nil {
			tf.hashes[g] = map[int]string{}
		}
		tf.hashes[g][n] = crypto.HashHex(c)
	}
	return tf
}

func (tf *testFile) encryptedDataBlock(t *testing.T, n int) []byte {
	t.Helper()
	enc, err := crypto.Encrypt(tf.key, tf.blocks[n])
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	return enc
}

func (tf *testFile) encryptedMetadata(t *testing.T, group int) []byte {
	t.Helper()
	meta := &wire.GroupMetadata{Hashes: tf.hashes[group], Xor: tf.groups[group]}
	raw, err := meta.Marshal()
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	enc, err := crypto.Encrypt(tf.key, raw)
	if err != nil {
		t.Fatalf("encrypt metadata: %v", err)
	}
	return enc
}

func newRestoreRequest(tf *testFile, tempDir, destPath string, peers []string) Request {
	return Request{
		DestinationPath: destPath,
		Name:            tf.name,
		BlockNumber:     tf.N,
		ValidationLevel: tf.V,
		Peers:           peers,
		Key:             tf.key,
		TempDir:         tempDir,
	}
}

func TestRestoreRoundTripHappyPath(t *testing.T) {
	tf := buildTestFile("f.bin", [][]byte{[]byte("aaaa"), []byte("bbbb"), []byte("cccc"), []byte("dddd")}, 2)
	tempDir := t.TempDir()
	destPath := filepath.Join(t.TempDir(), "out.bin")

	req := newRestoreRequest(tf, tempDir, destPath, []string{"p0"})
	task := New("r1", req)

	for n := 1; n <= tf.N; n++ {
		task.Deliver(PeerMessage{Peer: "p0", Msg: wire.Block(cmn.DataBlock, tf.name, n, tf.encryptedDataBlock(t, n))})
	}
	task.Deliver(PeerMessage{Peer: "p0", Msg: wire.Block(cmn.MetaBlock, tf.name, 1, tf.encryptedMetadata(t, 1))})
	task.Deliver(PeerMessage{Peer: "p0", Msg: wire.Block(cmn.MetaBlock, tf.name, 2, tf.encryptedMetadata(t, 2))})
	task.Deliver(PeerMessage{Peer: "p0", Msg: wire.FileSent(tf.name)})

	result := task.Run()
	if !result.Success {
		t.Fatalf("expected success, got %v", result.Err)
	}

	got, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	want := "aaaabbbbccccdddd"
	if string(got) != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestRestoreSingleLossRecovery(t *testing.T) {
	tf := buildTestFile("f.bin", [][]byte{[]byte("aaaa"), []byte("bbbb"), []byte("cccc"), []byte("dddd")}, 2)
	tempDir := t.TempDir()
	destPath := filepath.Join(t.TempDir(), "out.bin")

	req := newRestoreRequest(tf, tempDir, destPath, []string{"p0"})
	task := New("r1", req)

	// Omit block 2 (group 1), but metadata for group 1 and 2 is present,
	// and block 1 is present, so group 1's missing block 2 is repairable.
	task.Deliver(PeerMessage{Peer: "p0", Msg: wire.Block(cmn.DataBlock, tf.name, 1, tf.encryptedDataBlock(t, 1))})
	task.Deliver(PeerMessage{Peer: "p0", Msg: wire.Block(cmn.DataBlock, tf.name, 3, tf.encryptedDataBlock(t, 3))})
	task.Deliver(PeerMessage{Peer: "p0", Msg: wire.Block(cmn.DataBlock, tf.name, 4, tf.encryptedDataBlock(t, 4))})
	task.Deliver(PeerMessage{Peer: "p0", Msg: wire.Block(cmn.MetaBlock, tf.name, 1, tf.encryptedMetadata(t, 1))})
	task.Deliver(PeerMessage{Peer: "p0", Msg: wire.Block(cmn.MetaBlock, tf.name, 2, tf.encryptedMetadata(t, 2))})
	task.Deliver(PeerMessage{Peer: "p0", Msg: wire.FileSent(tf.name)})

	result := task.Run()
	if !result.Success {
		t.Fatalf("expected successful single-loss recovery, got %v", result.Err)
	}

	got, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	want := "aaaabbbbccccdddd"
	if string(got) != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestRestoreUnrecoverableWithTwoMissingInGroup(t *testing.T) {
	tf := buildTestFile("f.bin", [][]byte{[]byte("aaaa"), []byte("bbbb"), []byte("cccc"), []byte("dddd")}, 2)
	tempDir := t.TempDir()
	destPath := filepath.Join(t.TempDir(), "out.bin")

	req := newRestoreRequest(tf, tempDir, destPath, []string{"p0"})
	task := New("r1", req)

	// Group 1 (blocks 1,2) both missing; group 2 intact.
	task.Deliver(PeerMessage{Peer: "p0", Msg: wire.Block(cmn.DataBlock, tf.name, 3, tf.encryptedDataBlock(t, 3))})
	task.Deliver(PeerMessage{Peer: "p0", Msg: wire.Block(cmn.DataBlock, tf.name, 4, tf.encryptedDataBlock(t, 4))})
	task.Deliver(PeerMessage{Peer: "p0", Msg: wire.Block(cmn.MetaBlock, tf.name, 1, tf.encryptedMetadata(t, 1))})
	task.Deliver(PeerMessage{Peer: "p0", Msg: wire.Block(cmn.MetaBlock, tf.name, 2, tf.encryptedMetadata(t, 2))})
	task.Deliver(PeerMessage{Peer: "p0", Msg: wire.FileSent(tf.name)})

	result := task.Run()
	if result.Success {
		t.Fatal("expected restore to fail with two missing blocks in one group")
	}
	if cmn.KindOf(result.Err) != cmn.ErrCorrupted {
		t.Fatalf("expected ErrCorrupted, got %v", result.Err)
	}
}

func TestRestoreCancellation(t *testing.T) {
	tf := buildTestFile("f.bin", [][]byte{[]byte("aaaa")}, 2)
	tempDir := t.TempDir()
	destPath := filepath.Join(t.TempDir(), "out.bin")

	req := newRestoreRequest(tf, tempDir, destPath, []string{"p0"})
	task := New("r1", req)
	task.Cancel()

	result := task.Run()
	if result.Success {
		t.Fatal("expected cancellation to prevent success")
	}
	if cmn.KindOf(result.Err) != cmn.ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", result.Err)
	}
}

func TestRestoreZeroPeersIsCorrupted(t *testing.T) {
	tf := buildTestFile("f.bin", [][]byte{[]byte("aaaa")}, 2)
	tempDir := t.TempDir()
	destPath := filepath.Join(t.TempDir(), "out.bin")

	req := newRestoreRequest(tf, tempDir, destPath, nil)
	task := New("r1", req)

	result := task.Run()
	if result.Success {
		t.Fatal("expected restore with zero peers to fail")
	}
	if cmn.KindOf(result.Err) != cmn.ErrCorrupted {
		t.Fatalf("expected ErrCorrupted, got %v", result.Err)
	}
}
