// Package store implements the durable file-record metadata table
// (spec.md section 3 / section 4.3): insert, query, query_all, delete,
// delete_all, close. It is grounded directly on the teacher's
// downloader/db.go, which persists job bookkeeping the same way —
// one JSON document per record in a github.com/sdomino/scribble
// collection, guarded by a single mutex. Unlike downloader/db.go this
// store has no in-memory write-behind cache: spec.md section 4.3
// requires every operation to be synchronous and durable from the
// caller's perspective, which a cache would violate.
package store

import (
	"os"
	"sync"

	"github.com/golang/glog"
	jsoniter "github.com/json-iterator/go"
	"github.com/sdomino/scribble"

	"github.com/shardkeep/shardkeep/cmn"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const filesCollection = "files"

// FileRecord is the metadata store entry for one distributed file
// (spec.md section 3).
type FileRecord struct {
	Name             string `json:"name"`
	FileSize         int64  `json:"file_size"`
	BlockNumber      int    `json:"block_number"`
	DuplicationLevel int    `json:"duplication_level"`
	ValidationLevel  int    `json:"validation_level"`
	Key              []byte `json:"key"`
}

// Store is a durable table of FileRecord, keyed by unique file name.
type Store struct {
	mu     sync.RWMutex
	driver *scribble.Driver
}

// Open creates or attaches to the on-disk database rooted at dir; the
// records live as one JSON file each under dir's "files" collection
// directory.
func Open(dir string) (*Store, error) {
	driver, err := scribble.New(dir, nil)
	if err != nil {
		return nil, cmn.WrapError(cmn.ErrStorageFailure, "open metadata store", err)
	}
	return &Store{driver: driver}, nil
}

// Insert adds a new record. It fails with ErrNameExists if a record
// with the same name already exists (spec.md section 3: "A file name
// is unique in the metadata store; attempting to distribute a name
// that already exists is refused" / P8).
func (s *Store) Insert(rec FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing FileRecord
	if err := s.driver.Read(filesCollection, rec.Name, &existing); err == nil {
		return cmn.NewError(cmn.ErrNameExists, rec.Name)
	}
	if err := s.driver.Write(filesCollection, rec.Name, rec); err != nil {
		return cmn.WrapError(cmn.ErrStorageFailure, "insert "+rec.Name, err)
	}
	return nil
}

// Query returns the record for name, or (nil, nil) if it does not exist.
func (s *Store) Query(name string) (*FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec FileRecord
	if err := s.driver.Read(filesCollection, name, &rec); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, cmn.WrapError(cmn.ErrStorageFailure, "query "+name, err)
	}
	return &rec, nil
}

// QueryAll returns every record in the store, in no particular order.
func (s *Store) QueryAll() ([]FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names, err := s.driver.ReadAll(filesCollection)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, cmn.WrapError(cmn.ErrStorageFailure, "query all", err)
	}
	recs := make([]FileRecord, 0, len(names))
	for _, raw := range names {
		var rec FileRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			glog.Warningf("store: skipping corrupt record: %v", err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Delete removes the record for name. Deleting a name that does not
// exist is not an error (the coordinator's "delete" handler calls this
// unconditionally as part of distribute-failure cleanup).
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.driver.Delete(filesCollection, name); err != nil && !os.IsNotExist(err) {
		return cmn.WrapError(cmn.ErrStorageFailure, "delete "+name, err)
	}
	return nil
}

// DeleteAll removes every record (spec.md section 4.8: reconstruct's
// global delete(*)).
func (s *Store) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.driver.Delete(filesCollection, ""); err != nil && !os.IsNotExist(err) {
		return cmn.WrapError(cmn.ErrStorageFailure, "delete all", err)
	}
	return nil
}

// Close is a no-op placeholder: scribble keeps no persistent file
// handle open between operations, but Store.Close gives callers a
// symmetric lifecycle to the rest of the component table (spec.md
// section 4.3 lists close() as an operation).
func (s *Store) Close() error { return nil }
