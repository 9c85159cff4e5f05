// Package bucket reads and writes the 256 JSON bucket files that hold every
// record in a gitkv working directory. A bucket file is the complete set of
// records for its shard; the store never does partial per-key rewrites.
package bucket

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gitkv-project/gitkv/internal/record"
)

// DataDirName is the fixed subdirectory, relative to a repo root, that holds
// the per-bucket JSON files.
const DataDirName = "data"

// Store reads and writes bucket files under <root>/data/<bucket>.json.
type Store struct {
	root   string
	logger *log.Logger

	writeCount atomic.Int64
	writeBytes atomic.Int64

	mu sync.Mutex
}

// New creates a Store rooted at root (the repository working directory).
// If logger is nil, a default stderr logger is used.
func New(root string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(os.Stderr, "[bucket] ", log.LstdFlags)
	}
	return &Store{root: root, logger: logger}
}

// DataDir returns the directory holding bucket files.
func (s *Store) DataDir() string {
	return filepath.Join(s.root, DataDirName)
}

func (s *Store) path(bucket string) string {
	return filepath.Join(s.DataDir(), bucket+".json")
}

// RelPath returns the bucket file's path relative to the repo root (e.g.
// "data/3f.json"), for callers that need to address it via git (staging,
// reading a blob at a ref) rather than the filesystem.
func RelPath(bucketID string) string {
	return DataDirName + "/" + bucketID + ".json"
}

// Read returns the record map for bucket. A missing file returns an empty
// map. A file that fails to parse also returns an empty map (after invoking
// the logger) rather than propagating an error: single-shard corruption must
// not crash the caller, per the store's availability trade-off.
func (s *Store) Read(bucket string) map[string]*record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(bucket))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Printf("bucket %s: read failed: %v", bucket, err)
		}
		return map[string]*record.Record{}
	}

	out := map[string]*record.Record{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		s.logger.Printf("bucket %s: corrupt, treating as empty: %v", bucket, err)
		return map[string]*record.Record{}
	}
	return out
}

// Write serializes m as pretty-printed JSON and rewrites bucket's file in
// full, creating the data directory if needed. Increments the instance's
// write counters by one write and the length of the bytes written.
func (s *Store) Write(bucket string, m map[string]*record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.DataDir(), 0o755); err != nil {
		return fmt.Errorf("bucket %s: ensure data dir: %w", bucket, err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("bucket %s: marshal: %w", bucket, err)
	}

	if err := os.WriteFile(s.path(bucket), data, 0o644); err != nil {
		return fmt.Errorf("bucket %s: write: %w", bucket, err)
	}

	s.writeCount.Add(1)
	s.writeBytes.Add(int64(len(data)))
	return nil
}

// ListBuckets enumerates data/*.json file names, stripped of extension, in
// sorted order. Bucket enumeration is bounded (<=256 files) so a flat
// directory listing is all that's needed; no recursive scan.
func (s *Store) ListBuckets() ([]string, error) {
	entries, err := os.ReadDir(s.DataDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	var buckets []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		buckets = append(buckets, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(buckets)
	return buckets, nil
}

// WriteCount returns the number of Write calls since the last ResetCounters.
func (s *Store) WriteCount() int64 { return s.writeCount.Load() }

// WriteBytes returns the cumulative bytes written since the last
// ResetCounters.
func (s *Store) WriteBytes() int64 { return s.writeBytes.Load() }

// ResetCounters zeroes both counters; called by the compactor after a
// successful history compaction.
func (s *Store) ResetCounters() {
	s.writeCount.Store(0)
	s.writeBytes.Store(0)
}
