package blacklist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"walletScope/internal/model"
	"walletScope/internal/normalize"
)

// FileStore keeps the whole blacklist in a single JSON document on disk.
// Writes go through a temp file and rename so a crash never leaves a
// half-written document behind.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStore builds a store backed by the given path. The file does not
// need to exist yet; the first Upsert creates it.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("blacklist path is required")
	}
	return &FileStore{path: path, now: time.Now}, nil
}

func (s *FileStore) Get(ctx context.Context, address string) (model.BlacklistEntry, bool, error) {
	canonical, err := normalize.Address(address)
	if err != nil {
		return model.BlacklistEntry{}, false, fmt.Errorf("blacklist get: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return model.BlacklistEntry{}, false, err
	}
	for _, entry := range doc.Entries {
		if entry.WalletAddress == canonical {
			return entry, true, nil
		}
	}
	return model.BlacklistEntry{}, false, nil
}

// Upsert inserts or fully replaces the entry for its wallet address.
// Re-running with identical input yields an identical document apart from
// the metadata timestamp.
func (s *FileStore) Upsert(ctx context.Context, entry model.BlacklistEntry) error {
	canonical, err := normalize.Address(entry.WalletAddress)
	if err != nil {
		return fmt.Errorf("blacklist upsert: %w", err)
	}
	entry.WalletAddress = canonical

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i := range doc.Entries {
		if doc.Entries[i].WalletAddress == canonical {
			doc.Entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Entries = append(doc.Entries, entry)
	}
	sort.Slice(doc.Entries, func(i, j int) bool {
		return doc.Entries[i].WalletAddress < doc.Entries[j].WalletAddress
	})

	return s.save(doc)
}

func (s *FileStore) List(ctx context.Context) ([]model.BlacklistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]model.BlacklistEntry, len(doc.Entries))
	copy(out, doc.Entries)
	return out, nil
}

func (s *FileStore) load() (model.BlacklistDocument, error) {
	var doc model.BlacklistDocument
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return doc, fmt.Errorf("read blacklist: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse blacklist: %w", err)
	}
	return doc, nil
}

func (s *FileStore) save(doc model.BlacklistDocument) error {
	doc.Metadata = model.DocumentMetadata{
		LastUpdated:  s.now().UTC().Format(time.RFC3339),
		TotalEntries: len(doc.Entries),
		Version:      DocumentVersion,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal blacklist: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create blacklist dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write blacklist: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace blacklist: %w", err)
	}
	return nil
}
