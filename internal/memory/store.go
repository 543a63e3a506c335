// Package memory holds the persistent-memory contract the runtime consumes:
// categorized key/value facts the assistant saves across conversations. The
// agent reaches it through two tool handlers and through system-prompt
// construction.
package memory

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is one remembered fact.
type Entry struct {
	Category  string    `json:"category"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistent memory contract. Implementations must be safe for
// concurrent use; the agent loop and tool handlers share one store.
type Store interface {
	// Save upserts a fact; category+key identify it.
	Save(category, key, value string) error

	// Recall returns facts, newest first, optionally filtered by category
	// and a substring search over key and value.
	Recall(category, search string) ([]Entry, error)
}

// FileStore is a JSONL-backed Store. Each save appends a line; the latest
// line per category+key wins on recall.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by a JSONL file under dataDir.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create memory directory: %w", err)
	}

	return &FileStore{path: filepath.Join(dataDir, "memories.jsonl")}, nil
}

func (s *FileStore) Save(category, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{
		Category:  strings.TrimSpace(category),
		Key:       strings.TrimSpace(key),
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}

	if entry.Key == "" {
		return fmt.Errorf("memory key is required")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal memory: %w", err)
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open memory file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append memory: %w", err)
	}

	return nil
}

func (s *FileStore) Recall(category, search string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}

	// Latest write per category+key wins.
	latest := make(map[string]Entry, len(entries))
	for _, e := range entries {
		latest[e.Category+"\x00"+e.Key] = e
	}

	search = strings.ToLower(strings.TrimSpace(search))
	category = strings.TrimSpace(category)

	out := make([]Entry, 0, len(latest))
	for _, e := range latest {
		if category != "" && e.Category != category {
			continue
		}

		if search != "" &&
			!strings.Contains(strings.ToLower(e.Key), search) &&
			!strings.Contains(strings.ToLower(e.Value), search) {
			continue
		}

		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	return out, nil
}

func (s *FileStore) load() ([]Entry, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open memory file: %w", err)
	}
	defer file.Close()

	var entries []Entry

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}

		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read memory file: %w", err)
	}

	return entries, nil
}
