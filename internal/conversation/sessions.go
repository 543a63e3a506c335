package conversation

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/castor-ai/castor/internal/core"
)

// FileSessionStore persists conversation turns per session as JSONL files
// under BaseDir/sessions. Turns are append-only; loading a session replays
// the file in order.
type FileSessionStore struct {
	BaseDir string

	mu sync.Mutex
}

func (s *FileSessionStore) sessionDir() string {
	return filepath.Join(s.BaseDir, "sessions")
}

func (s *FileSessionStore) sessionPath(id core.SessionID) string {
	return filepath.Join(s.sessionDir(), string(id)+".jsonl")
}

// Create starts a new empty session and returns its id.
func (s *FileSessionStore) Create() (core.SessionID, error) {
	sessionID := core.NewSessionID()

	if err := os.MkdirAll(s.sessionDir(), 0o755); err != nil {
		return "", fmt.Errorf("create sessions directory: %w", err)
	}

	file, err := os.OpenFile(s.sessionPath(sessionID), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create session file: %w", err)
	}
	file.Close()

	return sessionID, nil
}

// Append adds turns to the session, creating its file if needed.
func (s *FileSessionStore) Append(id core.SessionID, turns ...core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.sessionDir(), 0o755); err != nil {
		return fmt.Errorf("create sessions directory: %w", err)
	}

	file, err := os.OpenFile(s.sessionPath(id), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open session file: %w", err)
	}
	defer file.Close()

	for _, turn := range turns {
		line, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}

		if _, err := file.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("append turn: %w", err)
		}
	}

	return nil
}

// Load replays a session's turns in the order they were appended. A missing
// session yields an empty history, not an error.
func (s *FileSessionStore) Load(id core.SessionID) ([]core.Turn, error) {
	file, err := os.Open(s.sessionPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer file.Close()

	var turns []core.Turn

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var turn core.Turn
		if err := json.Unmarshal([]byte(line), &turn); err != nil {
			continue
		}

		turns = append(turns, turn)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	return turns, nil
}

// List returns the known session ids, newest first. The timestamped id
// format makes lexical order chronological.
func (s *FileSessionStore) List() ([]core.SessionID, error) {
	entries, err := os.ReadDir(s.sessionDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions directory: %w", err)
	}

	var ids []core.SessionID
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}

		ids = append(ids, core.SessionID(strings.TrimSuffix(name, ".jsonl")))
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	return ids, nil
}

// History makes a session usable as a HistoryProvider.
func (s *FileSessionStore) History(id core.SessionID) HistoryProvider {
	return sessionHistory{store: s, id: id}
}

type sessionHistory struct {
	store *FileSessionStore
	id    core.SessionID
}

func (h sessionHistory) History() ([]core.Turn, error) {
	return h.store.Load(h.id)
}
