package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no record matches the given id.
var ErrNotFound = errors.New("history record not found")

// Record is one finished transcription result. A record is matched back to
// its source file by name, size, and last-modified time, since the raw
// audio itself is not retained.
type Record struct {
	ID             string    `json:"id"`
	FileName       string    `json:"file_name"`
	FileSize       int64     `json:"file_size"`
	LastModified   time.Time `json:"last_modified"`
	Transcript     string    `json:"transcript"`
	Translation    string    `json:"translation,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	TargetLanguage string    `json:"target_language,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Config contains store configuration.
type Config struct {
	// Path of the JSON file backing the store.
	Path string
	// MaxRecords caps retention; the oldest record is evicted first.
	MaxRecords int
	// MatchTolerance is the allowed last-modified drift when matching a
	// file against stored records. File pickers round timestamps
	// differently across platforms, so exact equality is too strict.
	MatchTolerance time.Duration
}

// Store is a mutex-guarded, file-backed record store. Records are held
// newest-first in memory and rewritten to disk on every mutation via a
// temp-file rename.
type Store struct {
	config  Config
	logger  *slog.Logger
	records []Record
	mu      sync.RWMutex
}

// NewStore opens or creates the store at cfg.Path.
func NewStore(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = 50
	}
	if cfg.MatchTolerance <= 0 {
		cfg.MatchTolerance = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{config: cfg, logger: logger}

	data, err := os.ReadFile(cfg.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Fresh store
	case err != nil:
		return nil, fmt.Errorf("reading history file %s: %w", cfg.Path, err)
	default:
		if err := json.Unmarshal(data, &s.records); err != nil {
			// A corrupt history file should not brick the service; start
			// over and keep the damaged file aside for inspection.
			logger.Warn("History file is corrupt, starting fresh",
				slog.String("path", cfg.Path),
				slog.String("error", err.Error()),
			)
			_ = os.Rename(cfg.Path, cfg.Path+".corrupt")
			s.records = nil
		}
	}

	return s, nil
}

// Save inserts or overwrites a record by id. Records without an id are
// assigned one. Returns the stored record.
func (s *Store) Save(rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	replaced := false
	for i := range s.records {
		if s.records[i].ID == rec.ID {
			s.records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		s.records = append([]Record{rec}, s.records...)
	}

	// Evict oldest beyond the cap
	if len(s.records) > s.config.MaxRecords {
		s.records = s.records[:s.config.MaxRecords]
	}

	if err := s.persist(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Delete removes a record by id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return s.persist()
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// List returns all records, newest first.
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Get returns a record by id.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// FindForFile looks up a previous result for the same source file. The
// last-modified comparison allows the configured tolerance; name and size
// must match exactly. Returns the newest match.
func (s *Store) FindForFile(name string, size int64, modified time.Time) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.FileName != name || rec.FileSize != size {
			continue
		}
		drift := rec.LastModified.Sub(modified)
		if drift < 0 {
			drift = -drift
		}
		if drift <= s.config.MatchTolerance {
			return rec, true
		}
	}
	return Record{}, false
}

// Count returns the number of stored records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// persist writes the records to disk atomically. Callers hold s.mu.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	dir := filepath.Dir(s.config.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	tmp := s.config.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	if err := os.Rename(tmp, s.config.Path); err != nil {
		return fmt.Errorf("replacing history file: %w", err)
	}
	return nil
}
