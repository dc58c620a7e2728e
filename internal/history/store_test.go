package history

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T, maxRecords int) *Store {
	t.Helper()
	s, err := NewStore(Config{
		Path:           filepath.Join(t.TempDir(), "history.json"),
		MaxRecords:     maxRecords,
		MatchTolerance: 2 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return s
}

func TestSaveAssignsID(t *testing.T) {
	s := testStore(t, 10)

	rec, err := s.Save(Record{FileName: "a.mp3", FileSize: 100, Transcript: "hello"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected an assigned id")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected an assigned creation time")
	}
}

func TestSaveOverwritesByID(t *testing.T) {
	s := testStore(t, 10)

	rec, err := s.Save(Record{FileName: "a.mp3", Transcript: "v1"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rec.Translation = "translated"
	if _, err := s.Save(rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if s.Count() != 1 {
		t.Fatalf("expected 1 record after overwrite, got %d", s.Count())
	}
	got, err := s.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Translation != "translated" {
		t.Error("overwrite did not take effect")
	}
}

func TestListNewestFirst(t *testing.T) {
	s := testStore(t, 10)

	for i := 0; i < 3; i++ {
		if _, err := s.Save(Record{FileName: fmt.Sprintf("f%d.mp3", i)}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	records := s.List()
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []string{"f2.mp3", "f1.mp3", "f0.mp3"} {
		if records[i].FileName != want {
			t.Errorf("records[%d] = %q, want %q", i, records[i].FileName, want)
		}
	}
}

func TestEvictionOldestFirst(t *testing.T) {
	s := testStore(t, 3)

	for i := 0; i < 5; i++ {
		if _, err := s.Save(Record{FileName: fmt.Sprintf("f%d.mp3", i)}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	records := s.List()
	if len(records) != 3 {
		t.Fatalf("expected 3 records after eviction, got %d", len(records))
	}
	if records[0].FileName != "f4.mp3" || records[2].FileName != "f2.mp3" {
		t.Errorf("wrong survivors after eviction: %v", records)
	}
}

func TestFindForFile(t *testing.T) {
	s := testStore(t, 10)
	modified := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := s.Save(Record{FileName: "talk.mp3", FileSize: 4096, LastModified: modified, Transcript: "cached"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	tests := []struct {
		name     string
		fileName string
		size     int64
		modified time.Time
		want     bool
	}{
		{"exact match", "talk.mp3", 4096, modified, true},
		{"within tolerance", "talk.mp3", 4096, modified.Add(1500 * time.Millisecond), true},
		{"within tolerance negative", "talk.mp3", 4096, modified.Add(-time.Second), true},
		{"outside tolerance", "talk.mp3", 4096, modified.Add(5 * time.Second), false},
		{"different size", "talk.mp3", 4097, modified, false},
		{"different name", "other.mp3", 4096, modified, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := s.FindForFile(tt.fileName, tt.size, tt.modified)
			if ok != tt.want {
				t.Fatalf("FindForFile matched=%v, want %v", ok, tt.want)
			}
			if ok && rec.Transcript != "cached" {
				t.Error("matched the wrong record")
			}
		})
	}
}

func TestDelete(t *testing.T) {
	s := testStore(t, 10)

	rec, err := s.Save(Record{FileName: "a.mp3"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Delete(rec.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if s.Count() != 0 {
		t.Errorf("expected empty store, got %d records", s.Count())
	}
	if err := s.Delete(rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	cfg := Config{Path: path, MaxRecords: 10, MatchTolerance: time.Second}

	s1, err := NewStore(cfg, nil)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	rec, err := s1.Save(Record{FileName: "a.mp3", Transcript: "persisted"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	s2, err := NewStore(cfg, nil)
	if err != nil {
		t.Fatalf("reopening store failed: %v", err)
	}
	got, err := s2.Get(rec.ID)
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got.Transcript != "persisted" {
		t.Error("record did not survive reopen")
	}
}
