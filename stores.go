package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidID marks a malformed resource identifier supplied by the caller.
var ErrInvalidID = errors.New("invalid ID format")

// LeadStore persists captured leads.
type LeadStore struct {
	mu sync.Mutex
	db *sql.DB
}

func NewLeadStore(db *sql.DB) (*LeadStore, error) {
	store := &LeadStore{db: db}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL,
		email TEXT,
		message TEXT,
		page TEXT,
		created_at DATETIME NOT NULL
	)`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create leads table: %w", err)
	}
	return store, nil
}

func (s *LeadStore) Add(lead *Lead) error {
	if err := lead.Validate(); err != nil {
		return err
	}
	// The ID is always assigned here; whatever the submitter sent is
	// discarded so every stored row stays addressable by the admin API.
	lead.ID = uuid.New().String()
	lead.CreatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO leads (id, name, phone, email, message, page, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		lead.ID, lead.Name, lead.Phone, lead.Email, lead.Message, lead.Page,
		lead.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}

	log.Printf("lead captured: %s (%s)", lead.Name, lead.Phone)
	return nil
}

func (s *LeadStore) All() ([]*Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT id, name, phone, email, message, page, created_at FROM leads ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]*Lead, 0)
	for rows.Next() {
		var lead Lead
		var createdAt string
		if err := rows.Scan(&lead.ID, &lead.Name, &lead.Phone, &lead.Email,
			&lead.Message, &lead.Page, &createdAt); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			lead.CreatedAt = t
		}
		leads = append(leads, &lead)
	}
	return leads, rows.Err()
}

func (s *LeadStore) Delete(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM leads WHERE id=?", id)
	return err
}

// ContentStore persists the managed content entries edited through the admin
// panel.
type ContentStore struct {
	mu sync.Mutex
	db *sql.DB
}

func NewContentStore(db *sql.DB) (*ContentStore, error) {
	store := &ContentStore{db: db}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS content (
		id TEXT PRIMARY KEY,
		section TEXT NOT NULL,
		title TEXT NOT NULL,
		slug TEXT,
		body TEXT,
		published INTEGER DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create content table: %w", err)
	}
	return store, nil
}

func (s *ContentStore) All() ([]*ContentEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT id, section, title, slug, body, published, created_at, updated_at FROM content ORDER BY section, title")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*ContentEntry, 0)
	for rows.Next() {
		var entry ContentEntry
		var published int
		var createdAt, updatedAt string
		if err := rows.Scan(&entry.ID, &entry.Section, &entry.Title, &entry.Slug,
			&entry.Body, &published, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		entry.Published = published != 0
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			entry.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			entry.UpdatedAt = t
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// Published returns only published entries, for the public read API.
func (s *ContentStore) Published() ([]*ContentEntry, error) {
	entries, err := s.All()
	if err != nil {
		return nil, err
	}
	out := entries[:0]
	for _, e := range entries {
		if e.Published {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *ContentStore) Add(entry *ContentEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	entry.ID = uuid.New().String()
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO content (id, section, title, slug, body, published, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		entry.ID, entry.Section, entry.Title, entry.Slug, entry.Body, boolToInt(entry.Published),
		entry.CreatedAt.Format(time.RFC3339), entry.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert content entry: %w", err)
	}
	return nil
}

func (s *ContentStore) Update(entry *ContentEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	entry.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		"UPDATE content SET section=?, title=?, slug=?, body=?, published=?, updated_at=? WHERE id=?",
		entry.Section, entry.Title, entry.Slug, entry.Body, boolToInt(entry.Published),
		entry.UpdatedAt.Format(time.RFC3339), entry.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update content entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *ContentStore) Delete(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM content WHERE id=?", id)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
