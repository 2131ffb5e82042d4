package main

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

// WindowStore counts requests per identifier inside a fixed window. The
// check-and-increment must be atomic: under concurrent requests from the same
// identifier the count may never pass maxRequests within one window.
type WindowStore interface {
	Check(identifier string, maxRequests int, window time.Duration) bool
}

type windowRecord struct {
	count   int
	resetAt time.Time
}

// MemoryWindowStore is the in-process WindowStore. State is single-process:
// running multiple server instances fragments the rate-limit view per
// instance; use the Redis store for anything beyond one process.
type MemoryWindowStore struct {
	mu      sync.Mutex
	records map[string]*windowRecord
}

func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{records: make(map[string]*windowRecord)}
}

func (s *MemoryWindowStore) Check(identifier string, maxRequests int, window time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	rec, exists := s.records[identifier]
	if !exists || now.After(rec.resetAt) {
		s.records[identifier] = &windowRecord{count: 1, resetAt: now.Add(window)}
		return true
	}
	if rec.count < maxRequests {
		rec.count++
		return true
	}
	return false
}

// StartSweep periodically drops records whose window has passed, bounding
// memory growth under churning client addresses.
func (s *MemoryWindowStore) StartSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *MemoryWindowStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, rec := range s.records {
		if now.After(rec.resetAt) {
			delete(s.records, id)
		}
	}
}

// crawlerTokens identifies the major search and social-preview crawlers.
// Public form endpoints must not throttle these: link-preview and index
// fetchers hit the same URLs, and suppressing them hurts indexing and sharing
// without protecting anything (bots don't submit forms).
var crawlerTokens = []string{
	"googlebot",
	"bingbot",
	"slurp",
	"duckduckbot",
	"baiduspider",
	"yandexbot",
	"facebookexternalhit",
	"twitterbot",
	"linkedinbot",
	"applebot",
	"pinterestbot",
}

// isKnownCrawler reports whether the declared user agent belongs to a known
// crawler. Pure substring match, case-insensitive.
func isKnownCrawler(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, token := range crawlerTokens {
		if strings.Contains(ua, token) {
			return true
		}
	}
	return false
}

// Limiter decides admission for one endpoint policy. Each policy owns its own
// store instance so login throttling and lead throttling never interfere.
type Limiter struct {
	store          WindowStore
	maxRequests    int
	window         time.Duration
	exemptCrawlers bool
}

func NewLimiter(store WindowStore, maxRequests int, window time.Duration, exemptCrawlers bool) *Limiter {
	return &Limiter{
		store:          store,
		maxRequests:    maxRequests,
		window:         window,
		exemptCrawlers: exemptCrawlers,
	}
}

// Admit reports whether the request may proceed. Known crawlers bypass the
// window entirely when the policy allows it; the bypass is still logged.
func (l *Limiter) Admit(identifier, userAgent string) bool {
	if l.exemptCrawlers && isKnownCrawler(userAgent) {
		log.Printf("rate limit bypass for crawler %q from %s", userAgent, identifier)
		return true
	}
	return l.store.Check(identifier, l.maxRequests, l.window)
}
