// Package mockregistry is an in-process mock of a contractor license
// registry API. It serves the lookup endpoints the resolver's registry
// client consumes, backed by an in-memory record set, and is used by local
// harnesses and tests.
package mockregistry

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/leadscope/lead-qualifier/pkg/resolve"
)

// Server holds the mock record set. Safe for concurrent use.
type Server struct {
	mu       sync.RWMutex
	byNumber map[string]resolve.Record
	byName   map[string]resolve.Record
	byOwner  map[string]resolve.Record
}

// New builds an empty mock registry.
func New() *Server {
	return &Server{
		byNumber: make(map[string]resolve.Record),
		byName:   make(map[string]resolve.Record),
		byOwner:  make(map[string]resolve.Record),
	}
}

// Add registers a record under its license number plus the given business
// and owner names. Empty keys are skipped. Name keys are matched
// case-insensitively, the way registries fold queries. A business name
// registered with a trailing locality ("Ace Plumbing Oceanside") answers
// locality-scoped searches.
func (s *Server) Add(rec resolve.Record, businessName, ownerName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := strings.TrimSpace(rec.Number); n != "" {
		s.byNumber[n] = rec
	}
	if k := nameKey(businessName); k != "" {
		s.byName[k] = rec
	}
	if k := nameKey(ownerName); k != "" {
		s.byOwner[k] = rec
	}
}

// Handler returns the HTTP surface: /licenses/by-number, /licenses/by-business
// and /licenses/by-owner, each answering GET with a JSON record or 404.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/licenses/by-number", func(w http.ResponseWriter, r *http.Request) {
		rec, ok := s.lookupNumber(r.URL.Query().Get("number"))
		s.reply(w, rec, ok)
	})
	mux.HandleFunc("/licenses/by-business", func(w http.ResponseWriter, r *http.Request) {
		rec, ok := s.lookupName(s.byName, r.URL.Query().Get("name"))
		s.reply(w, rec, ok)
	})
	mux.HandleFunc("/licenses/by-owner", func(w http.ResponseWriter, r *http.Request) {
		rec, ok := s.lookupName(s.byOwner, r.URL.Query().Get("name"))
		s.reply(w, rec, ok)
	})
	return mux
}

func (s *Server) lookupNumber(number string) (resolve.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byNumber[strings.TrimSpace(number)]
	return rec, ok
}

func (s *Server) lookupName(m map[string]resolve.Record, name string) (resolve.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := m[nameKey(name)]
	return rec, ok
}

func (s *Server) reply(w http.ResponseWriter, rec resolve.Record, ok bool) {
	if !ok {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"license_number": rec.Number,
		"holder_name":    rec.HolderName,
		"status":         rec.Status,
	})
}

func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
