package knowledge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jeanpaul/pal/internal/logging"
)

var (
	ErrEmptyKey    = errors.New("key is empty")
	ErrNotFound    = errors.New("no such fact")
	ErrInvalidFile = errors.New("invalid fact file")
)

// DefaultPath is the fact file name used when none is configured.
const DefaultPath = "knowledge_base.json"

const unknownReply = "I don't know that yet."

// Store is a flat key/value fact store backed by a single JSON file. The
// whole file is rewritten on every mutation.
type Store struct {
	mu      sync.RWMutex
	path    string
	cutoff  float64
	entries map[string]Entry
	log     logging.Logger
}

// Open loads the fact file at path. A missing file is an empty store.
func Open(path string, cutoff float64, log logging.Logger) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if log == nil {
		log = logging.NewStub()
	}
	s := &Store{
		path:    path,
		cutoff:  cutoff,
		entries: map[string]Entry{},
		log:     log,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Infof("no fact file at %s, starting empty", s.path)
			return nil
		}
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if !json.Valid(data) {
		return fmt.Errorf("%s: %w: not valid JSON", s.path, ErrInvalidFile)
	}
	if err := validate(data); err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return fmt.Errorf("%s: %w", s.path, err)
	}
	s.log.Infof("loaded %d facts from %s", len(s.entries), s.path)
	return nil
}

// save writes the whole store through a temp file and a rename so a failed
// write never leaves a truncated fact file. Callers hold s.mu.
func (s *Store) save() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(s.entries); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".kb-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return err
	}
	s.log.Debugf("saved %d facts to %s", len(s.entries), s.path)
	return nil
}

// Learn stores a taught fact and returns the confirmation shown to the user.
func (s *Store) Learn(key, value string) (string, error) {
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if key == "" {
		return "", ErrEmptyKey
	}
	if err := s.put(key, Entry{Kind: KindFact, Value: value}); err != nil {
		return "", err
	}
	return fmt.Sprintf("I've learned: %s -> %s", key, value), nil
}

// Remember stores an answer together with the context it was found in.
func (s *Store) Remember(question, answer, context string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrEmptyKey
	}
	return s.put(question, Entry{Kind: KindAnswer, Value: answer, Context: context})
}

func (s *Store) put(key string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.entries[key]
	s.entries[key] = e
	if err := s.save(); err != nil {
		if had {
			s.entries[key] = prev
		} else {
			delete(s.entries, key)
		}
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	return nil
}

// Forget removes a key.
func (s *Store) Forget(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.entries[key]
	if !ok {
		return ErrNotFound
	}
	delete(s.entries, key)
	if err := s.save(); err != nil {
		s.entries[key] = prev
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	return nil
}

// Lookup is an exact-key lookup.
func (s *Store) Lookup(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Retrieve answers a recall request: the exact entry, else the closest key
// above the similarity cutoff, else a not-known reply.
func (s *Store) Retrieve(key string) string {
	if e, ok := s.Lookup(key); ok {
		return e.Text()
	}

	matches, err := CloseMatches(key, s.Keys(), 1, s.cutoff)
	if err != nil {
		s.log.Warnf("fuzzy lookup for %q: %v", key, err)
		return unknownReply
	}
	if len(matches) == 0 {
		return unknownReply
	}
	closest := matches[0]
	e, _ := s.Lookup(closest)
	s.log.Debugf("fuzzy recall %q -> %q", key, closest)
	return fmt.Sprintf("Did you mean '%s'? %s", closest, e.Text())
}

// Keys returns all keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Facts returns every entry sorted by key.
func (s *Store) Facts() []Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	facts := make([]Fact, 0, len(s.entries))
	for k, e := range s.entries {
		facts = append(facts, Fact{Key: k, Entry: e})
	}
	sort.Slice(facts, func(i, j int) bool { return facts[i].Key < facts[j].Key })
	return facts
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
