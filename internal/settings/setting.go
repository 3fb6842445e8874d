// Package settings holds client-local preferences persisted in the profile
// store. Every subscriber sees a change, whether it was made by this process
// or, through the Watcher, by another one sharing the database.
package settings

import (
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/matheus3301/beazap/internal/store"
)

// Codec converts a value to and from its stored text.
type Codec[T any] struct {
	Encode func(T) string
	Decode func(string) (T, error)
}

var (
	IntCodec = Codec[int]{
		Encode: strconv.Itoa,
		Decode: strconv.Atoi,
	}
	StringCodec = Codec[string]{
		Encode: func(s string) string { return s },
		Decode: func(s string) (string, error) { return s, nil },
	}
	BoolCodec = Codec[bool]{
		Encode: strconv.FormatBool,
		Decode: strconv.ParseBool,
	}
)

// Reloader is anything the Watcher can refresh from the store.
type Reloader interface {
	Key() string
	Reload() error
}

// Setting is one typed preference with a default.
type Setting[T comparable] struct {
	db       *store.DB
	key      string
	def      T
	codec    Codec[T]
	validate func(T) error
	logger   *zap.Logger

	mu    sync.Mutex
	value T
	next  int
	subs  map[int]func(T)
}

// New loads key from db, falling back to def when unset or unreadable.
func New[T comparable](db *store.DB, key string, def T, codec Codec[T], logger *zap.Logger) (*Setting[T], error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Setting[T]{
		db:     db,
		key:    key,
		def:    def,
		codec:  codec,
		logger: logger,
		value:  def,
		subs:   make(map[int]func(T)),
	}
	v, err := s.read()
	if err != nil {
		return nil, err
	}
	s.value = v
	return s, nil
}

// WithValidate rejects values on Set.
func (s *Setting[T]) WithValidate(fn func(T) error) *Setting[T] {
	s.validate = fn
	return s
}

func (s *Setting[T]) Key() string {
	return s.key
}

func (s *Setting[T]) Default() T {
	return s.def
}

// Get returns the current value.
func (s *Setting[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set persists v and, when it differs from the current value, notifies
// subscribers.
func (s *Setting[T]) Set(v T) error {
	if s.validate != nil {
		if err := s.validate(v); err != nil {
			return fmt.Errorf("set %s: %w", s.key, err)
		}
	}
	if err := s.db.PutSetting(s.key, s.codec.Encode(v)); err != nil {
		return fmt.Errorf("persist %s: %w", s.key, err)
	}
	s.apply(v)
	return nil
}

// Reset removes the stored value so the default applies.
func (s *Setting[T]) Reset() error {
	if err := s.db.DeleteSetting(s.key); err != nil {
		return fmt.Errorf("reset %s: %w", s.key, err)
	}
	s.apply(s.def)
	return nil
}

// Reload re-reads the store and notifies when the value changed elsewhere.
func (s *Setting[T]) Reload() error {
	v, err := s.read()
	if err != nil {
		return err
	}
	s.apply(v)
	return nil
}

// Subscribe calls fn with each new value. The returned func unsubscribes.
func (s *Setting[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Setting[T]) read() (T, error) {
	raw, ok, err := s.db.GetSetting(s.key)
	if err != nil {
		return s.def, fmt.Errorf("read %s: %w", s.key, err)
	}
	if !ok {
		return s.def, nil
	}
	v, err := s.codec.Decode(raw)
	if err != nil {
		s.logger.Warn("unreadable setting, using default",
			zap.String("key", s.key), zap.String("value", raw), zap.Error(err))
		return s.def, nil
	}
	return v, nil
}

func (s *Setting[T]) apply(v T) {
	s.mu.Lock()
	if s.value == v {
		s.mu.Unlock()
		return
	}
	s.value = v
	fns := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	s.logger.Debug("setting changed", zap.String("key", s.key))
	for _, fn := range fns {
		fn(v)
	}
}
