package property

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Kind is the value type of a property.
type Kind int

const (
	KindDouble Kind = iota
	KindBool
	KindInt
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindDouble:
		return "double"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	}
	return "unknown"
}

// Errors
var (
	ErrDuplicateProperty = errors.New("property already registered")
	ErrUnknownProperty   = errors.New("property not registered")
	ErrKindMismatch      = errors.New("value does not match property kind")
)

// Bag is the host plugin's property storage.
type Bag interface {
	Register(name string, kind Kind, def any) error
	Set(name string, value any) error
}

// checkKind reports whether v has the Go type backing kind.
func checkKind(kind Kind, v any) bool {
	switch kind {
	case KindDouble:
		_, ok := v.(float64)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindInt:
		_, ok := v.(int)
		return ok
	case KindString:
		_, ok := v.(string)
		return ok
	}
	return false
}

type memoryEntry struct {
	kind  Kind
	value any
}

// MemoryBag is an in-process Bag. It backs the HTTP properties endpoint and tests.
type MemoryBag struct {
	mu    sync.RWMutex
	props map[string]memoryEntry
	sets  int64
}

// NewMemoryBag creates an empty MemoryBag.
func NewMemoryBag() *MemoryBag {
	return &MemoryBag{props: make(map[string]memoryEntry)}
}

// Register adds a property with its default value.
func (b *MemoryBag) Register(name string, kind Kind, def any) error {
	if !checkKind(kind, def) {
		return fmt.Errorf("%w: %s default %T, want %s", ErrKindMismatch, name, def, kind)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.props[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProperty, name)
	}
	b.props[name] = memoryEntry{kind: kind, value: def}
	return nil
}

// Set updates a registered property.
func (b *MemoryBag) Set(name string, value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.props[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}
	if !checkKind(e.kind, value) {
		return fmt.Errorf("%w: %s got %T, want %s", ErrKindMismatch, name, value, e.kind)
	}
	e.value = value
	b.props[name] = e
	b.sets++
	return nil
}

// Get returns the current value of name.
func (b *MemoryBag) Get(name string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.props[name]
	return e.value, ok
}

// Values returns a copy of all property values.
func (b *MemoryBag) Values() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]any, len(b.props))
	for name, e := range b.props {
		out[name] = e.value
	}
	return out
}

// Names returns the registered names in sorted order.
func (b *MemoryBag) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.props))
	for name := range b.props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sets returns how many Set calls succeeded.
func (b *MemoryBag) Sets() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sets
}
