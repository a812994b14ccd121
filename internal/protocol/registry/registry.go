package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/danmuck/bglink/internal/protocol/frame"
	"github.com/danmuck/bglink/internal/protocol/session"
)

var (
	ErrHandlerExists = errors.New("registry: handler already registered")
	ErrHandlerNil    = errors.New("registry: handler is nil")
	ErrInvalidName   = errors.New("registry: invalid handler name")
)

// Key identifies one message by header fields.
type Key struct {
	Type    frame.MessageType
	Class   uint8
	Command uint8
}

// KeyOf builds the lookup key for a decoded header.
func KeyOf(h frame.Header) Key {
	return Key{Type: h.Type, Class: h.Class, Command: h.Command}
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d/%d", k.Type, k.Class, k.Command)
}

// Handler decodes one payload layout and applies its effect to the session.
type Handler interface {
	Handle(payload []byte, st *session.State) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(payload []byte, st *session.State) error

func (f HandlerFunc) Handle(payload []byte, st *session.State) error {
	return f(payload, st)
}

// Entry is one registered message.
type Entry struct {
	Key     Key
	Name    string
	Handler Handler
}

// Registry maps header keys to handlers. It is filled at startup and read-only
// afterwards.
type Registry struct {
	items map[Key]Entry
}

func New() *Registry {
	return &Registry{items: make(map[Key]Entry)}
}

// Register adds a handler under key.
func (r *Registry) Register(key Key, name string, h Handler) error {
	if h == nil {
		return ErrHandlerNil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty name for %s", ErrInvalidName, key)
	}
	if existing, ok := r.items[key]; ok {
		return fmt.Errorf("%w: %s (%s)", ErrHandlerExists, key, existing.Name)
	}
	r.items[key] = Entry{Key: key, Name: name, Handler: h}
	return nil
}

// Lookup resolves a key to its entry.
func (r *Registry) Lookup(key Key) (Entry, bool) {
	e, ok := r.items[key]
	return e, ok
}

func (r *Registry) Len() int {
	return len(r.items)
}

// Entries returns entries ordered by type, class, command.
func (r *Registry) Entries() []Entry {
	list := make([]Entry, 0, len(r.items))
	for _, e := range r.items {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i].Key, list[j].Key
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		return a.Command < b.Command
	})
	return list
}
