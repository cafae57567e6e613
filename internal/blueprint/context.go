package blueprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// NoteLevel grades a note a blueprint attached during an invocation.
type NoteLevel string

const (
	NoteError   NoteLevel = "error"
	NoteWarning NoteLevel = "warning"
	NoteInfo    NoteLevel = "info"
)

// Note is one message a blueprint surfaced to the operator.
type Note struct {
	Level   NoteLevel `json:"level"`
	Message string    `json:"message"`
}

// Context is the per-invocation façade handed to blueprint hooks. It scopes
// id hashing to a namespace (so two blueprints cannot collide on generated
// ids) and accumulates operator-facing notes for the caller to collect
// after the hook returns.
type Context struct {
	// StudioID identifies the studio this invocation serves. Read-only.
	StudioID string

	namespace string
	unhash    map[string]string
	notes     []Note
}

// NewContext creates a context for one hook invocation. namespace seeds
// HashID so generated ids are stable per (namespace, name) pair.
func NewContext(studioID, namespace string) *Context {
	return &Context{
		StudioID:  studioID,
		namespace: namespace,
		unhash:    make(map[string]string),
	}
}

// HashID derives a deterministic id from a blueprint-chosen name. The same
// name always yields the same id within one namespace, which is what lets
// a regenerated timeline keep stable object ids.
func (c *Context) HashID(name string) string {
	h := sha256.New()
	h.Write([]byte(c.namespace))
	h.Write([]byte{0})
	h.Write([]byte(name))
	id := hex.EncodeToString(h.Sum(nil))[:16]
	c.unhash[id] = name
	return id
}

// UnhashID returns the original name behind an id produced by HashID in
// this context. Unknown ids come back unchanged.
func (c *Context) UnhashID(id string) string {
	if name, ok := c.unhash[id]; ok {
		return name
	}
	return id
}

// NotifyUserError records an error-level note.
func (c *Context) NotifyUserError(msg string) {
	c.notes = append(c.notes, Note{Level: NoteError, Message: msg})
}

// NotifyUserWarning records a warning-level note.
func (c *Context) NotifyUserWarning(msg string) {
	c.notes = append(c.notes, Note{Level: NoteWarning, Message: msg})
}

// NotifyUserInfo records an info-level note.
func (c *Context) NotifyUserInfo(msg string) {
	c.notes = append(c.notes, Note{Level: NoteInfo, Message: msg})
}

// Notes returns the notes accumulated so far, in the order they were added.
func (c *Context) Notes() []Note {
	return c.notes
}
