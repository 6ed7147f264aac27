package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error is a hierarchical validation error: a list of messages attached to
// the current node plus child errors keyed by alias, index, or map key.
// Independent failures at one node accumulate rather than overwrite.
type Error struct {
	Messages []string
	Children map[string]*Error
}

// NewError builds an Error carrying the given node-level messages.
func NewError(messages ...string) *Error {
	return &Error{Messages: messages}
}

// NewChildError builds an Error with a single nested child.
func NewChildError(key string, child *Error) *Error {
	if child == nil {
		return nil
	}
	return &Error{Children: map[string]*Error{key: child}}
}

// AtPath nests msg under the given path segments, building intermediate
// children as needed. An empty path yields a node-level message.
func AtPath(path []string, msg string) *Error {
	if len(path) == 0 {
		return NewError(msg)
	}
	return NewChildError(path[0], AtPath(path[1:], msg))
}

// Error summarizes the first few flattened entries, mirroring how issue
// lists render elsewhere in the module.
func (e *Error) Error() string {
	flat := e.Flatten()
	if len(flat) == 0 {
		return "validation error"
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := len(flat)
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s at %s", flat[i].Message, renderPointer(flat[i].Path))
	}
	if len(flat) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(flat))
	}
	return b.String()
}

// Flat is one entry of the wire error shape: a path of aliases/indices and a
// single message. Multiple entries may share a path.
type Flat struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// Flatten renders the tree as an ordered list of path-addressed messages.
// Node-level messages come before children; children are visited in sorted
// key order for deterministic output.
func (e *Error) Flatten() []Flat {
	if e == nil {
		return nil
	}
	var out []Flat
	e.flatten(nil, &out)
	return out
}

func (e *Error) flatten(prefix []string, out *[]Flat) {
	for _, msg := range e.Messages {
		*out = append(*out, Flat{Path: append([]string(nil), prefix...), Message: msg})
	}
	keys := make([]string, 0, len(e.Children))
	for k := range e.Children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.Children[k].flatten(append(prefix, k), out)
	}
}

func renderPointer(path []string) string {
	if len(path) == 0 {
		return "/"
	}
	return "/" + strings.Join(path, "/")
}

// Merge combines two errors, concatenating messages and merging children
// recursively. Either side may be nil.
func Merge(a, b *Error) *Error {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := &Error{Messages: append(append([]string(nil), a.Messages...), b.Messages...)}
	if len(a.Children) > 0 || len(b.Children) > 0 {
		out.Children = make(map[string]*Error, len(a.Children)+len(b.Children))
		for k, v := range a.Children {
			out.Children[k] = v
		}
		for k, v := range b.Children {
			out.Children[k] = Merge(out.Children[k], v)
		}
	}
	return out
}

// AsError extracts a *Error from err using errors.As.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// FromErr adapts an arbitrary error into a validation Error. Non-validation
// errors are captured as a single "[T] message" entry rather than propagated.
func FromErr(err error) *Error {
	if err == nil {
		return nil
	}
	if ve, ok := AsError(err); ok {
		return ve
	}
	return NewError(Exception(err))
}

// Exception renders an underlying failure as a message in the
// "[type] message" form used for captured internal errors.
func Exception(err error) string {
	return fmt.Sprintf("[%T] %s", err, err.Error())
}
