// Package urc routes unsolicited result codes (asynchronous notification
// lines from the modem) to registered handlers by prefix.
package urc

import "strings"

// Handler consumes one notification line. Handlers run synchronously on
// the goroutine draining the command channel and must not block.
type Handler func(line string)

// Filter binds a pattern to a handler. A filter without a handler is
// inert: it still claims matching lines but nothing runs.
type Filter struct {
	// Pattern is compared exactly for identity and as a prefix for dispatch.
	Pattern string
	handler Handler
}

// NewFilter creates a filter for pattern, attached to h when h is non-nil.
func NewFilter(pattern string, h Handler) Filter {
	return Filter{Pattern: pattern, handler: h}
}

// SetHandler attaches h, replacing any previous handler.
func (f *Filter) SetHandler(h Handler) {
	f.handler = h
}

// Attached reports whether a handler is set.
func (f Filter) Attached() bool {
	return f.handler != nil
}

// Valid reports whether the filter has both a pattern and a handler.
func (f Filter) Valid() bool {
	return f.Pattern != "" && f.Attached()
}

// Is reports whether the filter is registered under exactly name.
func (f Filter) Is(name string) bool {
	return f.Pattern == name
}

// Matches reports whether line starts with the filter pattern. An empty
// pattern matches nothing.
func (f Filter) Matches(line string) bool {
	return f.Pattern != "" && strings.HasPrefix(line, f.Pattern)
}

// Registry is an ordered list of filters, unique by pattern. On
// overlapping prefixes the earliest registered filter wins.
//
// The zero value is ready to use. A Registry is not safe for concurrent
// use; it belongs to the goroutine that drains the command channel.
type Registry struct {
	filters []Filter
}

// Register adds a filter for pattern. An existing filter with the same
// pattern keeps its position and gets h as its new handler.
func (r *Registry) Register(pattern string, h Handler) {
	if i := r.IndexOf(pattern); i >= 0 {
		r.filters[i].SetHandler(h)
		return
	}
	r.filters = append(r.filters, NewFilter(pattern, h))
}

// Unregister removes the filter registered under exactly pattern. It is a
// no-op when there is none.
func (r *Registry) Unregister(pattern string) {
	if i := r.IndexOf(pattern); i >= 0 {
		r.filters = append(r.filters[:i], r.filters[i+1:]...)
	}
}

// Dispatch hands line to the first filter whose pattern prefixes it and
// reports whether any filter claimed the line. At most one handler runs.
func (r *Registry) Dispatch(line string) bool {
	i := r.Match(line)
	if i < 0 {
		return false
	}
	if f := r.filters[i]; f.Valid() {
		f.handler(line)
	}
	return true
}

// IndexOf returns the position of the filter registered under exactly
// pattern, or -1.
func (r *Registry) IndexOf(pattern string) int {
	for i, f := range r.filters {
		if f.Is(pattern) {
			return i
		}
	}
	return -1
}

// Match returns the position of the first filter whose pattern prefixes
// line, or -1.
func (r *Registry) Match(line string) int {
	for i, f := range r.filters {
		if f.Matches(line) {
			return i
		}
	}
	return -1
}

// Reset drops every filter.
func (r *Registry) Reset() {
	r.filters = nil
}

// Len returns the number of registered filters.
func (r *Registry) Len() int {
	return len(r.filters)
}

// Patterns lists the registered patterns in dispatch order.
func (r *Registry) Patterns() []string {
	out := make([]string, len(r.filters))
	for i, f := range r.filters {
		out[i] = f.Pattern
	}
	return out
}
