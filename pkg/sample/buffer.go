// Package sample implements the per-cycle Sample Buffer (C3): a mapping
// from tag name to decoded value that iterates in declared tag order,
// because CSV column stability depends on it (§4.3, §9).
package sample

import "finsbridge/pkg/runtime"

// Buffer carries an explicit key slice alongside its value map since Go
// maps do not preserve insertion order.
type Buffer struct {
	order  []string
	values map[string]runtime.Value
}

// NewBuffer preallocates for n tags plus the HEARTBEAT column.
func NewBuffer(n int) *Buffer {
	return &Buffer{
		order:  make([]string, 0, n+1),
		values: make(map[string]runtime.Value, n+1),
	}
}

// Set records value for tagName, appending it to the declared order the
// first time it is seen. Re-setting an existing tag within the same cycle
// keeps its original position.
func (b *Buffer) Set(tagName string, v runtime.Value) {
	if _, exists := b.values[tagName]; !exists {
		b.order = append(b.order, tagName)
	}
	b.values[tagName] = v
}

// Get returns the value stored for tagName, if any.
func (b *Buffer) Get(tagName string) (runtime.Value, bool) {
	v, ok := b.values[tagName]
	return v, ok
}

// Len reports how many tags have been set this cycle.
func (b *Buffer) Len() int {
	return len(b.order)
}

// Each calls fn once per tag, in declared order.
func (b *Buffer) Each(fn func(tagName string, v runtime.Value)) {
	for _, name := range b.order {
		fn(name, b.values[name])
	}
}
