// Package internal provides a specialized priority queue used by the expiry
// sweeper.
//
// This implementation combines a binary heap with a hash map to provide both
// efficient deadline-based operations and key-based access:
//
//   - O(log n) for deadline operations (Schedule, popping the next due key)
//   - O(1) for key-based lookups and existence checks
//   - O(log n) for key-based removal
//
// Each resource key appears at most once; scheduling an already-tracked key
// replaces its deadline. This matches the sweeper's usage, which always
// tracks the earliest finite expiry per resource.
//
// Concurrency: this implementation is not thread-safe, the sweeper applies
// external synchronization.
package internal

import (
	"container/heap"
	"time"
)

// item represents one tracked resource with its next relevant deadline.
type item struct {
	key   string    // Resource key
	at    time.Time // Deadline used for ordering in the heap
	index int       // Index in the heap, maintained by heap package
}

// DeadlineHeap is a min-heap of per-resource deadlines with key-based access.
type DeadlineHeap struct {
	items    []*item          // The actual heap slice
	itemsMap map[string]*item // Map for O(1) access by key
}

// NewDeadlineHeap creates a new empty deadline heap.
func NewDeadlineHeap() *DeadlineHeap {
	return &DeadlineHeap{
		items:    make([]*item, 0),
		itemsMap: make(map[string]*item),
	}
}

// Len returns the number of tracked keys (part of heap.Interface).
func (dh *DeadlineHeap) Len() int { return len(dh.items) }

// Less orders items by deadline, earliest first (part of heap.Interface).
func (dh *DeadlineHeap) Less(i, j int) bool {
	return dh.items[i].at.Before(dh.items[j].at)
}

// Swap exchanges items at positions i and j (part of heap.Interface).
func (dh *DeadlineHeap) Swap(i, j int) {
	dh.items[i], dh.items[j] = dh.items[j], dh.items[i]
	dh.items[i].index = i
	dh.items[j].index = j
}

// Push adds an item to the heap (part of heap.Interface).
func (dh *DeadlineHeap) Push(x interface{}) {
	n := len(dh.items)
	item := x.(*item)
	item.index = n
	dh.items = append(dh.items, item)
	dh.itemsMap[item.key] = item
}

// Pop removes and returns the earliest item (part of heap.Interface).
func (dh *DeadlineHeap) Pop() interface{} {
	old := dh.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // Avoid memory leak
	item.index = -1 // For safety
	dh.items = old[:n-1]
	delete(dh.itemsMap, item.key)
	return item
}

// Schedule adds a key with the given deadline or replaces the deadline of an
// already-tracked key.
func (dh *DeadlineHeap) Schedule(key string, at time.Time) {
	// Check if the key is already tracked
	if item, exists := dh.itemsMap[key]; exists {
		// Update deadline and fix heap
		item.at = at
		heap.Fix(dh, item.index)
		return
	}

	// Create and add new item
	heap.Push(dh, &item{
		key: key,
		at:  at,
	})
}

// Remove untracks a key. Returns its deadline and whether it was tracked.
func (dh *DeadlineHeap) Remove(key string) (time.Time, bool) {
	item, exists := dh.itemsMap[key]
	if !exists {
		return time.Time{}, false
	}
	at := item.at
	heap.Remove(dh, item.index)
	return at, true
}

// Contains reports whether a key is currently tracked.
func (dh *DeadlineHeap) Contains(key string) bool {
	_, exists := dh.itemsMap[key]
	return exists
}

// Peek returns the key with the earliest deadline without removing it.
func (dh *DeadlineHeap) Peek() (string, time.Time, bool) {
	if len(dh.items) == 0 {
		return "", time.Time{}, false
	}
	return dh.items[0].key, dh.items[0].at, true
}

// Next pops and returns the key with the earliest deadline if that deadline
// is <= now. Returns false if no key is due.
func (dh *DeadlineHeap) Next(now time.Time) (string, bool) {
	if len(dh.items) == 0 || dh.items[0].at.After(now) {
		return "", false
	}
	item := heap.Pop(dh).(*item)
	return item.key, true
}
