package internal

import (
	"fmt"
	"sort"
	"testing"
	"time"
)

var base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// TestNewDeadlineHeap tests the creation of a new DeadlineHeap
func TestNewDeadlineHeap(t *testing.T) {
	dh := NewDeadlineHeap()

	if dh == nil {
		t.Fatal("NewDeadlineHeap() returned nil")
	}

	if dh.Len() != 0 {
		t.Errorf("New heap should be empty, but has length %d", dh.Len())
	}

	if len(dh.itemsMap) != 0 {
		t.Errorf("New heap's map should be empty, but has %d items", len(dh.itemsMap))
	}
}

// TestSchedule tests adding keys to the heap
func TestSchedule(t *testing.T) {
	dh := NewDeadlineHeap()

	// Add a few keys
	dh.Schedule("a", base.Add(100*time.Millisecond))
	dh.Schedule("b", base.Add(200*time.Millisecond))
	dh.Schedule("c", base.Add(50*time.Millisecond))

	if dh.Len() != 3 {
		t.Errorf("Heap should have 3 items, but has %d", dh.Len())
	}

	// Check if keys exist
	for _, key := range []string{"a", "b", "c"} {
		if !dh.Contains(key) {
			t.Errorf("Heap should contain key %q", key)
		}
	}

	// Check the order (min heap, so the earliest deadline should be first)
	key, at, exists := dh.Peek()
	if !exists {
		t.Fatal("Peek() should return an item")
	}

	if key != "c" || !at.Equal(base.Add(50*time.Millisecond)) {
		t.Errorf("Expected min item to be (c,+50ms), got (%s,%v)", key, at)
	}
}

// TestScheduleReplaces tests updating the deadline of tracked keys
func TestScheduleReplaces(t *testing.T) {
	dh := NewDeadlineHeap()

	dh.Schedule("a", base.Add(100*time.Millisecond))
	dh.Schedule("b", base.Add(200*time.Millisecond))

	// Move key a past key b
	dh.Schedule("a", base.Add(300*time.Millisecond))

	if dh.Len() != 2 {
		t.Errorf("Rescheduling must not duplicate keys, heap has %d items", dh.Len())
	}

	// Check if heap property is maintained
	key, _, _ := dh.Peek()
	if key != "b" {
		t.Errorf("Min item should now be b, got %s", key)
	}

	// Move key b even earlier
	dh.Schedule("b", base.Add(10*time.Millisecond))

	key, at, _ := dh.Peek()
	if key != "b" || !at.Equal(base.Add(10*time.Millisecond)) {
		t.Errorf("Min item should now be (b,+10ms), got (%s,%v)", key, at)
	}
}

// TestRemove tests removing keys from the heap
func TestRemove(t *testing.T) {
	dh := NewDeadlineHeap()

	dh.Schedule("a", base.Add(100*time.Millisecond))
	dh.Schedule("b", base.Add(200*time.Millisecond))
	dh.Schedule("c", base.Add(300*time.Millisecond))

	at, exists := dh.Remove("b")

	if !exists {
		t.Fatal("Remove should return true for a tracked key")
	}

	if !at.Equal(base.Add(200 * time.Millisecond)) {
		t.Errorf("Remove should return the deadline +200ms, got %v", at)
	}

	if dh.Len() != 2 {
		t.Errorf("Heap should have 2 items after removal, has %d", dh.Len())
	}

	if dh.Contains("b") {
		t.Error("Heap should not contain key b after removal")
	}

	// Try to remove an untracked key
	if _, exists = dh.Remove("zz"); exists {
		t.Error("Remove should return false for an untracked key")
	}
}

// TestNext tests popping due keys
func TestNext(t *testing.T) {
	dh := NewDeadlineHeap()

	dh.Schedule("a", base.Add(100*time.Millisecond))
	dh.Schedule("b", base.Add(200*time.Millisecond))
	dh.Schedule("c", base.Add(300*time.Millisecond))

	// Nothing due before the first deadline
	if key, ok := dh.Next(base); ok {
		t.Errorf("No key should be due at base time, got %q", key)
	}

	// Two keys due, in deadline order
	now := base.Add(250 * time.Millisecond)

	key, ok := dh.Next(now)
	if !ok || key != "a" {
		t.Errorf("Expected a to be due first, got %q (ok=%v)", key, ok)
	}

	key, ok = dh.Next(now)
	if !ok || key != "b" {
		t.Errorf("Expected b to be due second, got %q (ok=%v)", key, ok)
	}

	if key, ok = dh.Next(now); ok {
		t.Errorf("Key c should not be due yet, got %q", key)
	}

	if dh.Len() != 1 {
		t.Errorf("Heap should have 1 item left, has %d", dh.Len())
	}
}

// TestOrdering pops a larger set of keys and checks global deadline order
func TestOrdering(t *testing.T) {
	dh := NewDeadlineHeap()

	// Insert with pseudo-random deadlines
	offsets := []int{42, 7, 99, 1, 63, 28, 85, 14, 71, 56}
	for i, off := range offsets {
		dh.Schedule(fmt.Sprintf("key-%d", i), base.Add(time.Duration(off)*time.Millisecond))
	}

	var popped []int
	far := base.Add(time.Hour)
	for {
		key, ok := dh.Next(far)
		if !ok {
			break
		}
		var i int
		fmt.Sscanf(key, "key-%d", &i)
		popped = append(popped, offsets[i])
	}

	if len(popped) != len(offsets) {
		t.Fatalf("Expected %d popped keys, got %d", len(offsets), len(popped))
	}

	if !sort.IntsAreSorted(popped) {
		t.Errorf("Keys popped out of deadline order: %v", popped)
	}
}
