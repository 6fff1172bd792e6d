package reactive

import (
	"sync"
	"testing"
)

func TestSignal_GetSet(t *testing.T) {
	s := NewSignal("initial")

	if got := s.Get(); got != "initial" {
		t.Errorf("Get() = %q, want %q", got, "initial")
	}

	s.Set("updated")
	if got := s.Get(); got != "updated" {
		t.Errorf("Get() = %q, want %q", got, "updated")
	}
}

func TestSignal_NotifiesSubscribers(t *testing.T) {
	s := NewSignal(0)

	var mu sync.Mutex
	notified := 0
	l := ListenerFunc(func() {
		mu.Lock()
		notified++
		mu.Unlock()
	})
	s.Subscribe(l)

	s.Set(1)
	s.Set(2)

	mu.Lock()
	defer mu.Unlock()
	if notified != 2 {
		t.Errorf("notified = %d, want 2", notified)
	}
}

func TestSignal_NoNotifyOnEqualValue(t *testing.T) {
	s := NewSignal("same")

	notified := 0
	s.Subscribe(ListenerFunc(func() { notified++ }))

	s.Set("same")
	if notified != 0 {
		t.Errorf("notified = %d, want 0 for unchanged value", notified)
	}
}

func TestSignal_Unsubscribe(t *testing.T) {
	s := NewSignal(0)

	notified := 0
	l := ListenerFunc(func() { notified++ })
	s.Subscribe(l)
	s.Set(1)
	s.Unsubscribe(l)
	s.Set(2)

	if notified != 1 {
		t.Errorf("notified = %d, want 1 after unsubscribe", notified)
	}
}

func TestSignal_SubscribeDeduplicates(t *testing.T) {
	s := NewSignal(0)

	notified := 0
	l := ListenerFunc(func() { notified++ })
	s.Subscribe(l)
	s.Subscribe(l)
	s.Set(1)

	if notified != 1 {
		t.Errorf("notified = %d, want 1 for deduplicated listener", notified)
	}
}

func TestSignal_Update(t *testing.T) {
	s := NewSignal(10)

	s.Update(func(v int) int { return v + 5 })
	if got := s.Get(); got != 15 {
		t.Errorf("Get() = %d, want 15", got)
	}
}

func TestSignal_WithEquals(t *testing.T) {
	// Treat all values as equal: Set never notifies.
	s := NewSignal(0).WithEquals(func(a, b int) bool { return true })

	notified := 0
	s.Subscribe(ListenerFunc(func() { notified++ }))
	s.Set(99)

	if notified != 0 {
		t.Errorf("notified = %d, want 0 with always-equal function", notified)
	}
	if got := s.Get(); got != 0 {
		t.Errorf("Get() = %d, want 0 (value unchanged)", got)
	}
}

func TestSignal_UniqueIDs(t *testing.T) {
	a := NewSignal(0)
	b := NewSignal(0)
	if a.ID() == b.ID() {
		t.Errorf("signals share ID %d", a.ID())
	}
}
