package events

import "testing"

func TestEmitDeliversInRegistrationOrder(t *testing.T) {
	var s Signal[int]
	var order []string

	s.Connect(func(int) { order = append(order, "a") })
	s.Connect(func(int) { order = append(order, "b") })
	s.Connect(func(int) { order = append(order, "c") })

	s.Emit(1)

	if got := len(order); got != 3 {
		t.Fatalf("listener invocations: got %d, want 3", got)
	}
	for i, want := range []string{"a", "b", "c"} {
		if order[i] != want {
			t.Errorf("delivery %d: got %q, want %q", i, order[i], want)
		}
	}
}

func TestDisconnectRemovesListener(t *testing.T) {
	var s Signal[string]
	var got []string

	h := s.Connect(func(v string) { got = append(got, "first:"+v) })
	s.Connect(func(v string) { got = append(got, "second:"+v) })

	s.Disconnect(h)
	s.Emit("x")

	if len(got) != 1 || got[0] != "second:x" {
		t.Errorf("deliveries after disconnect: %v", got)
	}

	// Disconnecting twice is harmless.
	s.Disconnect(h)
	s.Emit("y")
	if len(got) != 2 {
		t.Errorf("deliveries after second emit: %v", got)
	}
}

func TestEmitOnEmptySignal(t *testing.T) {
	var s Signal[struct{}]
	s.Emit(struct{}{})
}
