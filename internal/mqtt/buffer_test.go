package mqtt

import (
	"fmt"
	"testing"
)

func msg(i int) bufferedMsg {
	return bufferedMsg{topic: Topic, payload: []byte(fmt.Sprintf("m%d", i))}
}

func TestOutboxEmpty(t *testing.T) {
	o := newOutbox(10)
	if o.len() != 0 {
		t.Errorf("new outbox length: %d", o.len())
	}
	if got := o.drain(); got != nil {
		t.Errorf("drain of empty outbox: %v", got)
	}
}

func TestOutboxPushDrainOrder(t *testing.T) {
	o := newOutbox(10)
	for i := 0; i < 4; i++ {
		o.push(msg(i))
	}
	if o.len() != 4 {
		t.Fatalf("length: got %d, want 4", o.len())
	}

	out := o.drain()
	if len(out) != 4 {
		t.Fatalf("drained: got %d, want 4", len(out))
	}
	for i, m := range out {
		if string(m.payload) != fmt.Sprintf("m%d", i) {
			t.Errorf("message %d: got %s", i, m.payload)
		}
	}
	if o.len() != 0 {
		t.Error("drain should empty the outbox")
	}
}

func TestOutboxOverflowDropsOldest(t *testing.T) {
	o := newOutbox(3)
	for i := 0; i < 5; i++ {
		o.push(msg(i))
	}
	if o.len() != 3 {
		t.Fatalf("length: got %d, want 3", o.len())
	}
	if o.dropped != 2 {
		t.Errorf("dropped: got %d, want 2", o.dropped)
	}

	out := o.drain()
	want := []string{"m2", "m3", "m4"}
	for i, m := range out {
		if string(m.payload) != want[i] {
			t.Errorf("message %d: got %s, want %s", i, m.payload, want[i])
		}
	}
}

func TestOutboxReusableAfterDrain(t *testing.T) {
	o := newOutbox(3)
	for i := 0; i < 5; i++ {
		o.push(msg(i))
	}
	o.drain()

	o.push(msg(9))
	out := o.drain()
	if len(out) != 1 || string(out[0].payload) != "m9" {
		t.Errorf("after drain: %+v", out)
	}
	if o.dropped != 0 {
		t.Errorf("dropped should reset on drain, got %d", o.dropped)
	}
}
