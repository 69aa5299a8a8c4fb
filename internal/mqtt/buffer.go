package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox is a fixed-capacity FIFO holding messages published while the
// broker connection is down; they are replayed on reconnect. On overflow
// the oldest message is dropped. Not safe for concurrent use; the
// publisher guards it with its own mutex.
type outbox struct {
	msgs    []bufferedMsg
	tail    int // index of the oldest message
	n       int
	dropped int // messages lost to overflow since the last drain
}

func newOutbox(capacity int) *outbox {
	return &outbox{msgs: make([]bufferedMsg, capacity)}
}

func (o *outbox) push(msg bufferedMsg) {
	c := len(o.msgs)
	if o.n == c {
		if o.dropped == 0 {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", c)
		}
		o.dropped++
		o.msgs[o.tail] = msg
		o.tail = (o.tail + 1) % c
		return
	}
	o.msgs[(o.tail+o.n)%c] = msg
	o.n++
}

// drain returns the buffered messages oldest-first and empties the outbox.
func (o *outbox) drain() []bufferedMsg {
	if o.n == 0 {
		return nil
	}

	out := make([]bufferedMsg, o.n)
	for i := 0; i < o.n; i++ {
		out[i] = o.msgs[(o.tail+i)%len(o.msgs)]
	}

	o.tail = 0
	o.n = 0
	o.dropped = 0
	return out
}

func (o *outbox) len() int {
	return o.n
}
