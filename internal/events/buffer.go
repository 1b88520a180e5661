package events

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// replayQueue is a bounded FIFO holding messages while the broker is
// unreachable. When full, the oldest message is dropped so the queue always
// holds the most recent transitions. Not safe for concurrent use — the
// publisher synchronizes access.
type replayQueue struct {
	msgs    []bufferedMsg
	max     int
	dropped int // messages discarded since the last drain
}

func newReplayQueue(max int) *replayQueue {
	return &replayQueue{max: max}
}

func (q *replayQueue) push(msg bufferedMsg) {
	if len(q.msgs) == q.max {
		q.msgs = q.msgs[1:]
		q.dropped++
		if q.dropped == 1 {
			log.Printf("events: replay queue full (%d messages), dropping oldest", q.max)
		}
	}
	q.msgs = append(q.msgs, msg)
}

// drain returns all queued messages in arrival order and empties the queue.
func (q *replayQueue) drain() []bufferedMsg {
	if len(q.msgs) == 0 {
		return nil
	}
	out := q.msgs
	if q.dropped > 0 {
		log.Printf("events: replaying %d buffered messages (%d dropped while offline)", len(out), q.dropped)
	}
	q.msgs = nil
	q.dropped = 0
	return out
}

func (q *replayQueue) size() int {
	return len(q.msgs)
}
