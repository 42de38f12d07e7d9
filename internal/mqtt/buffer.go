package mqtt

import "github.com/sweeney/bottle-cap-monitor/internal/logger"

// bufferedMsg is a serialized inspection or system message waiting for the
// broker.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog holds messages published while the broker link is down, oldest
// first, and replays them on reconnect. When full the oldest message is
// dropped and counted. Not safe for concurrent use; RealPublisher guards it
// with its mutex.
type backlog struct {
	log   *logger.Logger
	limit int
	msgs  []bufferedMsg

	// dropped counts messages lost to overflow since startup. Draining does
	// not clear it.
	dropped int
	// warned suppresses repeat overflow warnings until the next drain.
	warned bool
}

func newBacklog(limit int, log *logger.Logger) *backlog {
	return &backlog{
		log:   log,
		limit: limit,
		msgs:  make([]bufferedMsg, 0, limit),
	}
}

func (b *backlog) push(msg bufferedMsg) {
	if len(b.msgs) == b.limit {
		if !b.warned {
			b.log.Warnw("mqtt backlog full, dropping oldest", "limit", b.limit, "dropped", b.dropped+1)
			b.warned = true
		}
		b.msgs = append(b.msgs[:0], b.msgs[1:]...)
		b.dropped++
	}
	b.msgs = append(b.msgs, msg)
}

// drain hands over every held message, oldest first, and empties the
// backlog. Returns nil when nothing is held.
func (b *backlog) drain() []bufferedMsg {
	b.warned = false
	if len(b.msgs) == 0 {
		return nil
	}
	out := b.msgs
	b.msgs = make([]bufferedMsg, 0, b.limit)
	return out
}

func (b *backlog) len() int {
	return len(b.msgs)
}
