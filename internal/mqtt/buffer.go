package mqtt

import (
	"go.uber.org/zap"

	"github.com/sweeney/alert-dispatch/internal/metrics"
)

// bufferedMsg is a delivery report or system event held for replay.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer holds publishes made while the broker is unreachable. When full
// the oldest message is evicted; evictions are counted per topic so the
// replay can say how many delivery reports were lost.
// Not safe for concurrent use; caller must synchronize.
type ringBuffer struct {
	msgs    []bufferedMsg
	head    int // next write position
	count   int
	dropped map[string]int // evictions per topic since the last drain

	log     *zap.Logger
	metrics *metrics.Metrics
}

func newRingBuffer(capacity int, log *zap.Logger, m *metrics.Metrics) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ringBuffer{
		msgs:    make([]bufferedMsg, capacity),
		dropped: make(map[string]int),
		log:     log,
		metrics: m,
	}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	size := len(r.msgs)
	if r.count == size {
		evicted := r.msgs[r.head].topic
		if len(r.dropped) == 0 {
			r.log.Warn("offline buffer full, dropping oldest",
				zap.Int("capacity", size),
				zap.String("topic", evicted))
		}
		r.dropped[evicted]++
		r.metrics.MQTTDropped(evicted)
	} else {
		r.count++
	}
	r.msgs[r.head] = msg
	r.head = (r.head + 1) % size
}

// drainAll returns the held messages oldest first and the evictions since
// the previous drain, then empties the buffer.
func (r *ringBuffer) drainAll() ([]bufferedMsg, map[string]int) {
	var dropped map[string]int
	if len(r.dropped) > 0 {
		dropped = r.dropped
		r.dropped = make(map[string]int)
	}
	if r.count == 0 {
		return nil, dropped
	}

	size := len(r.msgs)
	out := make([]bufferedMsg, r.count)
	start := (r.head - r.count + size) % size
	for i := range out {
		out[i] = r.msgs[(start+i)%size]
	}
	r.count = 0
	r.head = 0
	return out, dropped
}

func (r *ringBuffer) len() int {
	return r.count
}
