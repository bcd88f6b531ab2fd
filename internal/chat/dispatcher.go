package chat

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Dispatcher fans one message out to a fixed set of recipients.
//
// Delivery is best-effort and at most once. A failed write never reaches
// the caller: the recipient session is closed instead, and its own handler
// runs the leave path when its pending read fails.
type Dispatcher struct {
	logger *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger}
}

// Broadcast writes the rendered msg to every recipient concurrently and
// returns once each delivery has succeeded or failed. It returns the number
// of successful deliveries.
func (d *Dispatcher) Broadcast(msg Message, recipients []*Session) int {
	start := time.Now()
	kind := msg.Kind.String()
	line := msg.Render()
	d.logger.Debug("broadcast", "kind", kind, "line", strings.TrimSuffix(line, "\n"), "recipients", len(recipients))

	var (
		wg        sync.WaitGroup
		delivered atomic.Int64
	)
	for _, s := range recipients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Send(line); err != nil {
				d.fail(s, err)
				return
			}
			delivered.Add(1)
		}()
	}
	wg.Wait()

	MessagesTotal.WithLabelValues(kind).Inc()
	BroadcastDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	return int(delivered.Load())
}

func (d *Dispatcher) fail(s *Session, err error) {
	DeliveryFailures.Inc()
	d.logger.Warn("delivery failed, closing session",
		"session", s.ID,
		"name", s.Name,
		"error", err,
	)
	_ = s.Close()
}
