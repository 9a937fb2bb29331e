package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stroymat/materials-bot/internal/intake"
)

const (
	mailboxSize = 32
	mailboxIdle = 5 * time.Minute
)

// inbound is an event plus the message and callback query of its button,
// if any.
type inbound struct {
	event      intake.Event
	messageID  int
	callbackID string
}

// mailboxes serialize events per user while letting different users run
// concurrently. A mailbox goroutine exits after sitting idle.
type mailboxes struct {
	mu     sync.Mutex
	boxes  map[int64]chan inbound
	wg     sync.WaitGroup
	handle func(context.Context, inbound)
	size   int
	idle   time.Duration
	logger *slog.Logger
}

func newMailboxes(handle func(context.Context, inbound), size int, idle time.Duration, logger *slog.Logger) *mailboxes {
	return &mailboxes{
		boxes:  make(map[int64]chan inbound),
		handle: handle,
		size:   size,
		idle:   idle,
		logger: logger,
	}
}

func (m *mailboxes) deliver(ctx context.Context, in inbound) {
	userID := in.event.UserID

	m.mu.Lock()
	defer m.mu.Unlock()

	box, ok := m.boxes[userID]
	if !ok {
		box = make(chan inbound, m.size)
		m.boxes[userID] = box
		m.wg.Add(1)
		go m.serve(ctx, userID, box)
	}

	select {
	case box <- in:
	default:
		m.logger.Warn("mailbox full, dropping event", "user_id", userID)
	}
}

func (m *mailboxes) serve(ctx context.Context, userID int64, box chan inbound) {
	defer m.wg.Done()

	timer := time.NewTimer(m.idle)
	defer timer.Stop()

	for {
		select {
		case in := <-box:
			m.handle(ctx, in)
			timer.Reset(m.idle)

		case <-timer.C:
			m.mu.Lock()
			if len(box) > 0 {
				m.mu.Unlock()
				timer.Reset(m.idle)
				continue
			}
			delete(m.boxes, userID)
			m.mu.Unlock()
			return

		case <-ctx.Done():
			m.mu.Lock()
			delete(m.boxes, userID)
			m.mu.Unlock()
			return
		}
	}
}

func (m *mailboxes) active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.boxes)
}

// wait blocks until every mailbox goroutine has exited.
func (m *mailboxes) wait() {
	m.wg.Wait()
}
