package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dom/speed-dating/internal/domain"
	"github.com/dom/speed-dating/internal/repository"
)

// HistoryWriter appends chat history records on a background worker. Append
// never blocks: when the queue is full the batch is dropped and logged.
type HistoryWriter struct {
	repo    repository.ChatHistoryRepository
	timeout time.Duration
	logger  *slog.Logger
	fails   FailureRecorder

	mu      sync.RWMutex
	closed  bool
	batches chan []*domain.ChatHistory
	done    chan struct{}
}

func NewHistoryWriter(repo repository.ChatHistoryRepository, size int, timeout time.Duration, logger *slog.Logger, fails FailureRecorder) *HistoryWriter {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	if fails == nil {
		fails = nopFailures{}
	}
	w := &HistoryWriter{
		repo:    repo,
		timeout: timeout,
		logger:  logger,
		fails:   fails,
		batches: make(chan []*domain.ChatHistory, size),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *HistoryWriter) Append(records ...*domain.ChatHistory) {
	if len(records) == 0 {
		return
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.drop(records, "history writer closed")
		return
	}

	select {
	case w.batches <- records:
	default:
		w.drop(records, "history queue full")
	}
}

func (w *HistoryWriter) drop(records []*domain.ChatHistory, msg string) {
	w.logger.Error(msg+", records dropped",
		slog.String("session_id", records[0].SessionID.String()),
		slog.Int("records", len(records)),
	)
	w.fails.PersistFailed(KindHistory)
}

func (w *HistoryWriter) run() {
	defer close(w.done)
	for batch := range w.batches {
		w.write(batch)
	}
}

func (w *HistoryWriter) write(batch []*domain.ChatHistory) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.repo.CreateMany(ctx, batch); err != nil {
		w.logger.Error("failed to persist chat history",
			slog.String("session_id", batch[0].SessionID.String()),
			slog.String("error", err.Error()),
		)
		w.fails.PersistFailed(KindHistory)
	}
}

// Close stops accepting records and waits until queued ones are written.
func (w *HistoryWriter) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.batches)
	}
	w.mu.Unlock()
	<-w.done
}
