package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dom/speed-dating/internal/domain"
	"github.com/dom/speed-dating/internal/repository"
	"github.com/google/uuid"
)

const userWriteQueueSize = 256

type userWrite struct {
	id    uuid.UUID
	patch domain.UserPatch
}

// Users is a read-through cache of user records with write-behind updates.
// Memory is authoritative for the running process; a failed durable write is
// logged and counted, never surfaced to the caller.
type Users struct {
	mu      sync.RWMutex
	cache   map[uuid.UUID]*domain.User
	repo    repository.UserRepository
	timeout time.Duration
	logger  *slog.Logger
	fails   FailureRecorder

	writes    chan userWrite
	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

func NewUsers(repo repository.UserRepository, timeout time.Duration, logger *slog.Logger, fails FailureRecorder) *Users {
	if logger == nil {
		logger = slog.Default()
	}
	if fails == nil {
		fails = nopFailures{}
	}
	u := &Users{
		cache:   make(map[uuid.UUID]*domain.User),
		repo:    repo,
		timeout: timeout,
		logger:  logger,
		fails:   fails,
		writes:  make(chan userWrite, userWriteQueueSize),
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go u.writeLoop()
	return u
}

// GetUser returns the cached user, loading it from the repository on a miss.
func (u *Users) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if user, ok := u.Peek(id); ok {
		return user, nil
	}

	user, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}

	u.mu.Lock()
	if cached, ok := u.cache[id]; ok {
		// A concurrent update got there first; it is newer than what we read.
		user = cached
	} else {
		u.cache[id] = user
	}
	cp := *user
	u.mu.Unlock()
	return &cp, nil
}

// Peek answers from memory only.
func (u *Users) Peek(id uuid.UUID) (*domain.User, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	user, ok := u.cache[id]
	if !ok {
		return nil, false
	}
	cp := *user
	return &cp, true
}

// UpdateUser applies patch in memory and queues the durable write. It
// reports false when the user is not cached; the patch is still persisted.
func (u *Users) UpdateUser(id uuid.UUID, patch domain.UserPatch) (*domain.User, bool) {
	u.mu.Lock()
	user, ok := u.cache[id]
	var cp domain.User
	if ok {
		patch.Apply(user)
		user.UpdatedAt = time.Now()
		cp = *user
	}
	u.mu.Unlock()

	u.enqueue(userWrite{id: id, patch: patch})
	if !ok {
		return nil, false
	}
	return &cp, true
}

// AccrueCall adds one session and seconds of call time to the user's totals,
// applied through UpdateUser. Totals are only accrued from the matchmaking
// loop, so the read and the patch do not interleave with another accrual.
func (u *Users) AccrueCall(id uuid.UUID, seconds int64) (*domain.User, bool) {
	user, ok := u.Peek(id)
	if !ok {
		return nil, false
	}
	total := user.TotalCallSeconds + seconds
	count := user.SessionCount + 1
	return u.UpdateUser(id, domain.UserPatch{TotalCallSeconds: &total, SessionCount: &count})
}

func (u *Users) enqueue(w userWrite) {
	select {
	case <-u.closed:
		u.logger.Error("user write after close dropped", slog.String("user_id", w.id.String()))
		u.fails.PersistFailed(KindUser)
		return
	default:
	}

	select {
	case u.writes <- w:
	default:
		u.logger.Error("user write queue full, update not persisted",
			slog.String("user_id", w.id.String()),
		)
		u.fails.PersistFailed(KindUser)
	}
}

// writeLoop persists updates one at a time so they land in the order they were applied.
func (u *Users) writeLoop() {
	defer close(u.done)
	for {
		select {
		case w := <-u.writes:
			u.persist(w)
		case <-u.closed:
			for {
				select {
				case w := <-u.writes:
					u.persist(w)
				default:
					return
				}
			}
		}
	}
}

func (u *Users) persist(w userWrite) {
	ctx, cancel := context.WithTimeout(context.Background(), u.timeout)
	defer cancel()

	if err := u.repo.Patch(ctx, w.id, w.patch); err != nil {
		u.logger.Error("failed to persist user update",
			slog.String("user_id", w.id.String()),
			slog.String("error", err.Error()),
		)
		u.fails.PersistFailed(KindUser)
	}
}

// Close stops accepting writes and waits for queued ones to finish.
func (u *Users) Close() {
	u.closeOnce.Do(func() { close(u.closed) })
	<-u.done
}
