package store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dom/speed-dating/internal/domain"
	"github.com/dom/speed-dating/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func historyPair() []*domain.ChatHistory {
	sessionID := uuid.New()
	return []*domain.ChatHistory{
		{ID: uuid.New(), SessionID: sessionID, UserID: uuid.New()},
		{ID: uuid.New(), SessionID: sessionID, UserID: uuid.New()},
	}
}

func TestHistoryWriter_CloseDrains(t *testing.T) {
	repo := new(MockChatHistoryRepository)
	writer := store.NewHistoryWriter(repo, 8, time.Second, quietLogger(), nil)

	first, second := historyPair(), historyPair()
	repo.On("CreateMany", mock.Anything, first).Return(nil).Once()
	repo.On("CreateMany", mock.Anything, second).Return(nil).Once()

	writer.Append(first...)
	writer.Append(second...)
	writer.Close()

	repo.AssertExpectations(t)
}

func TestHistoryWriter_FullQueueDrops(t *testing.T) {
	repo := new(MockChatHistoryRepository)
	fails := &countingFailures{}
	writer := store.NewHistoryWriter(repo, 1, time.Second, quietLogger(), fails)

	release := make(chan time.Time)
	repo.On("CreateMany", mock.Anything, mock.Anything).
		WaitUntil(release).
		Return(nil)

	writer.Append(historyPair()...)
	// The worker may or may not have picked up the first batch yet; either
	// way, three more batches cannot all fit in a queue of one.
	writer.Append(historyPair()...)
	writer.Append(historyPair()...)
	writer.Append(historyPair()...)

	close(release)
	writer.Close()

	assert.NotEmpty(t, fails.Kinds())
	for _, kind := range fails.Kinds() {
		assert.Equal(t, store.KindHistory, kind)
	}
}

func TestHistoryWriter_FailuresAreCounted(t *testing.T) {
	repo := new(MockChatHistoryRepository)
	fails := &countingFailures{}
	writer := store.NewHistoryWriter(repo, 4, time.Second, quietLogger(), fails)

	repo.On("CreateMany", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	writer.Append(historyPair()...)
	writer.Close()
	writer.Append(historyPair()...)

	assert.Equal(t, []string{store.KindHistory, store.KindHistory}, fails.Kinds())
}
