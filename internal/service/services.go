package service

import (
	"github.com/dom/speed-dating/internal/collab"
	"github.com/dom/speed-dating/internal/config"
	"github.com/dom/speed-dating/internal/repository"
)

type Services struct {
	Auth    *AuthService
	Queue   *QueueService
	History *HistoryService
}

func NewServices(repos *repository.Repositories, users UserStore, sessions SessionStore, dir collab.Directory, queue QueueSource, cfg *config.Config) *Services {
	return &Services{
		Auth:    NewAuthService(users, sessions, dir, cfg),
		Queue:   NewQueueService(dir, dir, dir, queue),
		History: NewHistoryService(repos.ChatHistory),
	}
}
