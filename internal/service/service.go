// Package service реализует бизнес-логику сервиса роялти.
package service

import (
	"context"
	"time"

	"github.com/mmeshcher/bookleaf-royalties/internal/repository"
)

// MinWithdrawal — минимальная сумма одного вывода средств.
const MinWithdrawal int64 = 500

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	repository.Store
	WithinTx(ctx context.Context, fn func(repository.Store) error) error
	Close() error
}

// Service содержит бизнес-логику сервиса роялти.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService создаёт новый сервис с указанным репозиторием.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}
