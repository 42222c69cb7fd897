package user

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type StubUserRepository struct {
	mu   sync.Mutex
	data map[string]User
}

func NewStubUserRepository() *StubUserRepository {
	return &StubUserRepository{data: map[string]User{}}
}

func (s *StubUserRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.data[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *StubUserRepository) CreateUserIfAbsent(ctx context.Context, user User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[user.Email]; ok {
		return false, nil
	}
	if user.Id == uuid.Nil {
		user.Id = uuid.New()
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	s.data[user.Email] = user
	return true, nil
}
