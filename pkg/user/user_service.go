package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/config"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	// Login checks the credentials and returns the user with a signed token.
	Login(ctx context.Context, email, password string) (User, string, error)
	SeedUsers(ctx context.Context, seeds []config.SeedUser, password string) error
}

type TokenIssuer interface {
	Issue(userId, email, name string) (string, error)
}

type UserServiceImpl struct {
	repo   Repo
	tokens TokenIssuer
}

func NewUserService(repo Repo, tokens TokenIssuer) *UserServiceImpl {
	return &UserServiceImpl{repo: repo, tokens: tokens}
}

func (u *UserServiceImpl) Login(ctx context.Context, email, password string) (User, string, error) {
	user, err := u.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return User{}, "", ErrInvalidCredentials
	} else if err != nil {
		return User{}, "", err
	}

	match, err := verifyPassword(password, user.PasswordHash)
	if err != nil {
		log.Errorf("unreadable password hash for %s: %v", user.Email, err)
		return User{}, "", ErrInvalidCredentials
	}
	if !match {
		log.Debugf("password mismatch for %s", user.Email)
		return User{}, "", ErrInvalidCredentials
	}

	token, err := u.tokens.Issue(user.Id.String(), user.Email, user.Name)
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

func (u *UserServiceImpl) SeedUsers(ctx context.Context, seeds []config.SeedUser, password string) error {
	if len(seeds) == 0 {
		return nil
	}
	hash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash default password: %w", err)
	}

	for _, seed := range seeds {
		created, err := u.repo.CreateUserIfAbsent(ctx, User{
			Name:         seed.Name,
			Email:        normalizeEmail(seed.Email),
			PasswordHash: hash,
		})
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", seed.Email, err)
		}
		if created {
			log.Infof("Seeded user %s", seed.Email)
		}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
