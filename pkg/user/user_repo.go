package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repo interface {
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// CreateUserIfAbsent inserts user unless its email is taken. It reports whether a row was written.
	CreateUserIfAbsent(ctx context.Context, user User) (bool, error)
}

type UserRepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

func (u *UserRepoImpl) GetUserByEmail(ctx context.Context, email string) (User, error) {
	query := `SELECT id, name, email, password, remember_token, created_at, updated_at
				FROM users WHERE email = $1`
	var user User
	err := u.db.QueryRow(ctx, query, email).Scan(
		&user.Id,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.RememberToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debugf("user with email %s not found", email)
		return User{}, ErrUserNotFound
	} else if err != nil {
		log.Errorf("failed to get user: %v", err)
		return User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (u *UserRepoImpl) CreateUserIfAbsent(ctx context.Context, user User) (bool, error) {
	if user.Id == uuid.Nil {
		user.Id = uuid.New()
	}
	query := `INSERT INTO users (id, name, email, password) VALUES ($1, $2, $3, $4)
				ON CONFLICT (email) DO NOTHING`
	tag, err := u.db.Exec(ctx, query, user.Id, user.Name, user.Email, user.PasswordHash)
	if err != nil {
		log.Errorf("failed to create user: %v", err)
		return false, fmt.Errorf("failed to create user: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
