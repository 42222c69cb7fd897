package user

import (
	"errors"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// passwordParams match the node-argon2 defaults the existing user rows were hashed with.
var passwordParams = &argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

func hashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, passwordParams)
}

// verifyPassword checks password against an encoded argon2id hash
// ($argon2id$v=19$m=...,t=...,p=...$salt$key) or a bcrypt hash.
func verifyPassword(password, hash string) (bool, error) {
	if strings.HasPrefix(hash, "$2") {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	}
	return argon2id.ComparePasswordAndHash(password, hash)
}
