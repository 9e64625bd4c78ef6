// Package auth handles registration and login. Passwords are stored as
// bcrypt hashes only.
package auth

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"expense-tracker/internal/entity/user"
	"expense-tracker/internal/model/customerr"
)

const minPasswordLength = 6

type userStorage interface {
	CreateUser(ctx context.Context, username, passwordHash string) (user.Record, error)
	GetUserByName(ctx context.Context, username string) (user.Record, error)
}

type Service struct {
	storage userStorage
}

func NewService(storage userStorage) *Service {
	return &Service{storage: storage}
}

func (s *Service) Register(ctx context.Context, username, password string) (user.Record, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return user.Record{}, &customerr.ValidationError{Err: "username is required"}
	}
	if len(password) < minPasswordLength {
		return user.Record{}, &customerr.ValidationError{Err: "password must be at least 6 characters"}
	}

	_, err := s.storage.GetUserByName(ctx, username)
	if err == nil {
		return user.Record{}, &customerr.ValidationError{Err: "username is already taken"}
	}
	if !customerr.IsNotFound(err) {
		return user.Record{}, errors.Wrap(err, "register")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.Record{}, errors.Wrap(err, "register")
	}

	rec, err := s.storage.CreateUser(ctx, username, string(hash))
	if err != nil {
		return user.Record{}, errors.Wrap(err, "register")
	}
	return rec, nil
}

// Login verifies credentials. Unknown usernames and wrong passwords get the
// same answer so the response does not reveal which accounts exist.
func (s *Service) Login(ctx context.Context, username, password string) (user.Record, error) {
	rec, err := s.storage.GetUserByName(ctx, strings.TrimSpace(username))
	if customerr.IsNotFound(err) {
		return user.Record{}, &customerr.ValidationError{Err: "invalid username or password"}
	}
	if err != nil {
		return user.Record{}, errors.Wrap(err, "login")
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		return user.Record{}, &customerr.ValidationError{Err: "invalid username or password"}
	}
	return rec, nil
}
