// Package notification manages newsletter subscriptions.
package notification

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var (
	// ErrDuplicateEmail is returned when the email is already subscribed.
	ErrDuplicateEmail = errors.New("email already subscribed")
	// ErrInvalidEmail is returned for malformed addresses.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrNameRequired is returned when the full name is blank.
	ErrNameRequired = errors.New("full name required")
)

// Subscription is a newsletter signup.
type Subscription struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository defines persistence operations for subscriptions.
type Repository interface {
	List(ctx context.Context) ([]Subscription, error)
	// Create returns ErrDuplicateEmail when the email is taken.
	Create(ctx context.Context, s *Subscription) error
}

// Service validates and stores subscriptions.
type Service struct {
	repo Repository
}

// NewService creates a notification Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns subscriptions, newest first.
func (s *Service) List(ctx context.Context) ([]Subscription, error) {
	return s.repo.List(ctx)
}

// Subscribe stores a new subscription.
func (s *Service) Subscribe(ctx context.Context, email, fullName string) (*Subscription, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, ErrNameRequired
	}

	sub := &Subscription{
		ID:       uuid.New().String(),
		Email:    email,
		FullName: fullName,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}
