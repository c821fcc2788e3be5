package security

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Different types of error that returned from the VerifyToken
var (
	ErrExpiredToken = errors.New("token has expired")
	ErrInvalidToken = errors.New("invalid token")
)

// Payload contains the payload data of the token
type Payload struct {
	ID          uuid.UUID
	Subject     string
	Permissions []string
	IssuedAt    time.Time
	ExpiredAt   time.Time
	Scope       string
}

// NewPayload creates a new token payload for a subject and duration
func NewPayload(subject string, permissions []string, duration time.Duration) (*Payload, error) {
	tokenID, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}

	payload := &Payload{
		ID:          tokenID,
		Subject:     subject,
		Permissions: append([]string(nil), permissions...),
		IssuedAt:    time.Now(),
		ExpiredAt:   time.Now().Add(duration),
		Scope:       TokenScopeAccess,
	}

	return payload, nil
}

func (p *Payload) Valid() error {
	if time.Now().After(p.ExpiredAt) {
		return ErrExpiredToken
	}
	return nil
}

// Principal returns the caller identity carried by the token.
func (p *Payload) Principal() Principal {
	return Principal{UserID: p.Subject, Permissions: append([]string(nil), p.Permissions...)}
}
