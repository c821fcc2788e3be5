package security

import (
	"time"
)

const (
	TokenScopeAccess = "access"
)

// Maker makes a new token
type Maker interface {

	// CreateToken creates a new token for a subject, its permissions and a duration
	CreateToken(subject string, permissions []string, duration time.Duration) (string, *Payload, error)

	// VerifyToken checks if the token is valid or not
	VerifyToken(token string) (*Payload, error)
}
