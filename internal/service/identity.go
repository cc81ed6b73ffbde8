package service

import "github.com/google/uuid"

// IdentityGenerator produces fresh opaque caller tokens.
type IdentityGenerator interface {
	NewToken() string
}

// UUIDGenerator issues random (version 4) UUID strings.
type UUIDGenerator struct{}

// NewToken returns a new random UUID.
func (UUIDGenerator) NewToken() string {
	return uuid.NewString()
}
