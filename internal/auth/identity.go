package auth

import "github.com/google/uuid"

// Identity is the stable handle issued by the credential store. Its ID is the
// primary key every profile record is bound to.
type Identity struct {
	ID    string
	Email string
}

// IDProvider issues opaque identity identifiers.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
