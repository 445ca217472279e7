package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// PrincipalID identifies an authenticated identity (human or agent)
type PrincipalID string

// NewPrincipalID generates a new UUID v4 PrincipalID
func NewPrincipalID() PrincipalID {
	return PrincipalID(uuid.New().String())
}

// Validate checks if the PrincipalID is valid
func (p PrincipalID) Validate() error {
	if p == "" {
		return goerr.New("principal ID cannot be empty")
	}
	return nil
}

// String returns the string representation of PrincipalID
func (p PrincipalID) String() string {
	return string(p)
}

// ProjectID identifies a project, the isolation boundary for context records
type ProjectID string

// NewProjectID generates a new UUID v4 ProjectID
func NewProjectID() ProjectID {
	return ProjectID(uuid.New().String())
}

// Validate checks if the ProjectID is valid
func (p ProjectID) Validate() error {
	if p == "" {
		return goerr.New("project ID cannot be empty")
	}
	return nil
}

// String returns the string representation of ProjectID
func (p ProjectID) String() string {
	return string(p)
}

// RecordID identifies a stored context record
type RecordID string

// NewRecordID generates a new UUID v4 RecordID
func NewRecordID() RecordID {
	return RecordID(uuid.New().String())
}

// Validate checks if the RecordID is valid
func (r RecordID) Validate() error {
	if r == "" {
		return goerr.New("record ID cannot be empty")
	}
	return nil
}

// String returns the string representation of RecordID
func (r RecordID) String() string {
	return string(r)
}

// APIKeyID is the non-secret identifier embedded in an API key credential.
// It allows direct lookup of the owning principal without scanning all
// stored key hashes.
type APIKeyID string

// Validate checks if the APIKeyID is valid
func (k APIKeyID) Validate() error {
	if k == "" {
		return goerr.New("API key ID cannot be empty")
	}
	return nil
}

// String returns the string representation of APIKeyID
func (k APIKeyID) String() string {
	return string(k)
}
