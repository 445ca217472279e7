package auth

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
)

// TokenType discriminates the two signed credential classes. A refresh
// token must never be accepted where an access token is required, and
// vice versa.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Validate checks if the TokenType is valid
func (t TokenType) Validate() error {
	switch t {
	case TokenTypeAccess, TokenTypeRefresh:
		return nil
	default:
		return goerr.New("invalid token type", goerr.V("type", string(t)))
	}
}

// Validity windows for the signed credential classes. The two windows are
// independent; issuing one class never extends the other.
const (
	AccessTokenTTL  = 24 * time.Hour
	RefreshTokenTTL = 24 * time.Hour
)

// Claims is the verified payload of a signed credential
type Claims struct {
	Subject   types.PrincipalID
	Type      TokenType
	ExpiresAt time.Time
}

// TokenPair is the result of issuing credentials for a principal
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type ctxPrincipalKey struct{}

// ContextWithPrincipalID stores the resolved principal ID in the context
// for the lifetime of the request.
func ContextWithPrincipalID(ctx context.Context, id types.PrincipalID) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey{}, id)
}

// PrincipalIDFromContext returns the resolved principal ID, or false if the
// request was not authenticated.
func PrincipalIDFromContext(ctx context.Context) (types.PrincipalID, bool) {
	id, ok := ctx.Value(ctxPrincipalKey{}).(types.PrincipalID)
	return id, ok
}
