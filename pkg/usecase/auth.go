package usecase

import (
	"context"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/domain/model/auth"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
	"github.com/teamctx-lab/teamctx/pkg/utils/async"
	"github.com/teamctx-lab/teamctx/pkg/utils/logging"
	"golang.org/x/crypto/bcrypt"
)

// tokenTypeClaim is the private claim distinguishing access from refresh
// tokens. Checked on every verification so one class is never accepted in
// place of the other.
const tokenTypeClaim = "typ"

// Authenticate resolves a principal from the presented credentials.
// Priority: cookie JWT, then Authorization header (JWT or API key). A valid
// cookie wins over whatever the header carries, but an invalid cookie falls
// through to the header so a stale browser cookie does not lock out an
// otherwise valid bearer credential. Every successful resolution records one
// usage event; the recording is fire-and-forget and can never fail the
// resolution itself.
func (uc *UseCases) Authenticate(ctx context.Context, bearer, cookie string) (*model.Principal, error) {
	principal, err := uc.resolve(ctx, bearer, cookie)
	if err != nil {
		return nil, err
	}

	email := principal.Email
	async.Dispatch(ctx, func(ctx context.Context) error {
		if err := uc.sink.RecordUsage(ctx, email); err != nil {
			return goerr.Wrap(err, "failed to record usage", goerr.V("email", email))
		}
		return nil
	})

	return principal, nil
}

func (uc *UseCases) resolve(ctx context.Context, bearer, cookie string) (*model.Principal, error) {
	if cookie != "" {
		principal, err := uc.authenticateToken(ctx, cookie)
		if err == nil {
			return principal, nil
		}
		if bearer == "" {
			return nil, err
		}
	}

	if bearer != "" {
		if _, ok := auth.ParseAPIKey(bearer); ok {
			return uc.authenticateAPIKey(ctx, bearer)
		}
		return uc.authenticateToken(ctx, bearer)
	}

	return nil, goerr.Wrap(types.ErrUnauthenticated, "no credentials provided")
}

func (uc *UseCases) authenticateToken(ctx context.Context, raw string) (*model.Principal, error) {
	claims, err := uc.VerifyToken(raw, auth.TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	principal, err := uc.repo.Principal().Get(ctx, claims.Subject)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(types.ErrUnauthenticated, "principal no longer exists",
				goerr.V(types.PrincipalIDKey, claims.Subject))
		}
		return nil, goerr.Wrap(err, "failed to load principal",
			goerr.V(types.PrincipalIDKey, claims.Subject))
	}

	return principal, nil
}

func (uc *UseCases) authenticateAPIKey(ctx context.Context, credential string) (*model.Principal, error) {
	keyID, ok := auth.ParseAPIKey(credential)
	if !ok {
		return nil, goerr.Wrap(types.ErrUnauthenticated, "malformed API key")
	}

	principal, err := uc.repo.Principal().GetByAPIKeyID(ctx, keyID)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(types.ErrUnauthenticated, "unknown API key")
		}
		return nil, goerr.Wrap(err, "failed to look up API key owner")
	}

	if principal.HashedAPIKey == "" {
		return nil, goerr.Wrap(types.ErrUnauthenticated, "principal has no API key",
			goerr.V(types.PrincipalIDKey, principal.ID))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(principal.HashedAPIKey), []byte(credential)); err != nil {
		return nil, goerr.Wrap(types.ErrUnauthenticated, "API key verification failed")
	}

	return principal, nil
}

// Login verifies an email/password pair and issues a fresh token pair.
// Unknown email and wrong password are indistinguishable to the caller.
func (uc *UseCases) Login(ctx context.Context, email, password string) (*auth.TokenPair, error) {
	if email == "" || password == "" {
		return nil, goerr.Wrap(types.ErrBadRequest, "email and password are required")
	}

	principal, err := uc.repo.Principal().GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(types.ErrUnauthenticated, "invalid email or password")
		}
		return nil, goerr.Wrap(err, "failed to look up principal")
	}

	if principal.HashedPassword == "" {
		return nil, goerr.Wrap(types.ErrUnauthenticated, "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(principal.HashedPassword), []byte(password)); err != nil {
		return nil, goerr.Wrap(types.ErrUnauthenticated, "invalid email or password")
	}

	logging.From(ctx).Info("principal logged in", "principal_id", principal.ID)

	return uc.IssueTokens(ctx, principal.ID)
}

// Refresh exchanges a valid refresh token for a fresh token pair
func (uc *UseCases) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := uc.VerifyToken(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	// The principal may have been removed since the token was issued
	if _, err := uc.repo.Principal().Get(ctx, claims.Subject); err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(types.ErrUnauthenticated, "principal no longer exists",
				goerr.V(types.PrincipalIDKey, claims.Subject))
		}
		return nil, goerr.Wrap(err, "failed to load principal",
			goerr.V(types.PrincipalIDKey, claims.Subject))
	}

	return uc.IssueTokens(ctx, claims.Subject)
}

// IssueTokens signs a new access/refresh token pair for the principal
func (uc *UseCases) IssueTokens(ctx context.Context, id types.PrincipalID) (*auth.TokenPair, error) {
	if len(uc.jwtSecret) == 0 {
		return nil, goerr.Wrap(types.ErrConfiguration, "JWT secret is not configured")
	}

	accessToken, err := uc.signToken(id, auth.TokenTypeAccess, auth.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := uc.signToken(id, auth.TokenTypeRefresh, auth.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	return &auth.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (uc *UseCases) signToken(id types.PrincipalID, tokenType auth.TokenType, ttl time.Duration) (string, error) {
	now := time.Now()
	token, err := jwt.NewBuilder().
		Subject(id.String()).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Claim(tokenTypeClaim, string(tokenType)).
		Build()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build token", goerr.V("type", tokenType))
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, uc.jwtSecret))
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign token", goerr.V("type", tokenType))
	}

	return string(signed), nil
}

// VerifyToken parses and validates a signed token and requires the given
// token type.
func (uc *UseCases) VerifyToken(raw string, want auth.TokenType) (*auth.Claims, error) {
	if len(uc.jwtSecret) == 0 {
		return nil, goerr.Wrap(types.ErrConfiguration, "JWT secret is not configured")
	}

	token, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, uc.jwtSecret),
		jwt.WithValidate(true),
	)
	if err != nil {
		return nil, goerr.Wrap(types.ErrUnauthenticated, "failed to verify token")
	}

	typRaw, ok := token.Get(tokenTypeClaim)
	if !ok {
		return nil, goerr.Wrap(types.ErrUnauthenticated, "token type claim missing")
	}
	typ, ok := typRaw.(string)
	if !ok || auth.TokenType(typ) != want {
		return nil, goerr.Wrap(types.ErrUnauthenticated, "unexpected token type",
			goerr.V("want", want))
	}

	subject := types.PrincipalID(token.Subject())
	if err := subject.Validate(); err != nil {
		return nil, goerr.Wrap(types.ErrUnauthenticated, "token subject is not a principal ID")
	}

	return &auth.Claims{
		Subject:   subject,
		Type:      want,
		ExpiresAt: token.Expiration(),
	}, nil
}

// GetPrincipal loads a principal by ID
func (uc *UseCases) GetPrincipal(ctx context.Context, id types.PrincipalID) (*model.Principal, error) {
	return uc.repo.Principal().Get(ctx, id)
}
