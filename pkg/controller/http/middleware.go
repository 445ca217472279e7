package http

import (
	"net/http"
	"strings"

	"github.com/teamctx-lab/teamctx/pkg/domain/model/auth"
	"github.com/teamctx-lab/teamctx/pkg/usecase"
	"github.com/teamctx-lab/teamctx/pkg/utils/errutil"
)

// accessTokenCookie carries the access token for browser sessions. It takes
// precedence over the Authorization header when both are present.
const accessTokenCookie = "access_token"

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func cookieToken(r *http.Request) string {
	cookie, err := r.Cookie(accessTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// authMiddleware resolves the caller's identity and stores the principal ID
// in the request context. Unresolvable requests are rejected with 401.
func authMiddleware(uc *usecase.UseCases) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := uc.Authenticate(r.Context(), bearerToken(r), cookieToken(r))
			if err != nil {
				errutil.HandleHTTP(r.Context(), w, err)
				return
			}

			ctx := auth.ContextWithPrincipalID(r.Context(), principal.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
