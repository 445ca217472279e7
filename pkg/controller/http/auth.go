package http

import (
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/model/auth"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
	"github.com/teamctx-lab/teamctx/pkg/usecase"
	"github.com/teamctx-lab/teamctx/pkg/utils/errutil"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type meResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// setAccessCookie stores the access token for browser sessions so that
// subsequent requests authenticate without an Authorization header.
func setAccessCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(auth.AccessTokenTTL.Seconds()),
	})
}

func writeTokenPair(w http.ResponseWriter, r *http.Request, pair *auth.TokenPair) {
	setAccessCookie(w, r, pair.AccessToken)
	writeJSON(r.Context(), w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	})
}

func authLoginHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(types.ErrBadRequest, "invalid login request body"))
			return
		}

		pair, err := uc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err)
			return
		}

		writeTokenPair(w, r, pair)
	}
}

func authRefreshHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(types.ErrBadRequest, "invalid refresh request body"))
			return
		}
		if req.RefreshToken == "" {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(types.ErrBadRequest, "refresh_token is required"))
			return
		}

		pair, err := uc.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err)
			return
		}

		writeTokenPair(w, r, pair)
	}
}

func authMeHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principalID, ok := auth.PrincipalIDFromContext(r.Context())
		if !ok {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(types.ErrUnauthenticated, "no principal in request context"))
			return
		}

		principal, err := uc.GetPrincipal(r.Context(), principalID)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err)
			return
		}

		writeJSON(r.Context(), w, http.StatusOK, meResponse{
			ID:    principal.ID.String(),
			Email: principal.Email,
			Name:  principal.Name,
		})
	}
}
