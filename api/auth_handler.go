package api

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/rpupo63/foodgram-backend/database"
	"github.com/rpupo63/foodgram-backend/errs"
	"github.com/rpupo63/foodgram-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type authHandler struct {
	responder Responder
	logger    zerolog.Logger
	users     *database.UserRepo
	tokens    *services.TokenService
}

func newAuthHandler(users *database.UserRepo, tokens *services.TokenService) authHandler {
	logger := log.With().Str("handlerName", "authHandler").Logger()

	return authHandler{
		responder: NewResponder(logger),
		logger:    logger,
		users:     users,
		tokens:    tokens,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	AuthToken string `json:"auth_token"`
}

// loginRateLimit limits login attempts per client IP and answers with a JSON 429.
func loginRateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	responder := NewResponder(log.With().Str("handlerName", "loginRateLimit").Logger())
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			responder.WriteError(w, errs.NewApiErr(http.StatusTooManyRequests, "too many login attempts, try again later"))
		}),
	)
}

// login
// @Summary Obtain auth token
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body loginRequest true "Credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/auth/token/login/ [post]
func (h authHandler) login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		user, err := h.users.FindByEmail(r.Context(), req.Email)
		if err != nil {
			if errs.IsNotFound(err) {
				err = errs.NewInvalidCredentialsError()
			}
			h.responder.WriteError(w, err)
			return
		}
		ok, err := services.CheckPassword(user.PasswordHash, req.Password)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if !ok || !user.IsActive {
			h.responder.WriteError(w, errs.NewInvalidCredentialsError())
			return
		}

		token, err := h.tokens.Issue(user.ID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.logger.Info().Uint("userID", user.ID).Msg("token issued")
		h.responder.WriteJSON(w, TokenResponse{AuthToken: token})
	}
}

func (h authHandler) logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.tokens.Revoke(r.Context(), ctxGetClaims(r.Context())); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteNoContent(w)
	}
}
