package api

import (
	"context"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpupo63/foodgram-backend/errs"
	"github.com/rpupo63/foodgram-backend/models"
	"github.com/rpupo63/foodgram-backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type userFinder interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

type tokenParser interface {
	Parse(ctx context.Context, raw string) (*services.Claims, error)
}

type authMiddleware struct {
	responder Responder
	tokens    tokenParser
	users     userFinder
}

func newAuthMiddleware(tokens tokenParser, users userFinder) authMiddleware {
	logger := log.With().Str("handlerName", "authMiddleware").Logger()
	return authMiddleware{
		responder: NewResponder(logger),
		tokens:    tokens,
		users:     users,
	}
}

// tokenFromHeader accepts "Token <t>" and "Bearer <t>".
func tokenFromHeader(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return "", false
	}
	if !strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// identify resolves the caller. No Authorization header means anonymous;
// a header that does not resolve to an active user is an error.
func (m authMiddleware) identify(r *http.Request) (*models.User, *services.Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil, nil
	}
	raw, ok := tokenFromHeader(header)
	if !ok {
		return nil, nil, errs.NewInvalidTokenError()
	}

	claims, err := m.tokens.Parse(r.Context(), raw)
	if err != nil {
		return nil, nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, nil, err
	}
	user, err := m.users.FindByID(r.Context(), userID)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, nil, errs.NewInvalidTokenError()
		}
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, errs.NewInvalidTokenError()
	}
	return user, claims, nil
}

func (m authMiddleware) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, claims, err := m.identify(r)
		if err != nil {
			m.responder.WriteError(w, err)
			return
		}
		if user == nil {
			m.responder.WriteError(w, errs.Unauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctxWithUser(r.Context(), user, claims)))
	})
}

// optional lets anonymous requests through but still rejects bad tokens.
func (m authMiddleware) optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, claims, err := m.identify(r)
		if err != nil {
			m.responder.WriteError(w, err)
			return
		}
		if user != nil {
			r = r.WithContext(ctxWithUser(r.Context(), user, claims))
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin must run after authenticate.
func (m authMiddleware) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ctxGetUser(r.Context()).IsAdmin() {
			m.responder.WriteError(w, errs.NewInsufficientRoleError(string(models.RoleAdmin)))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.status = statusCode
		w.wroteHeader = true
		w.ResponseWriter.WriteHeader(statusCode)
	}
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func LogInternalServerErrors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srw := &statusResponseWriter{ResponseWriter: w, status: 200}

		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				log.Error().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("requestID", middleware.GetReqID(r.Context())).
					Interface("panic", err).
					Str("stack", string(debug.Stack())).
					Msg("Recovered from panic")

				if !srw.wroteHeader {
					NewResponder(log.Logger).WriteJSONStatus(srw, http.StatusInternalServerError, ErrorResponse{
						Error:  "Internal Server Error",
						Status: "error",
					})
				}
			}
		}()

		next.ServeHTTP(srw, r)

		if srw.status == http.StatusInternalServerError {
			log.Error().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("requestID", middleware.GetReqID(r.Context())).
				Msg("500 error response")
		}
	})
}

// CORSCheckMiddleware answers disallowed preflight requests with a JSON error
// instead of a bare response without CORS headers.
func CORSCheckMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			for _, allowedOrigin := range allowedOrigins {
				if allowedOrigin == "*" || allowedOrigin == origin {
					next.ServeHTTP(w, r)
					return
				}
			}

			NewResponder(log.Logger).WriteError(w, errs.NewCORSError(origin))
		})
	}
}

// httpLoggingMiddleware logs one line per request with a level chosen by status.
func httpLoggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			srw := &statusResponseWriter{ResponseWriter: w, status: 200}

			next.ServeHTTP(srw, r)

			var logEvent *zerolog.Event
			switch {
			case srw.status >= 500:
				logEvent = logger.Error()
			case srw.status >= 400:
				logEvent = logger.Warn()
			default:
				logEvent = logger.Info()
			}

			logEvent.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", srw.status).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("requestID", middleware.GetReqID(r.Context())).
				Msg("HTTP Request")
		})
	}
}

// ColoredHTTPLoggingMiddleware logs requests to a colored console writer.
func ColoredHTTPLoggingMiddleware(next http.Handler) http.Handler {
	colorLogger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	return httpLoggingMiddleware(colorLogger)(next)
}
