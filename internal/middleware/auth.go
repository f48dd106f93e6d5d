package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"squadhub/internal/domain"
	"squadhub/pkg/errors"
	"squadhub/pkg/logger"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// IdentityContextKey is the key for the caller identity in context
	IdentityContextKey ContextKey = "identity"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

// Identity headers accepted when no bearer token is sent
const (
	HeaderUserID      = "X-User-ID"
	HeaderUserName    = "X-User-Name"
	HeaderUserEmail   = "X-User-Email"
	HeaderUserPremium = "X-User-Premium"

	// QueryAccessToken carries the bearer token when no header can be sent
	QueryAccessToken = "access_token"
)

// tokenClaims are the claims read from the bearer token. The token is issued
// and verified by the identity provider in front of this service; here it is
// only decoded.
type tokenClaims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Premium bool   `json:"premium"`
	jwt.RegisteredClaims
}

// Identity resolves the caller from a bearer token or the identity headers
// and stores it in the request context
func Identity(log *logger.Logger) func(http.Handler) http.Handler {
	parser := jwt.NewParser()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var identity domain.Identity

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				// Browsers cannot set headers on a websocket handshake
				if token := r.URL.Query().Get(QueryAccessToken); token != "" {
					authHeader = "Bearer " + token
				}
			}

			if authHeader != "" {
				token, ok := strings.CutPrefix(authHeader, "Bearer ")
				if !ok || strings.TrimSpace(token) == "" {
					writeErrorResponse(w, r, errors.NewAuthenticationError("Invalid authorization header format"), log)
					return
				}

				var claims tokenClaims
				if _, _, err := parser.ParseUnverified(strings.TrimSpace(token), &claims); err != nil {
					logger.FromContext(r.Context(), log).WithError(err).Debug("Token decoding failed")
					writeErrorResponse(w, r, errors.NewAuthenticationError("Invalid token"), log)
					return
				}
				identity = domain.IdentityClaims{
					Sub:     claims.Subject,
					Name:    claims.Name,
					Email:   claims.Email,
					Premium: claims.Premium,
				}.Identity()
			} else {
				premium, _ := strconv.ParseBool(r.Header.Get(HeaderUserPremium))
				identity = domain.Identity{
					ID:      strings.TrimSpace(r.Header.Get(HeaderUserID)),
					Name:    strings.TrimSpace(r.Header.Get(HeaderUserName)),
					Email:   strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
					Premium: premium,
				}
			}

			if identity.IsZero() {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Caller identity is required"), log)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx, log).WithField("user_id", identity.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the caller stored by Identity
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(IdentityContextKey).(domain.Identity)
	return identity, ok
}

// RequireAdmin refuses callers that isAdmin does not recognize
func RequireAdmin(isAdmin func(id string) bool, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				writeErrorResponse(w, r, errors.NewAuthenticationError("Caller identity is required"), log)
				return
			}
			if !isAdmin(identity.ID) {
				logger.FromContext(r.Context(), log).Warn("Admin route refused")
				writeErrorResponse(w, r, errors.NewPermissionError("Admin privileges required"), log)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID creates a middleware that adds a unique request ID to each request
func RequestID(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			ctx = logger.NewContext(ctx, log.WithField("request_id", requestID))
			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFrom returns the id assigned by RequestID
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}

// writeErrorResponse writes an error response to the client
func writeErrorResponse(w http.ResponseWriter, r *http.Request, appErr *errors.AppError, log *logger.Logger) {
	logger.FromContext(r.Context(), log).WithError(appErr).Info("Request refused")

	response := &errors.ErrorResponse{}
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.RequestID = RequestIDFrom(r.Context())
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(response)
}
