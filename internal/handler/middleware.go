package handler

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"banking-ledger/internal/model"
)

type contextKey string

const principalKey contextKey = "principal"

// TokenParser извлекает пользователя и его роль из bearer токена
type TokenParser interface {
	ParseToken(token string) (model.Principal, error)
}

// AuthMiddleware проверяет наличие и валидность JWT токена в заголовке Authorization
func AuthMiddleware(tokens TokenParser, logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Отсутствует заголовок Authorization")
				writeError(w, http.StatusUnauthorized, "Authorization header is required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Warn("Неверный формат заголовка Authorization")
				writeError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			principal, err := tokens.ParseToken(parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole пропускает запрос только для перечисленных ролей.
// Подключается после AuthMiddleware.
func RequireRole(logger *logrus.Logger, roles ...model.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if !slices.Contains(roles, principal.Role) {
				logger.WithFields(logrus.Fields{
					"user_id": principal.UserID,
					"role":    principal.Role,
					"path":    r.URL.Path,
				}).Warn("Недостаточно прав для запроса")
				writeError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext возвращает пользователя, положенного AuthMiddleware
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey).(model.Principal)
	return p, ok && p.UserID != uuid.Nil
}

// UserIDFromContext возвращает ID пользователя, положенный AuthMiddleware
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	p, ok := PrincipalFromContext(ctx)
	return p.UserID, ok
}
