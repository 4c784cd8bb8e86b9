package middleware

import (
	"net/http"
	"strings"

	"deltarb/pkg/crypto"
	"deltarb/pkg/utils"
)

// Auth - middleware аутентификации ops-эндпоинтов.
//
// Ожидает заголовок Authorization: Bearer <token> и сверяет токен
// с bcrypt-хэшем из конфигурации. Сам токен нигде не хранится и
// не логируется.
//
// tokenHash передаётся при построении маршрутов: пустой хэш означает,
// что конфигурация сломана, и доступ закрыт целиком.
func Auth(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				http.Error(w, "API access disabled", http.StatusForbidden)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if err := crypto.VerifyToken(token, tokenHash); err != nil {
				utils.Warn("rejected API request with invalid token",
					utils.String("path", r.URL.Path),
					utils.String("remote", r.RemoteAddr))
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
