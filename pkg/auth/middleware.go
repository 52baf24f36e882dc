package auth

import (
	"errors"
	"net/http"

	"github.com/mpapenbr/laptime-logger/log"
)

// Middleware resolves the identity of each request and stores it in the
// request context. Requests with invalid credentials are rejected with 401,
// requests without credentials pass as anonymous.
func Middleware(p Provider) func(http.Handler) http.Handler {
	l := log.Default().Named("auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := p.Lookup(r.Context(), r)
			if err != nil {
				if !errors.Is(err, ErrInvalidCredentials) {
					l.Error("identity lookup failed", log.ErrorField(err))
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="ltl"`)
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			if id != nil {
				r = r.WithContext(NewContext(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireIdentity rejects anonymous requests with 401
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="ltl"`)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
