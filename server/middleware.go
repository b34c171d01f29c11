package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

type userKey struct{}

// UserFromContext returns the authenticated user id, if the request carried
// a valid token.
func UserFromContext(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(userKey{}).(string)
	return uid, ok && uid != ""
}

// anonymousUser owns the runs and documents of unauthenticated requests.
const anonymousUser = "anonymous"

func requestUser(r *http.Request) string {
	if uid, ok := UserFromContext(r.Context()); ok {
		return uid
	}

	return anonymousUser
}

// NewToken mints an HS256 bearer token for the given user, valid for ttl.
// Operators issue API credentials with it; there is no login endpoint.
func NewToken(secret, userID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("secret must not be empty")
	}

	if userID == "" {
		return "", errors.New("user id must not be empty")
	}

	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// requestLogger logs every request and, when a collector is attached,
// records request metrics labeled with the matched route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		duration := time.Since(start)

		s.logger.Info("server.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", duration,
			"bytes", ww.BytesWritten(),
			"remote", r.RemoteAddr,
		)

		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, routePattern(r), status, duration)
		}
	})
}

// routePattern returns the matched chi route pattern, keeping the metric's
// path label cardinality bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	return "unmatched"
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				s.logger.Error("server.panic",
					"error", fmt.Sprint(rec),
					"method", r.Method,
					"path", r.URL.Path,
				)
				s.respondError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// corsHandler allows the configured origins. Without configured origins,
// cross-origin requests get no CORS headers and preflights are refused.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			_, ok := allowed[origin]
			if ok && origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions && origin != "" {
				if ok {
					w.WriteHeader(http.StatusNoContent)
				} else {
					w.WriteHeader(http.StatusForbidden)
				}

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter caps per-client request rates, keyed by IP. Idle entries are
// swept out in passing, so no background goroutine is needed.
func (s *Server) rateLimiter(rps float64, burst int) func(http.Handler) http.Handler {
	if burst < 1 {
		burst = 1
	}

	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	const idleAfter = 3 * time.Minute

	var (
		mu        sync.Mutex
		clients   = make(map[string]*client)
		lastSweep = time.Now()
	)

	allow := func(ip string) bool {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()

		if now.Sub(lastSweep) > idleAfter {
			for k, c := range clients {
				if now.Sub(c.lastSeen) > idleAfter {
					delete(clients, k)
				}
			}

			lastSweep = now
		}

		c, ok := clients[ip]
		if !ok {
			c = &client{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			clients[ip] = c
		}

		c.lastSeen = now

		return c.limiter.Allow()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !allow(ip) {
				s.respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// jwtAuth verifies HS256 bearer tokens and stages the token subject as the
// request's user. Browser SSE clients cannot set headers, so the token may
// alternatively travel in the access_token query parameter.
func (s *Server) jwtAuth(secret []byte) func(http.Handler) http.Handler {
	keyFunc := func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}

		return secret, nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				s.respondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims := &jwt.RegisteredClaims{}

			token, err := jwt.ParseWithClaims(raw, claims, keyFunc, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				s.logger.Debug("server.auth.rejected", "error", err)
				s.respondError(w, http.StatusUnauthorized, "invalid or expired token")

				return
			}

			if claims.Subject == "" {
				s.respondError(w, http.StatusUnauthorized, "token has no subject")
				return
			}

			ctx := context.WithValue(r.Context(), userKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}

	return r.URL.Query().Get("access_token")
}
