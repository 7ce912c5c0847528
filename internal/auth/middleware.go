package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"teamreports/internal/core"
)

type ContextKey string

const UserContextKey ContextKey = "auth_user"

// UserFinder loads the account a token refers to.
type UserFinder interface {
	GetUser(ctx context.Context, id string) (core.User, error)
}

// Predicate decides whether a role may use a route.
type Predicate func(core.Role) bool

// AnyOf allows exactly the listed roles.
func AnyOf(roles ...core.Role) Predicate {
	return func(r core.Role) bool {
		for _, allowed := range roles {
			if r == allowed {
				return true
			}
		}
		return false
	}
}

var (
	ReportSubmitters = AnyOf(core.RoleMember)
	ReportViewers    = AnyOf(core.RoleLeader, core.RoleSuperior)
)

// ErrorWriter renders an authentication (401) or authorization (403) failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, err error)

func defaultErrorWriter(w http.ResponseWriter, _ *http.Request, status int, err error) {
	http.Error(w, err.Error(), status)
}

// Authenticator resolves the bearer token on each request to a user.
type Authenticator struct {
	tokens  *TokenIssuer
	users   UserFinder
	onError ErrorWriter
}

func NewAuthenticator(tokens *TokenIssuer, users UserFinder, onError ErrorWriter) *Authenticator {
	if onError == nil {
		onError = defaultErrorWriter
	}
	return &Authenticator{tokens: tokens, users: users, onError: onError}
}

// Middleware rejects requests without a valid token for an existing user.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerToken(r)
		if err != nil {
			a.onError(w, r, http.StatusUnauthorized, err)
			return
		}
		claims, err := a.tokens.Parse(raw)
		if err != nil {
			a.onError(w, r, http.StatusUnauthorized, ErrInvalidToken)
			return
		}
		user, err := a.users.GetUser(r.Context(), claims.UserID)
		if err != nil {
			a.onError(w, r, http.StatusUnauthorized, ErrInvalidToken)
			return
		}
		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

var ErrForbidden = errors.New("insufficient role")

// Require allows the request through only when allow accepts the caller's role.
func (a *Authenticator) Require(allow Predicate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				a.onError(w, r, http.StatusUnauthorized, ErrMissingToken)
				return
			}
			if !allow(user.Role) {
				a.onError(w, r, http.StatusForbidden, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func UserFromContext(ctx context.Context) (core.User, bool) {
	u, ok := ctx.Value(UserContextKey).(core.User)
	return u, ok
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}
