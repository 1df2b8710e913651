package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/pbaille/autojournal/internal/domain"
	appErrors "github.com/pbaille/autojournal/internal/errors"
)

type ctxKey struct{}

// Identity is the resolved caller of a request. User is nil for anonymous
// callers, who act as domain.DefaultOwner with default settings.
type Identity struct {
	User *domain.User
	Err  error
}

// Owner returns the id entries and tags are scoped to.
func (id Identity) Owner() string {
	if id.User == nil {
		return domain.DefaultOwner
	}
	return id.User.UserID
}

// Settings returns the capture settings that apply to the caller.
func (id Identity) Settings() domain.Settings {
	if id.User == nil {
		return domain.DefaultSettings()
	}
	return id.User.Settings
}

// FromContext returns the identity stored by Identify.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Identify resolves the token header, if any, into an Identity. Requests
// without a token continue anonymously; a token that does not resolve is
// reported through fail instead.
func (s *Service) Identify(fail func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(Header)
			if token == "" {
				id := Identity{Err: appErrors.NewUnauthorized(ErrMissingToken.Error())}
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
				return
			}
			u, err := s.Authenticate(r.Context(), token)
			if err != nil {
				if !appErrors.IsUnauthorized(err) {
					s.logger.Error("resolve user failed", zap.Error(err))
				}
				fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Identity{User: u})))
		})
	}
}

// RequireAuth rejects requests without a resolved user, reporting the
// failure through fail.
func RequireAuth(fail func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := FromContext(r.Context())
			if id.User == nil {
				err := id.Err
				if err == nil {
					err = appErrors.NewUnauthorized(ErrMissingToken.Error())
				}
				fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
