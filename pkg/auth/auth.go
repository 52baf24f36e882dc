package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/mpapenbr/laptime-logger/pkg/model"
)

// ErrInvalidCredentials is returned when credentials were presented but
// could not be verified
var ErrInvalidCredentials = errors.New("invalid credentials")

// Provider resolves the identity of a request.
// It returns nil without error if the request carries no credentials it handles.
type Provider interface {
	Lookup(ctx context.Context, r *http.Request) (*model.Identity, error)
}

type chain []Provider

// Chain asks the providers in order and returns the first identity found.
// An error of a provider stops the lookup.
func Chain(providers ...Provider) Provider {
	return chain(providers)
}

func (c chain) Lookup(ctx context.Context, r *http.Request) (*model.Identity, error) {
	for _, p := range c {
		id, err := p.Lookup(ctx, r)
		if err != nil {
			return nil, err
		}
		if id != nil {
			return id, nil
		}
	}
	return nil, nil
}

type ctxIdentityKey struct{}

func NewContext(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentityKey{}, id)
}

// FromContext returns the identity of the request or nil
func FromContext(ctx context.Context) *model.Identity {
	if id, ok := ctx.Value(ctxIdentityKey{}).(*model.Identity); ok {
		return id
	}
	return nil
}
