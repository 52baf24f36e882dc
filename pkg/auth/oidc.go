package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/samber/lo"

	"github.com/mpapenbr/laptime-logger/log"
	"github.com/mpapenbr/laptime-logger/pkg/model"
)

type (
	OIDCOption func(*oidcProvider)

	oidcProvider struct {
		verifier   *oidc.IDTokenVerifier
		adminGroup string
		roleGroups map[string]string // group claim value -> role
		l          *log.Logger
	}

	//nolint:tagliatelle // external API
	claims struct {
		Subject           string   `json:"sub"`
		Name              string   `json:"name"`
		PreferredUsername string   `json:"preferred_username"`
		Email             string   `json:"email"`
		Groups            []string `json:"groups"`
	}
)

// WithAdminGroup grants admin rights to members of group
func WithAdminGroup(group string) OIDCOption {
	return func(p *oidcProvider) {
		p.adminGroup = group
	}
}

// WithRoleGroup maps members of group to role
func WithRoleGroup(group, role string) OIDCOption {
	return func(p *oidcProvider) {
		p.roleGroups[group] = role
	}
}

// NewOIDCProvider discovers the issuer and verifies bearer tokens issued
// for clientID
//
//nolint:whitespace // editor/linter issue
func NewOIDCProvider(
	ctx context.Context,
	issuer, clientID string,
	opts ...OIDCOption,
) (Provider, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	return NewOIDCProviderWithVerifier(
		provider.Verifier(&oidc.Config{ClientID: clientID}), opts...), nil
}

//nolint:whitespace // editor/linter issue
func NewOIDCProviderWithVerifier(
	verifier *oidc.IDTokenVerifier,
	opts ...OIDCOption,
) Provider {
	ret := &oidcProvider{
		verifier:   verifier,
		roleGroups: map[string]string{},
		l:          log.Default().Named("auth.oidc"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

//nolint:whitespace // editor/linter issue
func (p *oidcProvider) Lookup(
	ctx context.Context,
	r *http.Request,
) (*model.Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return nil, nil
	}
	token, err := p.verifier.Verify(ctx, strings.TrimSpace(raw))
	if err != nil {
		p.l.Debug("token verification failed", log.ErrorField(err))
		return nil, ErrInvalidCredentials
	}
	var c claims
	if err := token.Claims(&c); err != nil {
		p.l.Warn("could not parse claims", log.ErrorField(err))
		return nil, ErrInvalidCredentials
	}
	if c.Email == "" {
		p.l.Debug("token without email claim", log.String("sub", token.Subject))
		return nil, ErrInvalidCredentials
	}
	name := lo.CoalesceOrEmpty(c.Name, c.PreferredUsername, c.Email, token.Subject)
	return &model.Identity{
		UserID:  token.Subject,
		Name:    name,
		Email:   c.Email,
		IsAdmin: p.adminGroup != "" && lo.Contains(c.Groups, p.adminGroup),
		Roles: lo.Uniq(lo.FilterMap(c.Groups, func(g string, _ int) (string, bool) {
			role, ok := p.roleGroups[g]
			return role, ok
		})),
	}, nil
}
