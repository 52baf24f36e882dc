package profile

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/laptime-logger/log"
	"github.com/mpapenbr/laptime-logger/pkg/model"
	"github.com/mpapenbr/laptime-logger/pkg/permission"
	"github.com/mpapenbr/laptime-logger/pkg/repository/api"
	"github.com/mpapenbr/laptime-logger/pkg/service/svcerr"
)

const MaxBioLength = 500

type Option func(*Service)

func WithUserRepository(repo api.UserRepository) Option {
	return func(s *Service) {
		s.users = repo
	}
}

func WithPermissionEvaluator(pe permission.PermissionEvaluator) Option {
	return func(s *Service) {
		s.pe = pe
	}
}

type Service struct {
	users api.UserRepository
	pe    permission.PermissionEvaluator
	log   *log.Logger
}

func NewService(opts ...Option) *Service {
	ret := &Service{
		log: log.Default().Named("service.profile"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// EnsureUser creates or refreshes the user entry of the identity
func (s *Service) EnsureUser(ctx context.Context, id *model.Identity) (*model.User, error) {
	if id == nil || id.UserID == "" {
		return nil, svcerr.ErrUnauthenticated
	}
	ret, err := s.users.Upsert(ctx, id.User())
	return ret, svcerr.FromRepository(s.log, "upsert user", err, nil)
}

// UpdateBio sets the bio of the user behind the identity.
// Surrounding whitespace is removed, an empty bio clears the value.
//
//nolint:whitespace // editor/linter issue
func (s *Service) UpdateBio(
	ctx context.Context,
	id *model.Identity,
	bio string,
) (*model.User, error) {
	if id == nil || id.UserID == "" {
		return nil, svcerr.ErrUnauthenticated
	}
	if s.pe != nil &&
		!s.pe.HasObjectPermission(id, permission.PermissionUpdateProfile, id.UserID) {
		return nil, svcerr.ErrPermissionDenied
	}
	bio = strings.TrimSpace(bio)
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return nil, svcerr.Validation("bio", "must not exceed %d characters", MaxBioLength)
	}
	value := null.From(bio)
	if bio == "" {
		value = null.FromPtr[string](nil)
	}
	num, err := s.users.UpdateBio(ctx, id.UserID, value)
	if err != nil {
		return nil, svcerr.FromRepository(s.log, "update bio", err, nil)
	}
	if num == 0 {
		return nil, svcerr.ErrUserNotFound
	}
	ret, err := s.users.LoadByID(ctx, id.UserID)
	return ret, svcerr.FromRepository(s.log, "load user", err, svcerr.ErrUserNotFound)
}
