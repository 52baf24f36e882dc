package permission

import (
	"bytes"
	"context"
	_ "embed"

	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/storage/inmem"

	"github.com/mpapenbr/laptime-logger/log"
	"github.com/mpapenbr/laptime-logger/pkg/model"
)

type OpaPermissionEvaluator struct {
	query rego.PreparedEvalQuery
	l     *log.Logger
}

type EvalRequest struct {
	Roles       []Role     `json:"roles"`
	Subject     string     `json:"subject"`
	Action      Permission `json:"action"`
	ObjectOwner string     `json:"objectOwner,omitempty"`
}

// check interface compliance
var _ PermissionEvaluator = (*OpaPermissionEvaluator)(nil)

//go:embed policy.rego
var policy []byte

//go:embed data.json
var data []byte

func NewOpaPermissionEvaluator() (*OpaPermissionEvaluator, error) {
	l := log.Default().Named("permission").Named("opa")
	store := inmem.NewFromReader(bytes.NewReader(data))
	r := rego.New(
		rego.Query("data.laptime.authz.allow"),
		rego.Module("laptime.authz", string(policy)),
		rego.Store(store),
	)
	query, err := r.PrepareForEval(context.Background())
	if err != nil {
		l.Error("failed to prepare query", log.ErrorField(err))
		return nil, err
	}
	return &OpaPermissionEvaluator{
		query: query,
		l:     l,
	}, nil
}

//nolint:whitespace // editor/linter issue
func (ope *OpaPermissionEvaluator) HasPermission(
	id *model.Identity,
	perm Permission,
) bool {
	return ope.HasObjectPermission(id, perm, "")
}

//nolint:whitespace // editor/linter issue
func (ope *OpaPermissionEvaluator) HasObjectPermission(
	id *model.Identity,
	perm Permission,
	objectOwner string,
) bool {
	if id == nil {
		return false
	}
	req := EvalRequest{
		Roles:       RolesOf(id),
		Subject:     id.UserID,
		Action:      perm,
		ObjectOwner: objectOwner,
	}
	ope.l.Debug("HasObjectPermission",
		log.String("subject", id.UserID),
		log.Any("roles", req.Roles),
		log.String("perm", string(perm)),
		log.String("objectOwner", objectOwner))

	rs, err := ope.query.Eval(context.Background(), rego.EvalInput(req))
	if err != nil {
		ope.l.Error("HasObjectPermission", log.ErrorField(err))
		return false
	}
	ope.l.Debug("res", log.Any("res", rs))
	return rs.Allowed()
}
