//nolint:funlen // ok for this test code
package permission

import (
	"testing"

	"github.com/mpapenbr/laptime-logger/pkg/model"
)

var (
	admin     = &model.Identity{UserID: "admin", IsAdmin: true}
	driver    = &model.Identity{UserID: "driver"}
	moderator = &model.Identity{UserID: "mod", Roles: []string{string(RoleModerator)}}
	trackMgr  = &model.Identity{UserID: "tm", Roles: []string{string(RoleTrackManager)}}
)

func TestOpa_HasPermission(t *testing.T) {
	ope, err := NewOpaPermissionEvaluator()
	if err != nil {
		t.Fatalf("NewOpaPermissionEvaluator() error = %v", err)
	}
	type args struct {
		id   *model.Identity
		perm Permission
	}
	tests := []struct {
		name string
		args args
		want bool
	}{
		{"admin moderates", args{admin, PermissionModerateLapTime}, true},
		{"admin manages tracks", args{admin, PermissionManageTrack}, true},
		{"driver records", args{driver, PermissionRecordLapTime}, true},
		{"driver can't moderate", args{driver, PermissionModerateLapTime}, false},
		{"driver can't manage tracks", args{driver, PermissionManageTrack}, false},
		{"moderator moderates", args{moderator, PermissionModerateLapTime}, true},
		{"moderator can't manage tracks", args{moderator, PermissionManageTrack}, false},
		{"track manager", args{trackMgr, PermissionManageTrack}, true},
		{"track manager catalog", args{trackMgr, PermissionManageCatalog}, true},
		{"no identity", args{nil, PermissionRecordLapTime}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ope.HasPermission(tt.args.id, tt.args.perm); got != tt.want {
				t.Errorf("HasPermission() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpa_HasObjectPermission(t *testing.T) {
	ope, err := NewOpaPermissionEvaluator()
	if err != nil {
		t.Fatalf("NewOpaPermissionEvaluator() error = %v", err)
	}
	tests := []struct {
		name  string
		id    *model.Identity
		owner string
		want  bool
	}{
		{"own profile", driver, "driver", true},
		{"foreign profile", driver, "someone", false},
		{"missing owner", driver, "", false},
		{"admin on foreign profile", admin, "someone", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ope.HasObjectPermission(tt.id, PermissionUpdateProfile, tt.owner)
			if got != tt.want {
				t.Errorf("HasObjectPermission() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRolesOf(t *testing.T) {
	got := RolesOf(&model.Identity{IsAdmin: true, Roles: []string{"moderator"}})
	want := []Role{RoleDriver, RoleAdmin, RoleModerator}
	if len(got) != len(want) {
		t.Fatalf("RolesOf() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RolesOf()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
