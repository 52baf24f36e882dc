package permission

import "github.com/mpapenbr/laptime-logger/pkg/model"

type Permission string

const (
	PermissionRecordLapTime   Permission = "record-laptime"
	PermissionModerateLapTime Permission = "moderate-laptime"
	PermissionManageTrack     Permission = "manage-track"
	PermissionManageCatalog   Permission = "manage-catalog"
	PermissionUpdateProfile   Permission = "update-profile"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleModerator    Role = "moderator"
	RoleTrackManager Role = "track-manager"
	RoleDriver       Role = "driver"
)

type PermissionEvaluator interface {
	HasPermission(id *model.Identity, perm Permission) bool
	// HasObjectPermission grants perm if the identity owns the object
	HasObjectPermission(id *model.Identity, perm Permission, objectOwner string) bool
}

// RolesOf derives the roles of an identity. Every identity is a driver.
func RolesOf(id *model.Identity) []Role {
	if id == nil {
		return nil
	}
	ret := []Role{RoleDriver}
	if id.IsAdmin {
		ret = append(ret, RoleAdmin)
	}
	for _, r := range id.Roles {
		ret = append(ret, Role(r))
	}
	return ret
}
