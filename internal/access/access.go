package access

import (
	"fileops-backend/internal/models"
)

type Resource string

const (
	ResourceFile           Resource = "file"
	ResourceOwnFile        Resource = "own_file"
	ResourceUserAccount    Resource = "user_account"
	ResourceOwnUserAccount Resource = "own_user_account"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionCreate Action = "create"
)

// permissions maps each role to the (resource, action) pairs it holds
// unconditionally. Ownership-scoped resources (own_*) only apply when the
// caller owns the target.
var permissions = map[models.UserRole]map[Resource][]Action{
	models.UserRoleAdmin: {
		ResourceUserAccount: {ActionRead, ActionUpdate, ActionDelete},
		ResourceFile:        {ActionRead, ActionUpdate, ActionDelete, ActionCreate},
	},
	models.UserRoleUser: {
		ResourceUserAccount:    {ActionRead},
		ResourceOwnUserAccount: {ActionUpdate},
		ResourceFile:           {ActionCreate},
		ResourceOwnFile:        {ActionRead, ActionUpdate, ActionDelete},
	},
}

// Holds reports whether the role carries (resource, action) unconditionally.
// Every check re-derives from the current role; nothing is cached.
func Holds(role models.UserRole, resource Resource, action Action) bool {
	for _, a := range permissions[role][resource] {
		if a == action {
			return true
		}
	}
	return false
}

func CanDownload(user *models.User, file *models.File) bool {
	if Holds(user.Role, ResourceFile, ActionRead) {
		return true
	}
	return file.OwnerID == user.ID && Holds(user.Role, ResourceOwnFile, ActionRead)
}

func CanUpdate(user *models.User, file *models.File) bool {
	if Holds(user.Role, ResourceFile, ActionUpdate) {
		return true
	}
	return file.OwnerID == user.ID && Holds(user.Role, ResourceOwnFile, ActionUpdate)
}

func CanDelete(user *models.User, file *models.File) bool {
	if Holds(user.Role, ResourceFile, ActionDelete) {
		return true
	}
	return file.OwnerID == user.ID && Holds(user.Role, ResourceOwnFile, ActionDelete)
}

func CanUpload(user *models.User) bool {
	return Holds(user.Role, ResourceFile, ActionCreate)
}

func CanManageUsers(user *models.User) bool {
	return Holds(user.Role, ResourceUserAccount, ActionDelete)
}
