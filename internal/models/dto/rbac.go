package dto

import (
	"strings"

	"github.com/google/uuid"

	"github.com/hongminglow/cabinet-be/internal/rbac"
)

// RoleRequest creates or updates a role. On update a missing permissions
// list leaves the role's permissions unchanged.
type RoleRequest struct {
	Name        string    `json:"name" validate:"required,max=64"`
	Description string    `json:"description" validate:"max=255"`
	Permissions *[]string `json:"permissions" validate:"omitempty,dive,required"`
}

func (r RoleRequest) Input() rbac.RoleInput {
	in := rbac.RoleInput{Name: strings.TrimSpace(r.Name), Description: strings.TrimSpace(r.Description)}
	if r.Permissions != nil {
		in.Permissions = append([]string{}, (*r.Permissions)...)
	}
	return in
}

type PermissionIDsRequest struct {
	PermissionIDs []uuid.UUID `json:"permissionIds" validate:"required,min=1"`
}

type RoleIDsRequest struct {
	RoleIDs []uuid.UUID `json:"roleIds" validate:"required"`
}
