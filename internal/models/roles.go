package models

// UserRole is the role string stored on user documents.
type UserRole string

const (
	RoleSuperAdmin      UserRole = "superadmin"
	RoleOwner           UserRole = "owner"
	RoleDistrictManager UserRole = "districtmanager"
	RoleGeneralManager  UserRole = "generalmanager"
	RoleEmployee        UserRole = "employee"
)

func (r UserRole) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleOwner, RoleDistrictManager, RoleGeneralManager, RoleEmployee:
		return true
	}
	return false
}

func (r UserRole) String() string {
	return string(r)
}

// RecipientRole is the role key used in notification recipient selections.
// The dashboard uses snake_case names; user documents store the compact form.
// This table is the single mapping between the two.
type RecipientRole string

const (
	RecipientSuperAdmin      RecipientRole = "super_admin"
	RecipientOwner           RecipientRole = "owner"
	RecipientDistrictManager RecipientRole = "district_manager"
	RecipientGeneralManager  RecipientRole = "general_manager"
	RecipientEmployee        RecipientRole = "employee"
)

var recipientRoleToUserRole = map[RecipientRole]UserRole{
	RecipientSuperAdmin:      RoleSuperAdmin,
	RecipientOwner:           RoleOwner,
	RecipientDistrictManager: RoleDistrictManager,
	RecipientGeneralManager:  RoleGeneralManager,
	RecipientEmployee:        RoleEmployee,
}

// UserRoleFor resolves a recipient role key to the stored user role.
func UserRoleFor(r RecipientRole) (UserRole, bool) {
	role, ok := recipientRoleToUserRole[r]
	return role, ok
}

func AllRecipientRoles() []RecipientRole {
	return []RecipientRole{
		RecipientSuperAdmin,
		RecipientOwner,
		RecipientDistrictManager,
		RecipientGeneralManager,
		RecipientEmployee,
	}
}
