package models

import (
	"time"

	"gorm.io/gorm"
)

// GlobalRole is a user's platform-wide role inside their tenant.
type GlobalRole string

const (
	// RoleSuperAdmin bypasses every community and tenant check.
	RoleSuperAdmin GlobalRole = "super_admin"
	// RoleCollegeAdmin administers one tenant.
	RoleCollegeAdmin GlobalRole = "college_admin"
	RoleHOD          GlobalRole = "hod"
	RoleStaff        GlobalRole = "staff"
	RoleModerator    GlobalRole = "moderator"
	RoleMember       GlobalRole = "member"
)

// Valid reports whether r is a known global role.
func (r GlobalRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleCollegeAdmin, RoleHOD, RoleStaff, RoleModerator, RoleMember:
		return true
	}
	return false
}

// User is a tenant-scoped account. Passwords are stored as bcrypt hashes.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	TenantID  uint           `gorm:"not null;index" json:"tenant_id"`
	Username  string         `gorm:"size:50;not null;uniqueIndex" json:"username"`
	Email     string         `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	FullName  string         `gorm:"size:120" json:"full_name"`
	Role      GlobalRole     `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	IsActive  bool           `gorm:"not null" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Actor is the authenticated identity a request acts as.
type Actor struct {
	UserID   uint       `json:"user_id"`
	TenantID uint       `json:"tenant_id"`
	Role     GlobalRole `json:"role"`
}

// ActorFromUser projects a user onto the identity used for permission checks.
func ActorFromUser(u *User) Actor {
	return Actor{UserID: u.ID, TenantID: u.TenantID, Role: u.Role}
}

// IsSuperAdmin reports whether the actor holds the platform-wide bypass.
func (a Actor) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

// AdministersTenant reports whether the actor may administer tenantID.
func (a Actor) AdministersTenant(tenantID uint) bool {
	if a.IsSuperAdmin() {
		return true
	}
	return a.Role == RoleCollegeAdmin && a.TenantID == tenantID
}
