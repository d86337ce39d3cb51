package model

import (
	"time"
)

// User represents a system user
type User struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Password string `json:"-"` // bcrypt hash
	Role     Role   `json:"role"`
	// AssignedRegion scopes regional roles; empty means no region.
	AssignedRegion   string    `json:"assigned_region,omitempty"`
	MunicipalityWide bool      `json:"municipality_wide"`
	Phone            string    `json:"phone,omitempty"`
	PayrollNumber    string    `json:"payroll_number,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// StoredUser is the persisted shape; unlike User it keeps the password hash.
type StoredUser struct {
	User
	PasswordHash string `json:"password_hash"`
}

// MarshalUsers converts users to their persisted form.
func MarshalUsers(users []User) []StoredUser {
	out := make([]StoredUser, len(users))
	for i, u := range users {
		out[i] = StoredUser{User: u, PasswordHash: u.Password}
	}
	return out
}

// UnmarshalUsers restores users from their persisted form.
func UnmarshalUsers(stored []StoredUser) []User {
	out := make([]User, len(stored))
	for i, s := range stored {
		u := s.User
		u.Password = s.PasswordHash
		out[i] = u
	}
	return out
}

// Capabilities returns the capability row of the user's role.
func (u *User) Capabilities() RoleCapabilities {
	return CapabilitiesOf(u.Role)
}

// CanChooseRegion reports whether the user may register operatives outside
// their assigned region.
func (u *User) CanChooseRegion() bool {
	return u.Capabilities().ChooseRegion || u.MunicipalityWide || u.AssignedRegion == ""
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents login response
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// ChangePasswordRequest is the self-service password change body.
type ChangePasswordRequest struct {
	Password string `json:"password" binding:"required,min=3"`
}

// CreateUserRequest is the body of a user creation.
type CreateUserRequest struct {
	FullName         string `json:"full_name" binding:"required"`
	Username         string `json:"username" binding:"required"`
	Password         string `json:"password" binding:"required"`
	Role             Role   `json:"role" binding:"required"`
	AssignedRegion   string `json:"assigned_region"`
	MunicipalityWide bool   `json:"municipality_wide"`
	Phone            string `json:"phone" binding:"omitempty,digits,max=10"`
	PayrollNumber    string `json:"payroll_number"`
}

// UpdateUserRequest is a partial update; nil fields are left untouched.
type UpdateUserRequest struct {
	FullName         *string `json:"full_name"`
	Username         *string `json:"username"`
	Password         *string `json:"password"`
	Role             *Role   `json:"role"`
	AssignedRegion   *string `json:"assigned_region"`
	MunicipalityWide *bool   `json:"municipality_wide"`
	Phone            *string `json:"phone" binding:"omitempty,digits,max=10"`
	PayrollNumber    *string `json:"payroll_number"`
}
