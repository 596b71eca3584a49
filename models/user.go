package models

import "strings"

// Role is a permission level; roles are ordered viewer < editor < admin
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

var roleRank = map[Role]int{RoleViewer: 0, RoleEditor: 1, RoleAdmin: 2}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants everything need grants
func (r Role) AtLeast(need Role) bool {
	have, ok := roleRank[r]
	if !ok {
		return false
	}
	want, ok := roleRank[need]
	if !ok {
		return false
	}
	return have >= want
}

// User is an account allowed to sign in
type User struct {
	Username     string `json:"username"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"-"`
}

// UserForm represents admin input for creating, updating or renaming a user
type UserForm struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Role        Role   `json:"role"`
	OldUsername string `json:"oldUsername"`
}

// Validate validates the user form data
func (f *UserForm) Validate() []string {
	var errors []string

	if strings.TrimSpace(f.Username) == "" {
		errors = append(errors, "Missing username")
	}

	if f.Role == "" {
		errors = append(errors, "Missing role")
	} else if !f.Role.Valid() {
		errors = append(errors, "Unknown role "+string(f.Role))
	}

	return errors
}

// Actor is the already-resolved identity behind a request
type Actor struct {
	Username string
	Role     Role
}

// Anonymous is the actor used when no one is signed in
var Anonymous = Actor{Role: RoleViewer}

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role.AtLeast(RoleAdmin)
}
