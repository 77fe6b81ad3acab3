package storage

// Permission is an atomic permission token. Name is the token checked by
// the permission gate; Permission gates who may edit this row.
type Permission struct {
	PermissionID int64  `json:"permissionId"`
	Name         string `json:"name"`
	Permission   string `json:"permission"`
}

// Role is a named collection of permissions
type Role struct {
	RoleID      int64        `json:"roleId"`
	Name        string       `json:"name"`
	Permission  string       `json:"permission"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// User is a registered console user. Roles is hydrated on single-resource
// reads only.
type User struct {
	UserID     int64  `json:"userId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Permission string `json:"permission"`
	Roles      []Role `json:"roles,omitempty"`
}
