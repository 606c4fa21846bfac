package rbac

// Permission represents an atomic capability.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Grant is a permission together with the roles that confer it.
type Grant struct {
	Permission
	Roles []string `json:"roles"`
}
