package models

// Admin is a User whose Role is "admin". Embedding keeps it storable
// through the same repository as any other user.
type Admin struct {
	User
}

// NewAdmin creates an admin model with Role preset to "admin".
func NewAdmin(email, name string) *Admin {
	return &Admin{User: User{Email: email, Name: name, Role: RoleAdmin}}
}
