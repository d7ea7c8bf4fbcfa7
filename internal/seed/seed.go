// Package seed populates a fresh store with its baseline records.
package seed

import (
	"context"
	"fmt"
	"io"

	"adminSeeder/models"
)

const (
	AdminEmail = "admin@example.com"
	AdminName  = "Admin User"
)

// UserCreator is the slice of the user repository the seeder needs.
type UserCreator interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
}

// AdminUser returns the administrative account inserted by Run.
func AdminUser() *models.User {
	return &models.NewAdmin(AdminEmail, AdminName).User
}

// Run inserts the admin user and, once the insert has completed, writes a
// confirmation line to out. There is no pre-check and no retry: if the
// email is already taken the store's error is returned and nothing is written.
func Run(ctx context.Context, users UserCreator, out io.Writer) (*models.User, error) {
	created, err := users.Create(ctx, AdminUser())
	if err != nil {
		return nil, fmt.Errorf("seed admin user: %w", err)
	}
	if _, err := fmt.Fprintf(out, "Created admin user: %s\n", created.Email); err != nil {
		return created, fmt.Errorf("write confirmation: %w", err)
	}
	return created, nil
}
