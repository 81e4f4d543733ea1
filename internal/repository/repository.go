// Package repository persists User documents, tasks embedded, behind
// UserRepository. Backends: MongoDB, PostgreSQL (JSONB) and in-memory.
package repository

import (
	"context"
	"errors"
	"time"

	"todo-api/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateEmail  = errors.New("email already exists")
	ErrVersionConflict = errors.New("version conflict")
)

// UserRepository is the document store for users.
//
// Update is a compare-and-swap on the user's Version: it fails with
// ErrVersionConflict if the stored document changed since it was read, and
// bumps Version on success.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByResetOTP returns the user holding reset code otp that is still
	// valid at now.
	FindByResetOTP(ctx context.Context, otp int, now time.Time) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}
