package iam

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Inteligencia-Artesanal-FunArqui/BC-IAM/internal/models"
)

// ErrNotFound is reported when no user record matches the lookup.
var ErrNotFound = errors.New("iam: user not found")

// UserRepository owns the durable representation of users. Mutations are
// expected to run inside a transaction supplied by the caller so each
// request has a single commit boundary.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a repository over the provided database handle.
func NewUserRepository(db *gorm.DB) (*UserRepository, error) {
	if db == nil {
		return nil, errors.New("iam: db is required")
	}
	return &UserRepository{db: db}, nil
}

// WithTx returns a repository bound to the given transaction handle.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// Transaction runs fn inside a single commit boundary. A crash or error
// before return leaves the previous consistent state.
func (r *UserRepository) Transaction(ctx context.Context, fn func(repo *UserRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// FindByUsername looks up a user by login identifier.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Take(&user, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("iam: query user: %w", err)
	}
	return &user, nil
}

// FindByUsernameForUpdate locks the user row for the duration of the
// surrounding transaction. Concurrent first-login bootstraps serialise on
// this lock so only one secret can ever be assigned.
func (r *UserRepository) FindByUsernameForUpdate(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&user, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("iam: query user for update: %w", err)
	}
	return &user, nil
}

// FindByID looks up a user by stable numeric identity.
func (r *UserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Take(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("iam: query user: %w", err)
	}
	return &user, nil
}

// ExistsByUsername reports whether the username is already taken.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("iam: count users: %w", err)
	}
	return count > 0, nil
}

// Add inserts a new user record.
func (r *UserRepository) Add(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("iam: create user: %w", err)
	}
	return nil
}

// Update persists the full state of an existing user record.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("iam: update user: %w", err)
	}
	return nil
}
