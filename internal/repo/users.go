package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/inventar/internal/auth"
	"github.com/erazemk/inventar/internal/model"
)

var userColumns = []string{
	"id", "email", "username", "password_hash", "full_name",
	"is_active", "is_superuser", "created_at", "updated_at",
}

func scanUser(s Scanner) (*model.User, error) {
	u := &model.User{}
	var fullName sql.NullString
	err := s.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &fullName,
		&u.IsActive, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.FullName = fullName.String
	return u, nil
}

// UserRepo provides account persistence on top of the generic repository.
type UserRepo struct {
	*Repo[model.User]
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{New(db, "users", userColumns, scanUser)}
}

// UserCreate holds the fields for a new account. The password is
// plaintext here and hashed before persisting.
type UserCreate struct {
	Email       string
	Username    string
	Password    string
	FullName    string
	IsActive    bool
	IsSuperuser bool
}

// UserPatch is a merge-patch: only non-nil fields are applied. A non-nil
// Password is hashed before the merge.
type UserPatch struct {
	Email    *string `json:"email"`
	Username *string `json:"username"`
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
	IsActive *bool   `json:"is_active"`
}

// GetByEmail returns the account with the given email, or nil.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getBy(ctx, "email", email)
}

// GetByUsername returns the account with the given username, or nil.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *UserRepo) getBy(ctx context.Context, column, value string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+r.columns+` FROM users WHERE `+column+` = ?`, value)
	u, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by %s: %w", column, err)
	}
	return u, nil
}

// Create hashes the plaintext password and persists the account. The
// plaintext is never stored.
func (r *UserRepo) Create(ctx context.Context, in UserCreate) (*model.User, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	return r.insert(ctx, []Field{
		{"email", in.Email},
		{"username", in.Username},
		{"password_hash", hash},
		{"full_name", nullable(in.FullName)},
		{"is_active", in.IsActive},
		{"is_superuser", in.IsSuperuser},
	})
}

// Update applies a merge-patch to an existing account.
func (r *UserRepo) Update(ctx context.Context, existing *model.User, patch UserPatch) (*model.User, error) {
	var fields []Field
	if patch.Email != nil {
		fields = append(fields, Field{"email", *patch.Email})
	}
	if patch.Username != nil {
		fields = append(fields, Field{"username", *patch.Username})
	}
	if patch.FullName != nil {
		fields = append(fields, Field{"full_name", nullable(*patch.FullName)})
	}
	if patch.Password != nil {
		hash, err := auth.HashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{"password_hash", hash})
	}
	if patch.IsActive != nil {
		fields = append(fields, Field{"is_active", *patch.IsActive})
	}

	return r.update(ctx, existing.ID, fields)
}

// Authenticate looks an account up by username, falling back to email,
// and verifies the password. Returns nil when no account matches or the
// password is wrong. The active flag is the caller's concern.
func (r *UserRepo) Authenticate(ctx context.Context, identifier, password string) (*model.User, error) {
	user, err := r.GetByUsername(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = r.GetByEmail(ctx, identifier)
		if err != nil {
			return nil, err
		}
	}

	if user == nil || !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, nil
	}
	return user, nil
}
