package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fau-events/internal/model"
)

const userColumns = `id, username, password_hash, name, role, created_at, updated_at`

type UserRepository struct {
	db   *Database
	cost int
	// dummyHash is compared against when a username does not exist so a
	// miss costs the same as a wrong password.
	dummyHash []byte
}

func NewUserRepository(db *Database, bcryptCost int) *UserRepository {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("fau-timing-equaliser"), bcryptCost)
	return &UserRepository{db: db, cost: bcryptCost, dummyHash: dummy}
}

func (r *UserRepository) Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), r.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = model.UserRoleUser
	}

	var user model.User
	query := `
		INSERT INTO users (username, password_hash, name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns
	err = r.db.QueryRowxContext(ctx, query, normalizeUsername(req.Username), string(hashedPassword), req.Name, role).
		StructScan(&user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("username %q: %w", req.Username, model.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	err := r.db.GetContext(ctx, &user, query, normalizeUsername(username))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if isNoRows(err) || isInvalidInput(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY name`
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Authenticate returns the user for a matching username/password pair or
// model.ErrInvalidCredentials.
func (r *UserRepository) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := r.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(r.dummyHash, []byte(password))
		return nil, model.ErrInvalidCredentials
	}
	if !r.ValidatePassword(user, password) {
		return nil, model.ErrInvalidCredentials
	}
	return user, nil
}

func (r *UserRepository) ValidatePassword(user *model.User, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	return err == nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, string(hashedPassword), time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// EnsureAdmin creates the bootstrap admin account if it does not exist yet.
// An existing account keeps its password.
func (r *UserRepository) EnsureAdmin(ctx context.Context, username, password, name string) (*model.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user model.User
	query := `
		INSERT INTO users (username, password_hash, name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE SET role = EXCLUDED.role, updated_at = CURRENT_TIMESTAMP
		RETURNING ` + userColumns
	err = r.db.QueryRowxContext(ctx, query, normalizeUsername(username), string(hashedPassword), name, model.UserRoleAdmin).
		StructScan(&user)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	return &user, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
