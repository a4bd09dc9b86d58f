package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/crucial707/cinebrowse/internal/models"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate")
)

// uniqueViolation is the postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// ==========================
// UserRepo
// ==========================
type UserRepo struct {
	DB *sql.DB
}

// ==========================
// Constructor
// ==========================
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

// ==========================
// Create User
// ==========================

// Create inserts u (with an already hashed password) and fills in ID and CreatedAt.
func (r *UserRepo) Create(ctx context.Context, u *models.User) (int, error) {
	query := `
		INSERT INTO users (username, password, external_id, email, mobile, name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.DB.QueryRowContext(ctx, query,
		u.Username, u.Password, u.ExternalID, u.Email, u.Mobile, u.Name,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, fmt.Errorf("create user: %w", ErrDuplicate)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}

	return u.ID, nil
}

// ==========================
// Get By Username
// ==========================

// GetByUsername returns the full row, password hash included.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, password, external_id, email, mobile, name, created_at
		FROM users
		WHERE username = $1
	`

	user := &models.User{}
	err := r.DB.QueryRowContext(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.Password, &user.ExternalID,
		&user.Email, &user.Mobile, &user.Name, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}

	return user, nil
}

// ==========================
// Get By ID
// ==========================

// GetByID returns the public projection; Password is left empty.
func (r *UserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `
		SELECT id, username, name, email, external_id, mobile, created_at
		FROM users
		WHERE id = $1
	`

	user := &models.User{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Name, &user.Email,
		&user.ExternalID, &user.Mobile, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return user, nil
}

// ==========================
// Find Conflicts
// ==========================

// FindConflicts returns users sharing any of the unique fields. Password is not loaded.
func (r *UserRepo) FindConflicts(ctx context.Context, username, email, externalID string) ([]models.User, error) {
	query := `
		SELECT id, username, email, external_id
		FROM users
		WHERE username = $1 OR email = $2 OR external_id = $3
	`

	rows, err := r.DB.QueryContext(ctx, query, username, email, externalID)
	if err != nil {
		return nil, fmt.Errorf("find conflicts: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.ExternalID); err != nil {
			return nil, fmt.Errorf("find conflicts: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}
