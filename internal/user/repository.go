package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/dprimakov/gatehouse/internal/apperror"
)

// mysqlDupEntry is the MySQL/MariaDB error number for a unique key
// violation. Relying on the constraint keeps the duplicate check atomic;
// a SELECT-then-INSERT in application code would race.
const mysqlDupEntry = 1062

// Repository defines the data access contract for the credential store.
// All SQL lives in the concrete implementation. Every mutating operation
// is a single statement, so each one commits or fails as an atomic unit.
type Repository interface {
	// Create inserts a new user and fills in the assigned ID. A username
	// or email collision yields a duplicate-identity error; any other
	// failure is store-unavailable.
	Create(ctx context.Context, u *User) error

	// FindByEmail returns the user with the given email, or a not-found
	// error.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByID returns the user with the given ID, or a not-found error.
	FindByID(ctx context.Context, id int64) (*User, error)

	// UpdatePassword overwrites the stored password hash. Idempotent.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// Confirm sets is_confirmed to true. A no-op when already confirmed;
	// the flag never transitions back.
	Confirm(ctx context.Context, id int64) error
}

// repository implements Repository with hand-written MariaDB queries.
type repository struct {
	db *sql.DB
}

// NewRepository creates a credential store backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Create inserts a new user row. The users table carries unique keys on
// username and email, so collisions surface here as dup-entry errors even
// under concurrent registration.
func (r *repository) Create(ctx context.Context, u *User) error {
	query := `INSERT INTO users (username, email, password_hash, is_confirmed, role, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		u.Username,
		u.Email,
		u.PasswordHash,
		u.IsConfirmed,
		u.Role,
		u.CreatedAt,
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDupEntry {
			return apperror.NewDuplicateIdentity("a user with this username or email already exists")
		}
		return apperror.NewStoreUnavailable(fmt.Errorf("inserting user: %w", err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return apperror.NewStoreUnavailable(fmt.Errorf("reading inserted id: %w", err))
	}
	u.ID = id
	return nil
}

// FindByEmail retrieves a user by email address.
func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, username, email, password_hash, is_confirmed, role, created_at
	          FROM users WHERE email = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email), "querying user by email")
}

// FindByID retrieves a user by ID.
func (r *repository) FindByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT id, username, email, password_hash, is_confirmed, role, created_at
	          FROM users WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "querying user by id")
}

// scanOne reads a single user row, mapping sql.ErrNoRows to not-found and
// everything else to store-unavailable.
func (r *repository) scanOne(row *sql.Row, op string) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.IsConfirmed,
		&u.Role,
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, apperror.NewStoreUnavailable(fmt.Errorf("%s: %w", op, err))
	}
	return u, nil
}

// UpdatePassword overwrites the password hash for a user.
func (r *repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return apperror.NewStoreUnavailable(fmt.Errorf("updating password: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewNotFound("user not found")
	}
	return nil
}

// Confirm flips is_confirmed to true. The WHERE clause makes the
// transition monotonic and the call idempotent: re-confirming an already
// confirmed account touches no rows and is not an error.
func (r *repository) Confirm(ctx context.Context, id int64) error {
	query := `UPDATE users SET is_confirmed = true WHERE id = ? AND is_confirmed = false`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return apperror.NewStoreUnavailable(fmt.Errorf("confirming user: %w", err))
	}
	return nil
}
