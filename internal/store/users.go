package store

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/mindmaps/internal/dbx"
	"github.com/starford/mindmaps/internal/models"
)

const userColumns = `id, email, password_hash, security_question, security_answer_hash, hint, created_at`

// Users is the repository for accounts.
type Users struct {
	querier
}

// NewUsers binds a user repository to q, which may be a pool or a transaction.
func NewUsers(q dbx.DBTX, driver string) *Users {
	return &Users{querier{q: q, driver: driver}}
}

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.SecurityQuestion, &u.SecurityAnswerHash, &u.Hint, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// FindByEmail returns the user with exactly this email.
func (r *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return nil, wrap("find user by email", err)
	}
	return u, nil
}

// FindByID returns the user with the given id.
func (r *Users) FindByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, wrap("find user by id", err)
	}
	return u, nil
}

// EmailExists reports whether an account uses email.
func (r *Users) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&n); err != nil {
		return false, fmt.Errorf("store: email exists: %w", err)
	}
	return n > 0, nil
}

// Insert stores u and fills in its ID and CreatedAt. A taken email yields
// apperr.ErrAlreadyExists.
func (r *Users) Insert(ctx context.Context, u *models.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	err := r.queryRow(ctx, `
		INSERT INTO users (email, password_hash, security_question, security_answer_hash, hint, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, u.Email, u.PasswordHash, u.SecurityQuestion, u.SecurityAnswerHash, u.Hint, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		return wrap("insert user", err)
	}
	return nil
}

// UpdatePasswordHash replaces the stored password hash of user id.
func (r *Users) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return r.execOne(ctx, "update password hash", `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
}

// UpdateEmail changes the email of user id.
func (r *Users) UpdateEmail(ctx context.Context, id int64, email string) error {
	return r.execOne(ctx, "update email", `UPDATE users SET email = ? WHERE id = ?`, email, id)
}

// Delete removes user id. Their mind maps go with them.
func (r *Users) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, "delete user", `DELETE FROM users WHERE id = ?`, id)
}

// List returns every user ordered by id.
func (r *Users) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list users: %w", err)
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
