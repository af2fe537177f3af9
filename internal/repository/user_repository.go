package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/zesthaus/event-booking/internal/model"
)

// UserRepo stores customers who signed in with a one-time code.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,name,created_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// FindOrCreate returns the user with the given email, inserting it first
// when it does not exist.  Two first logins racing on the same email both
// end up with the same row.
func (r *UserRepo) FindOrCreate(ctx context.Context, email, name string) (model.User, error) {
	u, err := r.GetByEmail(ctx, email)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return u, err
	}
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, name, created_at) VALUES (?,?,?)",
		email, name, now)
	if err != nil {
		if isDuplicateKey(err) {
			return r.GetByEmail(ctx, email)
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return model.User{ID: uint64(id), Email: email, Name: name, CreatedAt: now}, nil
}
