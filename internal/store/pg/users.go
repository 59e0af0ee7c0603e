package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"custodia.org/internal/auth"
	"custodia.org/internal/ids"
)

var _ auth.Store = (*Store)(nil)

const uniqueViolation = "23505"

func (s *Store) Create(ctx context.Context, u *auth.User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into users(id, name, email, password_hash, role, created_at)
		values ($1,$2,$3,$4,$5,$6)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return auth.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (s *Store) Find(ctx context.Context, id string) (*auth.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		select id, name, email, password_hash, role, created_at
		from users where id=$1
	`, id))
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		select id, name, email, password_hash, role, created_at
		from users where email=$1
	`, email))
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) scanUser(row *sql.Row) (*auth.User, error) {
	var u auth.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Lookup resolves requester display fields for admin request listings.
func (s *Store) Lookup(ctx context.Context, userID string) (string, string, bool) {
	var name, email string
	err := s.db.QueryRowContext(ctx, `
		select name, email from users where id=$1
	`, userID).Scan(&name, &email)
	if err != nil {
		return "", "", false
	}
	return name, email, true
}
