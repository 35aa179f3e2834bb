package postgres

import (
	"context"
	"fmt"

	kpool "github.com/analytical-platform/controlpanel/pkg/conn/db/postgres/pool"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	domerr "github.com/analytical-platform/controlpanel/pkg/domain/errors"
	kuser "github.com/analytical-platform/controlpanel/pkg/domain/user/db"
)

type pgUser struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kuser.Interface {
	return &pgUser{pool: pool}
}

func (u *pgUser) Get(ctx context.Context, sub string) (domain.User, error) {
	conn, err := u.pool.Acquire(ctx)
	if err != nil {
		return domain.User{}, err
	}
	defer conn.Release()

	user := domain.User{}
	err = conn.QueryRow(
		ctx,
		`
		select "sub", "username", "name", "email", "email_verified", "is_superuser", "created_at"
		from "users" where "sub" = $1
		`,
		sub,
	).Scan(
		&user.Sub, &user.Username, &user.Name, &user.Email,
		&user.EmailVerified, &user.IsSuperuser, &user.CreatedAt,
	)
	if kpool.NoRows(err) {
		return domain.User{}, fmt.Errorf("%w: user %s", domerr.ErrMissing, sub)
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u *pgUser) Find(ctx context.Context) ([]domain.User, error) {
	conn, err := u.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select "sub", "username", "name", "email", "email_verified", "is_superuser", "created_at"
		from "users" order by "username"
		`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		user := domain.User{}
		if err := rows.Scan(
			&user.Sub, &user.Username, &user.Name, &user.Email,
			&user.EmailVerified, &user.IsSuperuser, &user.CreatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (u *pgUser) Register(ctx context.Context, user domain.User) error {
	conn, err := u.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(
		ctx,
		`
		insert into "users" ("sub", "username", "name", "email", "email_verified", "is_superuser", "created_at")
		values ($1, $2, $3, $4, $5, $6, now())
		`,
		user.Sub, user.Username, user.Name, user.Email, user.EmailVerified, user.IsSuperuser,
	)
	if kpool.UniqueViolation(err) {
		return fmt.Errorf("%w: user %s", domerr.ErrConflict, user.Sub)
	}
	return err
}

func (u *pgUser) Update(ctx context.Context, user domain.User) error {
	conn, err := u.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(
		ctx,
		`
		update "users"
		set "name" = $2, "email" = $3, "email_verified" = $4, "is_superuser" = $5
		where "sub" = $1
		`,
		user.Sub, user.Name, user.Email, user.EmailVerified, user.IsSuperuser,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s", domerr.ErrMissing, user.Sub)
	}
	return nil
}

func (u *pgUser) Delete(ctx context.Context, sub string) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, query := range []string{
		`delete from "policy_members" where "user_sub" = $1`,
		`delete from "user_bucket_grants" where "user_sub" = $1`,
		`delete from "tool_deployments" where "user_sub" = $1`,
		`delete from "users" where "sub" = $1`,
	} {
		if _, err := tx.Exec(ctx, query, sub); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
