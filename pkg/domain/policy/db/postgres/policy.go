package postgres

import (
	"context"
	"fmt"

	kpool "github.com/analytical-platform/controlpanel/pkg/conn/db/postgres/pool"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	domerr "github.com/analytical-platform/controlpanel/pkg/domain/errors"
	kpolicy "github.com/analytical-platform/controlpanel/pkg/domain/policy/db"
)

type pgPolicy struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kpolicy.Interface {
	return &pgPolicy{pool: pool}
}

const policyColumns = `"id", "name", "arn", "created_by", "created_at"`

func (p *pgPolicy) get(ctx context.Context, where string, arg interface{}) (domain.ManagedPolicy, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return domain.ManagedPolicy{}, err
	}
	defer conn.Release()

	policy := domain.ManagedPolicy{}
	err = conn.QueryRow(
		ctx, `select `+policyColumns+` from "policies" `+where, arg,
	).Scan(&policy.ID, &policy.Name, &policy.ARN, &policy.CreatedBy, &policy.CreatedAt)
	if kpool.NoRows(err) {
		return domain.ManagedPolicy{}, fmt.Errorf("%w: policy %v", domerr.ErrMissing, arg)
	}
	if err != nil {
		return domain.ManagedPolicy{}, err
	}
	return policy, nil
}

func (p *pgPolicy) Get(ctx context.Context, id int) (domain.ManagedPolicy, error) {
	return p.get(ctx, `where "id" = $1`, id)
}

func (p *pgPolicy) GetByName(ctx context.Context, name string) (domain.ManagedPolicy, error) {
	return p.get(ctx, `where "name" = $1`, name)
}

func (p *pgPolicy) Find(ctx context.Context) ([]domain.ManagedPolicy, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `select `+policyColumns+` from "policies" order by "name"`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	policies := []domain.ManagedPolicy{}
	for rows.Next() {
		policy := domain.ManagedPolicy{}
		if err := rows.Scan(
			&policy.ID, &policy.Name, &policy.ARN, &policy.CreatedBy, &policy.CreatedAt,
		); err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return policies, nil
}

func (p *pgPolicy) Register(ctx context.Context, policy domain.ManagedPolicy) (domain.ManagedPolicy, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return domain.ManagedPolicy{}, err
	}
	defer conn.Release()

	err = conn.QueryRow(
		ctx,
		`
		insert into "policies" ("name", "arn", "created_by", "created_at")
		values ($1, $2, $3, now())
		returning "id", "created_at"
		`,
		policy.Name, policy.ARN, policy.CreatedBy,
	).Scan(&policy.ID, &policy.CreatedAt)
	if kpool.UniqueViolation(err) {
		return domain.ManagedPolicy{}, fmt.Errorf("%w: policy %s", domerr.ErrConflict, policy.Name)
	}
	if err != nil {
		return domain.ManagedPolicy{}, err
	}
	return policy, nil
}

func (p *pgPolicy) Delete(ctx context.Context, id int) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, query := range []string{
		`delete from "policy_members" where "policy_id" = $1`,
		`delete from "policy_bucket_grants" where "policy_id" = $1`,
		`delete from "policies" where "id" = $1`,
	} {
		if _, err := tx.Exec(ctx, query, id); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (p *pgPolicy) Members(ctx context.Context, policyID int) ([]domain.User, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select u."sub", u."username", u."name", u."email", u."email_verified", u."is_superuser", u."created_at"
		from "policy_members" m join "users" u on u."sub" = m."user_sub"
		where m."policy_id" = $1 order by u."username"
		`,
		policyID,
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

func (p *pgPolicy) AddMember(ctx context.Context, policyID int, userSub string) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(
		ctx,
		`insert into "policy_members" ("policy_id", "user_sub") values ($1, $2)`,
		policyID, userSub,
	)
	if kpool.UniqueViolation(err) {
		return fmt.Errorf("%w: user %s is already on policy %d", domerr.ErrConflict, userSub, policyID)
	}
	return err
}

func (p *pgPolicy) RemoveMember(ctx context.Context, policyID int, userSub string) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(
		ctx,
		`delete from "policy_members" where "policy_id" = $1 and "user_sub" = $2`,
		policyID, userSub,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s is not on policy %d", domerr.ErrMissing, userSub, policyID)
	}
	return nil
}
