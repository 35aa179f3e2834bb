package postgres

import (
	"context"
	"fmt"

	kpool "github.com/analytical-platform/controlpanel/pkg/conn/db/postgres/pool"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	domerr "github.com/analytical-platform/controlpanel/pkg/domain/errors"
	kgrant "github.com/analytical-platform/controlpanel/pkg/domain/grant/db"
)

type pgGrant struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kgrant.Interface {
	return &pgGrant{pool: pool}
}

const userGrantQuery = `
select g."id", g."user_sub", u."username", g."bucket_name", g."access_level", g."paths", g."is_admin"
from "user_bucket_grants" g join "users" u on u."sub" = g."user_sub"
`

func (g *pgGrant) GetUserGrant(ctx context.Context, id int) (domain.UserBucketGrant, error) {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return domain.UserBucketGrant{}, err
	}
	defer conn.Release()

	grant := domain.UserBucketGrant{}
	err = conn.QueryRow(ctx, userGrantQuery+`where g."id" = $1`, id).Scan(
		&grant.ID, &grant.UserSub, &grant.Username, &grant.Bucket,
		&grant.AccessLevel, &grant.Paths, &grant.IsAdmin,
	)
	if kpool.NoRows(err) {
		return domain.UserBucketGrant{}, fmt.Errorf("%w: user grant %d", domerr.ErrMissing, id)
	}
	if err != nil {
		return domain.UserBucketGrant{}, err
	}
	return grant, nil
}

func (g *pgGrant) findUserGrants(ctx context.Context, where string, arg interface{}) ([]domain.UserBucketGrant, error) {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, userGrantQuery+where+` order by g."id"`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grants := []domain.UserBucketGrant{}
	for rows.Next() {
		grant := domain.UserBucketGrant{}
		if err := rows.Scan(
			&grant.ID, &grant.UserSub, &grant.Username, &grant.Bucket,
			&grant.AccessLevel, &grant.Paths, &grant.IsAdmin,
		); err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

func (g *pgGrant) FindUserGrantsByBucket(ctx context.Context, bucket string) ([]domain.UserBucketGrant, error) {
	return g.findUserGrants(ctx, `where g."bucket_name" = $1`, bucket)
}

func (g *pgGrant) FindUserGrantsByUser(ctx context.Context, sub string) ([]domain.UserBucketGrant, error) {
	return g.findUserGrants(ctx, `where g."user_sub" = $1`, sub)
}

func (g *pgGrant) RegisterUserGrant(ctx context.Context, grant domain.UserBucketGrant) (domain.UserBucketGrant, error) {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return domain.UserBucketGrant{}, err
	}
	defer conn.Release()

	err = conn.QueryRow(
		ctx,
		`
		insert into "user_bucket_grants" ("user_sub", "bucket_name", "access_level", "paths", "is_admin")
		values ($1, $2, $3, $4, $5)
		returning "id"
		`,
		grant.UserSub, grant.Bucket, grant.AccessLevel, grant.Paths, grant.IsAdmin,
	).Scan(&grant.ID)
	if kpool.UniqueViolation(err) {
		return domain.UserBucketGrant{}, fmt.Errorf(
			"%w: user %s already has access to %s", domerr.ErrConflict, grant.UserSub, grant.Bucket,
		)
	}
	if err != nil {
		return domain.UserBucketGrant{}, err
	}
	return grant, nil
}

func (g *pgGrant) UpdateUserGrant(ctx context.Context, id int, level domain.AccessLevel, paths []string) (domain.UserBucketGrant, error) {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return domain.UserBucketGrant{}, err
	}
	defer conn.Release()

	tag, err := conn.Exec(
		ctx,
		`update "user_bucket_grants" set "access_level" = $2, "paths" = $3 where "id" = $1`,
		id, level, paths,
	)
	if err != nil {
		return domain.UserBucketGrant{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.UserBucketGrant{}, fmt.Errorf("%w: user grant %d", domerr.ErrMissing, id)
	}
	return g.GetUserGrant(ctx, id)
}

func (g *pgGrant) DeleteUserGrant(ctx context.Context, id int) error {
	return g.deleteRow(ctx, `delete from "user_bucket_grants" where "id" = $1`, id, "user grant")
}

const appGrantQuery = `
select g."id", g."app_id", a."slug", g."bucket_name", g."access_level", g."paths"
from "app_bucket_grants" g join "apps" a on a."id" = g."app_id"
`

func (g *pgGrant) GetAppGrant(ctx context.Context, id int) (domain.AppBucketGrant, error) {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return domain.AppBucketGrant{}, err
	}
	defer conn.Release()

	grant := domain.AppBucketGrant{}
	err = conn.QueryRow(ctx, appGrantQuery+`where g."id" = $1`, id).Scan(
		&grant.ID, &grant.AppID, &grant.AppSlug, &grant.Bucket, &grant.AccessLevel, &grant.Paths,
	)
	if kpool.NoRows(err) {
		return domain.AppBucketGrant{}, fmt.Errorf("%w: app grant %d", domerr.ErrMissing, id)
	}
	if err != nil {
		return domain.AppBucketGrant{}, err
	}
	return grant, nil
}

func (g *pgGrant) findAppGrants(ctx context.Context, where string, arg interface{}) ([]domain.AppBucketGrant, error) {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, appGrantQuery+where+` order by g."id"`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grants := []domain.AppBucketGrant{}
	for rows.Next() {
		grant := domain.AppBucketGrant{}
		if err := rows.Scan(
			&grant.ID, &grant.AppID, &grant.AppSlug, &grant.Bucket, &grant.AccessLevel, &grant.Paths,
		); err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

func (g *pgGrant) FindAppGrantsByBucket(ctx context.Context, bucket string) ([]domain.AppBucketGrant, error) {
	return g.findAppGrants(ctx, `where g."bucket_name" = $1`, bucket)
}

func (g *pgGrant) FindAppGrantsByApp(ctx context.Context, appID int) ([]domain.AppBucketGrant, error) {
	return g.findAppGrants(ctx, `where g."app_id" = $1`, appID)
}

func (g *pgGrant) RegisterAppGrant(ctx context.Context, grant domain.AppBucketGrant) (domain.AppBucketGrant, error) {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return domain.AppBucketGrant{}, err
	}
	defer conn.Release()

	err = conn.QueryRow(
		ctx,
		`
		insert into "app_bucket_grants" ("app_id", "bucket_name", "access_level", "paths")
		values ($1, $2, $3, $4)
		returning "id"
		`,
		grant.AppID, grant.Bucket, grant.AccessLevel, grant.Paths,
	).Scan(&grant.ID)
	if kpool.UniqueViolation(err) {
		return domain.AppBucketGrant{}, fmt.Errorf(
			"%w: app %d already has access to %s", domerr.ErrConflict, grant.AppID, grant.Bucket,
		)
	}
	if err != nil {
		return domain.AppBucketGrant{}, err
	}
	return grant, nil
}

func (g *pgGrant) UpdateAppGrant(ctx context.Context, id int, level domain.AccessLevel, paths []string) (domain.AppBucketGrant, error) {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return domain.AppBucketGrant{}, err
	}
	defer conn.Release()

	tag, err := conn.Exec(
		ctx,
		`update "app_bucket_grants" set "access_level" = $2, "paths" = $3 where "id" = $1`,
		id, level, paths,
	)
	if err != nil {
		return domain.AppBucketGrant{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.AppBucketGrant{}, fmt.Errorf("%w: app grant %d", domerr.ErrMissing, id)
	}
	return g.GetAppGrant(ctx, id)
}

func (g *pgGrant) DeleteAppGrant(ctx context.Context, id int) error {
	return g.deleteRow(ctx, `delete from "app_bucket_grants" where "id" = $1`, id, "app grant")
}

func (g *pgGrant) FindPolicyGrantsByBucket(ctx context.Context, bucket string) ([]domain.PolicyBucketGrant, error) {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select g."id", p."name", g."bucket_name", g."access_level", g."paths"
		from "policy_bucket_grants" g join "policies" p on p."id" = g."policy_id"
		where g."bucket_name" = $1 order by g."id"
		`,
		bucket,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grants := []domain.PolicyBucketGrant{}
	for rows.Next() {
		grant := domain.PolicyBucketGrant{}
		if err := rows.Scan(
			&grant.ID, &grant.PolicyName, &grant.Bucket, &grant.AccessLevel, &grant.Paths,
		); err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

func (g *pgGrant) RegisterPolicyGrant(ctx context.Context, grant domain.PolicyBucketGrant) (domain.PolicyBucketGrant, error) {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return domain.PolicyBucketGrant{}, err
	}
	defer conn.Release()

	err = conn.QueryRow(
		ctx,
		`
		insert into "policy_bucket_grants" ("policy_id", "bucket_name", "access_level", "paths")
		select p."id", $2, $3, $4 from "policies" p where p."name" = $1
		returning "id"
		`,
		grant.PolicyName, grant.Bucket, grant.AccessLevel, grant.Paths,
	).Scan(&grant.ID)
	if kpool.NoRows(err) {
		return domain.PolicyBucketGrant{}, fmt.Errorf("%w: policy %s", domerr.ErrMissing, grant.PolicyName)
	}
	if kpool.UniqueViolation(err) {
		return domain.PolicyBucketGrant{}, fmt.Errorf(
			"%w: policy %s already has access to %s", domerr.ErrConflict, grant.PolicyName, grant.Bucket,
		)
	}
	if err != nil {
		return domain.PolicyBucketGrant{}, err
	}
	return grant, nil
}

func (g *pgGrant) DeletePolicyGrant(ctx context.Context, id int) error {
	return g.deleteRow(ctx, `delete from "policy_bucket_grants" where "id" = $1`, id, "policy grant")
}

func (g *pgGrant) FindGrantsByBucket(ctx context.Context, bucket string) ([]domain.Grant, error) {
	grants := []domain.Grant{}

	userGrants, err := g.FindUserGrantsByBucket(ctx, bucket)
	if err != nil {
		return nil, err
	}
	for _, ug := range userGrants {
		grants = append(grants, ug)
	}

	appGrants, err := g.FindAppGrantsByBucket(ctx, bucket)
	if err != nil {
		return nil, err
	}
	for _, ag := range appGrants {
		grants = append(grants, ag)
	}

	policyGrants, err := g.FindPolicyGrantsByBucket(ctx, bucket)
	if err != nil {
		return nil, err
	}
	for _, pg := range policyGrants {
		grants = append(grants, pg)
	}

	return grants, nil
}

func (g *pgGrant) deleteRow(ctx context.Context, query string, id int, kind string) error {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %d", domerr.ErrMissing, kind, id)
	}
	return nil
}
