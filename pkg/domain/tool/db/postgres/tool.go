package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	kpool "github.com/analytical-platform/controlpanel/pkg/conn/db/postgres/pool"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	domerr "github.com/analytical-platform/controlpanel/pkg/domain/errors"
	ktool "github.com/analytical-platform/controlpanel/pkg/domain/tool/db"
)

type pgTool struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) ktool.Interface {
	return &pgTool{pool: pool}
}

const releaseColumns = `
"id", "chart", "name", "version", "description", "values",
"restricted", "target_users", "target_infra"
`

// values overrides are stored as a JSON object column
func scanRelease(row interface {
	Scan(dest ...interface{}) error
}) (domain.ToolRelease, error) {
	release := domain.ToolRelease{}
	var values []byte
	if err := row.Scan(
		&release.ID, &release.Chart, &release.Name, &release.Version, &release.Description,
		&values, &release.Restricted, &release.TargetUsers, &release.TargetInfra,
	); err != nil {
		return domain.ToolRelease{}, err
	}
	if len(values) != 0 {
		if err := json.Unmarshal(values, &release.Values); err != nil {
			return domain.ToolRelease{}, err
		}
	}
	return release, nil
}

func (t *pgTool) GetRelease(ctx context.Context, id int) (domain.ToolRelease, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return domain.ToolRelease{}, err
	}
	defer conn.Release()

	release, err := scanRelease(conn.QueryRow(
		ctx, `select `+releaseColumns+` from "tool_releases" where "id" = $1`, id,
	))
	if kpool.NoRows(err) {
		return domain.ToolRelease{}, fmt.Errorf("%w: tool release %d", domerr.ErrMissing, id)
	}
	return release, err
}

func (t *pgTool) GetReleaseByChart(ctx context.Context, chart string, version string) (domain.ToolRelease, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return domain.ToolRelease{}, err
	}
	defer conn.Release()

	release, err := scanRelease(conn.QueryRow(
		ctx,
		`select `+releaseColumns+` from "tool_releases" where "chart" = $1 and "version" = $2`,
		chart, version,
	))
	if kpool.NoRows(err) {
		return domain.ToolRelease{}, fmt.Errorf(
			"%w: tool release %s-%s", domerr.ErrMissing, chart, version,
		)
	}
	return release, err
}

func (t *pgTool) FindReleases(ctx context.Context) ([]domain.ToolRelease, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `select `+releaseColumns+` from "tool_releases" order by "name"`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	releases := []domain.ToolRelease{}
	for rows.Next() {
		release, err := scanRelease(rows)
		if err != nil {
			return nil, err
		}
		releases = append(releases, release)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return releases, nil
}

func (t *pgTool) RegisterRelease(ctx context.Context, release domain.ToolRelease) (domain.ToolRelease, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return domain.ToolRelease{}, err
	}
	defer conn.Release()

	values, err := json.Marshal(release.Values)
	if err != nil {
		return domain.ToolRelease{}, err
	}

	err = conn.QueryRow(
		ctx,
		`
		insert into "tool_releases" (
			"chart", "name", "version", "description", "values",
			"restricted", "target_users", "target_infra"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning "id"
		`,
		release.Chart, release.Name, release.Version, release.Description, values,
		release.Restricted, release.TargetUsers, release.TargetInfra,
	).Scan(&release.ID)
	if kpool.UniqueViolation(err) {
		return domain.ToolRelease{}, fmt.Errorf(
			"%w: tool release %s-%s", domerr.ErrConflict, release.Chart, release.Version,
		)
	}
	if err != nil {
		return domain.ToolRelease{}, err
	}
	return release, nil
}

func (t *pgTool) DeleteRelease(ctx context.Context, id int) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(
		ctx, `delete from "tool_deployments" where "release_id" = $1`, id,
	); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `delete from "tool_releases" where "id" = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: tool release %d", domerr.ErrMissing, id)
	}
	return tx.Commit(ctx)
}

func (t *pgTool) RegisterDeployment(ctx context.Context, deployment domain.ToolDeployment) (domain.ToolDeployment, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return domain.ToolDeployment{}, err
	}
	defer conn.Release()

	err = conn.QueryRow(
		ctx,
		`
		insert into "tool_deployments" ("release_id", "user_sub", "old_chart", "created_at")
		values ($1, $2, $3, now())
		returning "id", "created_at"
		`,
		deployment.ReleaseID, deployment.UserSub, deployment.OldChart,
	).Scan(&deployment.ID, &deployment.CreatedAt)
	if err != nil {
		return domain.ToolDeployment{}, err
	}
	return deployment, nil
}

func (t *pgTool) LatestDeployment(ctx context.Context, userSub string, chart string) (domain.ToolDeployment, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return domain.ToolDeployment{}, err
	}
	defer conn.Release()

	deployment := domain.ToolDeployment{}
	err = conn.QueryRow(
		ctx,
		`
		select d."id", d."release_id", d."user_sub", d."old_chart", d."created_at"
		from "tool_deployments" d join "tool_releases" r on r."id" = d."release_id"
		where d."user_sub" = $1 and r."chart" = $2
		order by d."created_at" desc limit 1
		`,
		userSub, chart,
	).Scan(
		&deployment.ID, &deployment.ReleaseID, &deployment.UserSub,
		&deployment.OldChart, &deployment.CreatedAt,
	)
	if kpool.NoRows(err) {
		return domain.ToolDeployment{}, fmt.Errorf(
			"%w: no deployment of %s for %s", domerr.ErrMissing, chart, userSub,
		)
	}
	if err != nil {
		return domain.ToolDeployment{}, err
	}
	return deployment, nil
}

func (t *pgTool) FindDeploymentsByUser(ctx context.Context, userSub string) ([]domain.ToolDeployment, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select "id", "release_id", "user_sub", "old_chart", "created_at"
		from "tool_deployments" where "user_sub" = $1 order by "created_at" desc
		`,
		userSub,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deployments := []domain.ToolDeployment{}
	for rows.Next() {
		deployment := domain.ToolDeployment{}
		if err := rows.Scan(
			&deployment.ID, &deployment.ReleaseID, &deployment.UserSub,
			&deployment.OldChart, &deployment.CreatedAt,
		); err != nil {
			return nil, err
		}
		deployments = append(deployments, deployment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return deployments, nil
}

func (t *pgTool) DeleteDeployment(ctx context.Context, id int) error {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `delete from "tool_deployments" where "id" = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: tool deployment %d", domerr.ErrMissing, id)
	}
	return nil
}
