package postgres

import (
	"context"
	"fmt"

	kapp "github.com/analytical-platform/controlpanel/pkg/domain/app/db"
	kpool "github.com/analytical-platform/controlpanel/pkg/conn/db/postgres/pool"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	domerr "github.com/analytical-platform/controlpanel/pkg/domain/errors"
)

type pgApp struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kapp.Interface {
	return &pgApp{pool: pool}
}

const appColumns = `"id", "name", "slug", "repo_url", "created_by", "created_at"`

func scanApp(row interface {
	Scan(dest ...interface{}) error
}) (domain.App, error) {
	app := domain.App{}
	err := row.Scan(&app.ID, &app.Name, &app.Slug, &app.RepoURL, &app.CreatedBy, &app.CreatedAt)
	return app, err
}

func (a *pgApp) Get(ctx context.Context, id int) (domain.App, error) {
	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return domain.App{}, err
	}
	defer conn.Release()

	app, err := scanApp(conn.QueryRow(
		ctx, `select `+appColumns+` from "apps" where "id" = $1`, id,
	))
	if kpool.NoRows(err) {
		return domain.App{}, fmt.Errorf("%w: app %d", domerr.ErrMissing, id)
	}
	return app, err
}

func (a *pgApp) GetBySlug(ctx context.Context, slug string) (domain.App, error) {
	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return domain.App{}, err
	}
	defer conn.Release()

	app, err := scanApp(conn.QueryRow(
		ctx, `select `+appColumns+` from "apps" where "slug" = $1`, slug,
	))
	if kpool.NoRows(err) {
		return domain.App{}, fmt.Errorf("%w: app %s", domerr.ErrMissing, slug)
	}
	return app, err
}

func (a *pgApp) Find(ctx context.Context) ([]domain.App, error) {
	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `select `+appColumns+` from "apps" order by "name"`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := []domain.App{}
	for rows.Next() {
		app, err := scanApp(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return apps, nil
}

func (a *pgApp) Register(ctx context.Context, app domain.App) (domain.App, error) {
	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return domain.App{}, err
	}
	defer conn.Release()

	registered, err := scanApp(conn.QueryRow(
		ctx,
		`
		insert into "apps" ("name", "slug", "repo_url", "created_by", "created_at")
		values ($1, $2, $3, $4, now())
		returning `+appColumns,
		app.Name, app.Slug, app.RepoURL, app.CreatedBy,
	))
	if kpool.UniqueViolation(err) {
		return domain.App{}, fmt.Errorf("%w: app %s", domerr.ErrConflict, app.Slug)
	}
	return registered, err
}

func (a *pgApp) Delete(ctx context.Context, id int) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, query := range []string{
		`delete from "app_ip_allowlists" where "app_id" = $1`,
		`delete from "app_bucket_grants" where "app_id" = $1`,
		`delete from "apps" where "id" = $1`,
	} {
		if _, err := tx.Exec(ctx, query, id); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (a *pgApp) Allowlists(ctx context.Context, appID int) ([]domain.AppIPAllowlist, error) {
	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(
		ctx,
		`
		select "id", "app_id", "name", "ranges"
		from "app_ip_allowlists" where "app_id" = $1 order by "name"
		`,
		appID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	allowlists := []domain.AppIPAllowlist{}
	for rows.Next() {
		al := domain.AppIPAllowlist{}
		if err := rows.Scan(&al.ID, &al.AppID, &al.Name, &al.Ranges); err != nil {
			return nil, err
		}
		allowlists = append(allowlists, al)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return allowlists, nil
}

func (a *pgApp) SetAllowlists(ctx context.Context, appID int, allowlists []domain.AppIPAllowlist) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(
		ctx, `delete from "app_ip_allowlists" where "app_id" = $1`, appID,
	); err != nil {
		return err
	}
	for _, al := range allowlists {
		if _, err := tx.Exec(
			ctx,
			`insert into "app_ip_allowlists" ("app_id", "name", "ranges") values ($1, $2, $3)`,
			appID, al.Name, al.Ranges,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
