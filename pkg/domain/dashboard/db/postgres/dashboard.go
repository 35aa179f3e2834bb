package postgres

import (
	"context"
	"fmt"
	"strings"

	kpool "github.com/analytical-platform/controlpanel/pkg/conn/db/postgres/pool"
	kdash "github.com/analytical-platform/controlpanel/pkg/domain/dashboard/db"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	domerr "github.com/analytical-platform/controlpanel/pkg/domain/errors"
)

type pgDashboard struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdash.Interface {
	return &pgDashboard{pool: pool}
}

func (d *pgDashboard) get(ctx context.Context, where string, arg interface{}) (domain.Dashboard, error) {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	defer conn.Release()

	dashboard := domain.Dashboard{}
	err = conn.QueryRow(
		ctx,
		`select "id", "name", "external_id", "created_by", "created_at" from "dashboards" `+where,
		arg,
	).Scan(
		&dashboard.ID, &dashboard.Name, &dashboard.ExternalID,
		&dashboard.CreatedBy, &dashboard.CreatedAt,
	)
	if kpool.NoRows(err) {
		return domain.Dashboard{}, fmt.Errorf("%w: dashboard %v", domerr.ErrMissing, arg)
	}
	if err != nil {
		return domain.Dashboard{}, err
	}

	for _, q := range []struct {
		sql  string
		dest *[]string
	}{
		{`select "user_sub" from "dashboard_admins" where "dashboard_id" = $1 order by "user_sub"`, &dashboard.Admins},
		{`select "email" from "dashboard_viewers" where "dashboard_id" = $1 order by "email"`, &dashboard.Viewers},
		{`select "domain" from "dashboard_domains" where "dashboard_id" = $1 order by "domain"`, &dashboard.Domains},
	} {
		rows, err := conn.Query(ctx, q.sql, dashboard.ID)
		if err != nil {
			return domain.Dashboard{}, err
		}
		values := []string{}
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				rows.Close()
				return domain.Dashboard{}, err
			}
			values = append(values, v)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return domain.Dashboard{}, err
		}
		*q.dest = values
	}
	return dashboard, nil
}

func (d *pgDashboard) Get(ctx context.Context, id int) (domain.Dashboard, error) {
	return d.get(ctx, `where "id" = $1`, id)
}

func (d *pgDashboard) GetByExternalID(ctx context.Context, externalID string) (domain.Dashboard, error) {
	return d.get(ctx, `where "external_id" = $1`, externalID)
}

func (d *pgDashboard) FindVisibleTo(ctx context.Context, email string) ([]domain.Dashboard, error) {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	domainPart := ""
	if at := strings.LastIndex(email, "@"); at >= 0 {
		domainPart = email[at+1:]
	}

	rows, err := conn.Query(
		ctx,
		`
		select distinct d."id"
		from "dashboards" d
		left join "dashboard_viewers" v on v."dashboard_id" = d."id"
		left join "dashboard_domains" w on w."dashboard_id" = d."id"
		where v."email" = $1 or w."domain" = $2
		order by d."id"
		`,
		email, domainPart,
	)
	if err != nil {
		return nil, err
	}

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dashboards := []domain.Dashboard{}
	for _, id := range ids {
		dashboard, err := d.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		dashboards = append(dashboards, dashboard)
	}
	return dashboards, nil
}

func (d *pgDashboard) Register(ctx context.Context, dashboard domain.Dashboard) (domain.Dashboard, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(
		ctx,
		`
		insert into "dashboards" ("name", "external_id", "created_by", "created_at")
		values ($1, $2, $3, now())
		returning "id", "created_at"
		`,
		dashboard.Name, dashboard.ExternalID, dashboard.CreatedBy,
	).Scan(&dashboard.ID, &dashboard.CreatedAt)
	if kpool.UniqueViolation(err) {
		return domain.Dashboard{}, fmt.Errorf(
			"%w: dashboard %s", domerr.ErrConflict, dashboard.ExternalID,
		)
	}
	if err != nil {
		return domain.Dashboard{}, err
	}

	for _, admin := range dashboard.Admins {
		if _, err := tx.Exec(
			ctx,
			`insert into "dashboard_admins" ("dashboard_id", "user_sub") values ($1, $2)`,
			dashboard.ID, admin,
		); err != nil {
			return domain.Dashboard{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Dashboard{}, err
	}
	return dashboard, nil
}

func (d *pgDashboard) Delete(ctx context.Context, id int) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, query := range []string{
		`delete from "dashboard_admins" where "dashboard_id" = $1`,
		`delete from "dashboard_viewers" where "dashboard_id" = $1`,
		`delete from "dashboard_domains" where "dashboard_id" = $1`,
		`delete from "dashboards" where "id" = $1`,
	} {
		if _, err := tx.Exec(ctx, query, id); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (d *pgDashboard) AddViewer(ctx context.Context, id int, email string) error {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(
		ctx,
		`
		insert into "dashboard_viewers" ("dashboard_id", "email") values ($1, $2)
		on conflict do nothing
		`,
		id, email,
	)
	return err
}

func (d *pgDashboard) RemoveViewer(ctx context.Context, id int, email string) error {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(
		ctx,
		`delete from "dashboard_viewers" where "dashboard_id" = $1 and "email" = $2`,
		id, email,
	)
	return err
}
