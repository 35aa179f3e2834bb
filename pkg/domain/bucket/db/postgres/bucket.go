package postgres

import (
	"context"
	"fmt"

	kbucket "github.com/analytical-platform/controlpanel/pkg/domain/bucket/db"
	kpool "github.com/analytical-platform/controlpanel/pkg/conn/db/postgres/pool"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	domerr "github.com/analytical-platform/controlpanel/pkg/domain/errors"
)

type pgBucket struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kbucket.Interface {
	return &pgBucket{pool: pool}
}

const bucketColumns = `"name", "is_data_warehouse", "location", "is_archived", "created_by", "created_at"`

func (b *pgBucket) Get(ctx context.Context, name string) (domain.Bucket, error) {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return domain.Bucket{}, err
	}
	defer conn.Release()

	bucket := domain.Bucket{}
	err = conn.QueryRow(
		ctx, `select `+bucketColumns+` from "buckets" where "name" = $1`, name,
	).Scan(
		&bucket.Name, &bucket.IsDataWarehouse, &bucket.Location,
		&bucket.IsArchived, &bucket.CreatedBy, &bucket.CreatedAt,
	)
	if kpool.NoRows(err) {
		return domain.Bucket{}, fmt.Errorf("%w: bucket %s", domerr.ErrMissing, name)
	}
	if err != nil {
		return domain.Bucket{}, err
	}
	return bucket, nil
}

func (b *pgBucket) Find(ctx context.Context, includeArchived bool) ([]domain.Bucket, error) {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	query := `select ` + bucketColumns + ` from "buckets"`
	if !includeArchived {
		query += ` where not "is_archived"`
	}
	query += ` order by "name"`

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := []domain.Bucket{}
	for rows.Next() {
		bucket := domain.Bucket{}
		if err := rows.Scan(
			&bucket.Name, &bucket.IsDataWarehouse, &bucket.Location,
			&bucket.IsArchived, &bucket.CreatedBy, &bucket.CreatedAt,
		); err != nil {
			return nil, err
		}
		buckets = append(buckets, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buckets, nil
}

func (b *pgBucket) Register(ctx context.Context, bucket domain.Bucket) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(
		ctx,
		`
		insert into "buckets" ("name", "is_data_warehouse", "location", "is_archived", "created_by", "created_at")
		values ($1, $2, $3, false, $4, now())
		`,
		bucket.Name, bucket.IsDataWarehouse, bucket.Location, bucket.CreatedBy,
	)
	if kpool.UniqueViolation(err) {
		return fmt.Errorf("%w: bucket %s", domerr.ErrConflict, bucket.Name)
	}
	return err
}

func (b *pgBucket) SetLocation(ctx context.Context, name string, location string) error {
	return b.update(ctx, `update "buckets" set "location" = $2 where "name" = $1`, name, location)
}

func (b *pgBucket) Archive(ctx context.Context, name string) error {
	return b.update(ctx, `update "buckets" set "is_archived" = true where "name" = $1`, name)
}

func (b *pgBucket) update(ctx context.Context, query string, args ...interface{}) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: bucket %v", domerr.ErrMissing, args[0])
	}
	return nil
}
