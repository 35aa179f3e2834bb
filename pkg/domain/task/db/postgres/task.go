package postgres

import (
	"context"
	"fmt"

	kpool "github.com/analytical-platform/controlpanel/pkg/conn/db/postgres/pool"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	domerr "github.com/analytical-platform/controlpanel/pkg/domain/errors"
	ktask "github.com/analytical-platform/controlpanel/pkg/domain/task/db"
)

type pgTask struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) ktask.Interface {
	return &pgTask{pool: pool}
}

const taskColumns = `
"id", "entity_class", "entity_id", "entity_description", "user_sub",
"name", "queue", "message_body", "completed", "cancelled", "created_at", "retried_at"
`

func (t *pgTask) Get(ctx context.Context, id string) (domain.Task, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	defer conn.Release()

	task := domain.Task{}
	var queue string
	err = conn.QueryRow(
		ctx, `select `+taskColumns+` from "tasks" where "id" = $1`, id,
	).Scan(
		&task.ID, &task.EntityClass, &task.EntityID, &task.EntityDescription, &task.UserSub,
		&task.Name, &queue, &task.MessageBody, &task.Completed, &task.Cancelled,
		&task.CreatedAt, &task.RetriedAt,
	)
	if kpool.NoRows(err) {
		return domain.Task{}, fmt.Errorf("%w: task %s", domerr.ErrMissing, id)
	}
	if err != nil {
		return domain.Task{}, err
	}
	task.Queue = domain.QueueName(queue)
	return task, nil
}

func (t *pgTask) Find(ctx context.Context, query ktask.Query) ([]domain.Task, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	sql := `select ` + taskColumns + ` from "tasks" where true`
	args := []interface{}{}
	if query.UserSub != "" {
		args = append(args, query.UserSub)
		sql += fmt.Sprintf(` and "user_sub" = $%d`, len(args))
	}
	if query.IncompleteOnly {
		sql += ` and not "completed" and not "cancelled"`
	}
	sql += ` order by "created_at" desc`

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task := domain.Task{}
		var queue string
		if err := rows.Scan(
			&task.ID, &task.EntityClass, &task.EntityID, &task.EntityDescription, &task.UserSub,
			&task.Name, &queue, &task.MessageBody, &task.Completed, &task.Cancelled,
			&task.CreatedAt, &task.RetriedAt,
		); err != nil {
			return nil, err
		}
		task.Queue = domain.QueueName(queue)
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (t *pgTask) Register(ctx context.Context, task domain.Task) error {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(
		ctx,
		`
		insert into "tasks" (
			"id", "entity_class", "entity_id", "entity_description", "user_sub",
			"name", "queue", "message_body", "completed", "cancelled", "created_at"
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, false, false, now())
		`,
		task.ID, task.EntityClass, task.EntityID, task.EntityDescription, task.UserSub,
		task.Name, task.Queue.String(), task.MessageBody,
	)
	if kpool.UniqueViolation(err) {
		return fmt.Errorf("%w: task %s", domerr.ErrConflict, task.ID)
	}
	return err
}

func (t *pgTask) Complete(ctx context.Context, id string) error {
	return t.flag(ctx, `update "tasks" set "completed" = true where "id" = $1`, id)
}

func (t *pgTask) Cancel(ctx context.Context, id string) error {
	return t.flag(ctx, `update "tasks" set "cancelled" = true where "id" = $1 and not "completed"`, id)
}

func (t *pgTask) MarkRetried(ctx context.Context, id string) error {
	return t.flag(ctx, `update "tasks" set "retried_at" = now() where "id" = $1`, id)
}

func (t *pgTask) flag(ctx context.Context, query string, id string) error {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: task %s", domerr.ErrMissing, id)
	}
	return nil
}
