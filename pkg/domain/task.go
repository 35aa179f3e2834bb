package domain

import "time"

// QueueName partitions worker traffic by concern. Queue selection is
// a property of the task type, never of the caller.
type QueueName string

const (
	IAMQueue     QueueName = "iam_queue"
	AuthQueue    QueueName = "auth_queue"
	S3Queue      QueueName = "s3_queue"
	DefaultQueue QueueName = "default"
)

func (q QueueName) String() string {
	return string(q)
}

// Task names, exhaustive for the orchestration core. Workers dispatch
// on these strings, so they are part of the wire contract.
const (
	TaskAppCreateRole           = "app.create_role"
	TaskAppCreateAuth           = "app.create_auth"
	TaskS3CreateBucket          = "s3.create_bucket"
	TaskS3ArchiveBucket         = "s3.archive_bucket"
	TaskS3GrantToUser           = "s3.grant_to_user"
	TaskS3GrantToApp            = "s3.grant_to_app"
	TaskS3RevokeFromUser        = "s3.revoke_from_user"
	TaskS3RevokeFromApp         = "s3.revoke_from_app"
	TaskPolicyUpdateForAllUsers = "policy.update_for_all_users"
	TaskToolDeploy              = "tool.deploy"
	TaskToolRestart             = "tool.restart"
	TaskToolUninstall           = "tool.uninstall"
	TaskUserResetHome           = "user.reset_home"
)

// Task is one durable unit of queued work. The row is written before
// the broker send; Completed flips only after the handler's
// side-effects are durable in both the database and the target plane.
type Task struct {
	ID                string
	EntityClass       string
	EntityID          string
	EntityDescription string
	UserSub           string
	Name              string
	Queue             QueueName
	MessageBody       string
	Completed         bool
	Cancelled         bool
	CreatedAt         time.Time
	RetriedAt         *time.Time
}

// TaskAgeCutoff is how long an incomplete task keeps being retried.
// Beyond it the task is presented as failed and workers drop its
// messages.
const TaskAgeCutoff = 3 * 24 * time.Hour

// AgedOut reports whether a non-terminal task is old enough to be
// surfaced as failed/retrying. Such tasks are never auto-deleted.
func (t Task) AgedOut(now time.Time, cutoff time.Duration) bool {
	return !t.Completed && !t.Cancelled && t.CreatedAt.Add(cutoff).Before(now)
}
