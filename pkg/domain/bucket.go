package domain

import "time"

// Bucket is an object-storage bucket owned by the platform.
// Name is unique, env-prefixed and satisfies S3 naming rules
// (validated by the naming package before any row is written).
type Bucket struct {
	Name            string
	IsDataWarehouse bool
	Location        string
	IsArchived      bool
	CreatedBy       string
	CreatedAt       time.Time
}

// ARN of the bucket itself.
func (b Bucket) ARN() string {
	return "arn:aws:s3:::" + b.Name
}
