package orchestrator

import (
	"context"

	"github.com/analytical-platform/controlpanel/pkg/domain"
	"github.com/analytical-platform/controlpanel/pkg/policy"
)

// applyGrant converges the carrier's policy document onto a grant:
// any previous access to the bucket is reset, then the grant's ARNs
// are added. Create and update are the same operation.
func (h *Handlers) applyGrant(ctx context.Context, grant domain.Grant) error {
	carrier := grant.Carrier(h.Env)
	return h.Policies.Edit(ctx, carrier, func(doc *policy.Document) error {
		doc.ResetAccess(domain.BucketARN(grant))
		policy.ApplyGrant(doc, grant)
		return nil
	})
}

// resetCarrier removes every trace of a bucket from one carrier.
func (h *Handlers) resetCarrier(ctx context.Context, carrier domain.PolicyCarrier, bucketARN string) error {
	return h.Policies.Edit(ctx, carrier, func(doc *policy.Document) error {
		doc.ResetAccess(bucketARN)
		return nil
	})
}

// S3CreateBucket creates the cloud bucket behind an existing row:
// versioning on, lifecycle set, creator's grant applied.
func (h *Handlers) S3CreateBucket(ctx context.Context, msg Message, run *Run) Outcome {
	name, err := kwString(msg.Kwargs, "bucket_name")
	if err != nil {
		return Fail(err)
	}

	bucket, err := h.BucketDB.Get(ctx, name)
	if err != nil {
		return FromError(err)
	}

	location, err := h.Buckets.CreateBucket(ctx, bucket.Name, bucket.IsDataWarehouse)
	if err != nil {
		return FromError(err)
	}
	if err := h.BucketDB.SetLocation(ctx, bucket.Name, location); err != nil {
		return FromError(err)
	}

	if run.Cancelled(ctx) {
		return Fail(context.Canceled)
	}

	// the creator's admin grant row was written at submit time
	grants, err := h.GrantDB.FindUserGrantsByBucket(ctx, bucket.Name)
	if err != nil {
		return FromError(err)
	}
	for _, grant := range grants {
		if err := h.applyGrant(ctx, grant); err != nil {
			return FromError(err)
		}
	}
	return Ok()
}

// S3ArchiveBucket tags the bucket for archival and revokes every
// principal's access, of every kind.
func (h *Handlers) S3ArchiveBucket(ctx context.Context, msg Message, run *Run) Outcome {
	name, err := kwString(msg.Kwargs, "bucket_name")
	if err != nil {
		return Fail(err)
	}

	bucket, err := h.BucketDB.Get(ctx, name)
	if err != nil {
		return FromError(err)
	}

	if err := h.Buckets.TagBucketForArchive(ctx, bucket.Name); err != nil {
		return FromError(err)
	}

	userGrants, err := h.GrantDB.FindUserGrantsByBucket(ctx, bucket.Name)
	if err != nil {
		return FromError(err)
	}
	for _, grant := range userGrants {
		if run.Cancelled(ctx) {
			return Fail(context.Canceled)
		}
		if err := h.resetCarrier(ctx, grant.Carrier(h.Env), bucket.ARN()); err != nil {
			return FromError(err)
		}
		if err := h.GrantDB.DeleteUserGrant(ctx, grant.ID); err != nil {
			return FromError(err)
		}
	}

	appGrants, err := h.GrantDB.FindAppGrantsByBucket(ctx, bucket.Name)
	if err != nil {
		return FromError(err)
	}
	for _, grant := range appGrants {
		if run.Cancelled(ctx) {
			return Fail(context.Canceled)
		}
		if err := h.resetCarrier(ctx, grant.Carrier(h.Env), bucket.ARN()); err != nil {
			return FromError(err)
		}
		if err := h.GrantDB.DeleteAppGrant(ctx, grant.ID); err != nil {
			return FromError(err)
		}
	}

	policyGrants, err := h.GrantDB.FindPolicyGrantsByBucket(ctx, bucket.Name)
	if err != nil {
		return FromError(err)
	}
	for _, grant := range policyGrants {
		if run.Cancelled(ctx) {
			return Fail(context.Canceled)
		}
		if err := h.resetCarrier(ctx, grant.Carrier(h.Env), bucket.ARN()); err != nil {
			return FromError(err)
		}
		if err := h.GrantDB.DeletePolicyGrant(ctx, grant.ID); err != nil {
			return FromError(err)
		}
	}

	return FromError(h.BucketDB.Archive(ctx, bucket.Name))
}

// S3GrantToUser applies a user grant row to the user's role policy.
func (h *Handlers) S3GrantToUser(ctx context.Context, msg Message, run *Run) Outcome {
	id, err := kwInt(msg.Kwargs, "grant_id")
	if err != nil {
		return Fail(err)
	}
	grant, err := h.GrantDB.GetUserGrant(ctx, id)
	if err != nil {
		return FromError(err)
	}
	return FromError(h.applyGrant(ctx, grant))
}

// S3GrantToApp applies an app grant row to the app's role policy.
func (h *Handlers) S3GrantToApp(ctx context.Context, msg Message, run *Run) Outcome {
	id, err := kwInt(msg.Kwargs, "grant_id")
	if err != nil {
		return Fail(err)
	}
	grant, err := h.GrantDB.GetAppGrant(ctx, id)
	if err != nil {
		return FromError(err)
	}
	return FromError(h.applyGrant(ctx, grant))
}

// S3RevokeFromUser strips a bucket from a user's role policy. The
// grant row is already deleted, so the kwargs carry the coordinates.
func (h *Handlers) S3RevokeFromUser(ctx context.Context, msg Message, run *Run) Outcome {
	bucketName, err := kwString(msg.Kwargs, "bucket_name")
	if err != nil {
		return Fail(err)
	}
	username, err := kwString(msg.Kwargs, "username")
	if err != nil {
		return Fail(err)
	}

	grant := domain.UserBucketGrant{Username: username, Bucket: bucketName}
	return FromError(h.resetCarrier(ctx, grant.Carrier(h.Env), domain.BucketARN(grant)))
}

// S3RevokeFromApp strips a bucket from an app's role policy.
func (h *Handlers) S3RevokeFromApp(ctx context.Context, msg Message, run *Run) Outcome {
	bucketName, err := kwString(msg.Kwargs, "bucket_name")
	if err != nil {
		return Fail(err)
	}
	slug, err := kwString(msg.Kwargs, "app_slug")
	if err != nil {
		return Fail(err)
	}

	grant := domain.AppBucketGrant{AppSlug: slug, Bucket: bucketName}
	return FromError(h.resetCarrier(ctx, grant.Carrier(h.Env), domain.BucketARN(grant)))
}
