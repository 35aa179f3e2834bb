package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	apibuckets "github.com/analytical-platform/controlpanel/pkg/api/types/buckets"
	binderr "github.com/analytical-platform/controlpanel/pkg/api/types/errors"
	apigrants "github.com/analytical-platform/controlpanel/pkg/api/types/grants"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	kbucket "github.com/analytical-platform/controlpanel/pkg/domain/bucket/db"
	kgrant "github.com/analytical-platform/controlpanel/pkg/domain/grant/db"
	"github.com/analytical-platform/controlpanel/pkg/naming"
	"github.com/analytical-platform/controlpanel/pkg/orchestrator"
	"github.com/analytical-platform/controlpanel/pkg/utils/slices"
)

func FindBucketsHandler(buckets kbucket.Interface) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireUser(c); err != nil {
			return err
		}

		includeArchived := c.QueryParam("archived") == "true"
		found, err := buckets.Find(c.Request().Context(), includeArchived)
		if err != nil {
			return translate(err)
		}

		return c.JSON(http.StatusOK, page(c, slices.Map(found, apibuckets.ComposeDetail)))
	}
}

func GetBucketHandler(buckets kbucket.Interface, paramName string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireUser(c); err != nil {
			return err
		}
		bucket, err := buckets.Get(c.Request().Context(), c.Param(paramName))
		if err != nil {
			return translate(err)
		}
		return c.JSON(http.StatusOK, apibuckets.ComposeDetail(bucket))
	}
}

// CreateBucketHandler registers the bucket row and the creator's
// admin grant, then queues the cloud-side creation. The bucket name
// must carry the environment prefix and satisfy object-storage naming
// rules.
func CreateBucketHandler(
	env string,
	buckets kbucket.Interface,
	grants kgrant.Interface,
	tasks Submitter,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := requireUser(c)
		if err != nil {
			return err
		}

		req := apibuckets.CreationRequest{}
		if err := c.Bind(&req); err != nil {
			return binderr.BadRequest("can not understand the requested json", err)
		}

		name, err := naming.BucketSlug(req.Name)
		if err != nil {
			return translate(err)
		}
		if err := naming.EnsureEnvPrefix(env, name); err != nil {
			return binderr.BadRequest(
				fmt.Sprintf("bucket name must start with %q", env+"-"), err,
			)
		}

		ctx := c.Request().Context()
		bucket := domain.Bucket{
			Name:            name,
			IsDataWarehouse: req.IsDataWarehouse,
			CreatedBy:       user.Sub,
		}
		if err := buckets.Register(ctx, bucket); err != nil {
			return translate(err)
		}

		// the creator administers their bucket
		if _, err := grants.RegisterUserGrant(ctx, domain.UserBucketGrant{
			UserSub:     user.Sub,
			Username:    user.Username,
			Bucket:      name,
			AccessLevel: domain.ReadWrite,
			IsAdmin:     true,
		}); err != nil {
			return translate(err)
		}

		if _, err := tasks.Submit(ctx, orchestrator.Submission{
			Name:              domain.TaskS3CreateBucket,
			EntityClass:       "S3Bucket",
			EntityID:          name,
			EntityDescription: name,
			UserSub:           user.Sub,
			Kwargs:            map[string]interface{}{"bucket_name": name},
		}); err != nil {
			return translate(err)
		}

		return c.JSON(http.StatusCreated, apibuckets.ComposeDetail(bucket))
	}
}

// ArchiveBucketHandler queues the archival of a bucket: every grant
// is revoked and the bucket is tagged, never deleted.
func ArchiveBucketHandler(
	buckets kbucket.Interface,
	grants kgrant.Interface,
	tasks Submitter,
	paramName string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := requireUser(c)
		if err != nil {
			return err
		}

		ctx := c.Request().Context()
		name := c.Param(paramName)
		bucket, err := buckets.Get(ctx, name)
		if err != nil {
			return translate(err)
		}
		if !user.IsSuperuser && bucket.CreatedBy != user.Sub {
			if !isBucketAdmin(c, grants, user, name) {
				return binderr.Forbidden("bucket admin required")
			}
		}

		if _, err := tasks.Submit(ctx, orchestrator.Submission{
			Name:              domain.TaskS3ArchiveBucket,
			EntityClass:       "S3Bucket",
			EntityID:          name,
			EntityDescription: name,
			UserSub:           user.Sub,
			Kwargs:            map[string]interface{}{"bucket_name": name},
		}); err != nil {
			return translate(err)
		}
		return c.NoContent(http.StatusAccepted)
	}
}

func isBucketAdmin(c echo.Context, grants kgrant.Interface, user domain.User, bucket string) bool {
	found, err := grants.FindUserGrantsByBucket(c.Request().Context(), bucket)
	if err != nil {
		return false
	}
	for _, g := range found {
		if g.UserSub == user.Sub && g.IsAdmin {
			return true
		}
	}
	return false
}

// FindBucketGrantsHandler lists every grant of every kind against one
// bucket.
func FindBucketGrantsHandler(grants kgrant.Interface, paramName string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireUser(c); err != nil {
			return err
		}

		found, err := grants.FindGrantsByBucket(c.Request().Context(), c.Param(paramName))
		if err != nil {
			return translate(err)
		}

		out := make([]interface{}, 0, len(found))
		for _, g := range found {
			switch grant := g.(type) {
			case domain.UserBucketGrant:
				out = append(out, apigrants.ComposeUserGrant(grant))
			case domain.AppBucketGrant:
				out = append(out, apigrants.ComposeAppGrant(grant))
			case domain.PolicyBucketGrant:
				out = append(out, apigrants.ComposePolicyGrant(grant))
			}
		}
		return c.JSON(http.StatusOK, page(c, out))
	}
}
