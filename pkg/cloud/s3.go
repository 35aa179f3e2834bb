package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the SDK S3 client this adapter uses.
type S3API interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutBucketVersioning(ctx context.Context, params *s3.PutBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.PutBucketVersioningOutput, error)
	PutBucketLifecycleConfiguration(ctx context.Context, params *s3.PutBucketLifecycleConfigurationInput, optFns ...func(*s3.Options)) (*s3.PutBucketLifecycleConfigurationOutput, error)
	PutBucketTagging(ctx context.Context, params *s3.PutBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.PutBucketTaggingOutput, error)
	PutBucketEncryption(ctx context.Context, params *s3.PutBucketEncryptionInput, optFns ...func(*s3.Options)) (*s3.PutBucketEncryptionOutput, error)
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
}

// Buckets drives object-storage bucket lifecycle.
type Buckets struct {
	api    S3API
	region string
}

func NewBuckets(api S3API, region string) *Buckets {
	return &Buckets{api: api, region: region}
}

// NewBucketsFromConfig builds Buckets over the real SDK client.
func NewBucketsFromConfig(cfg aws.Config) *Buckets {
	return NewBuckets(s3.NewFromConfig(cfg), cfg.Region)
}

// CreateBucket creates the bucket, enables versioning and installs
// the lifecycle transition of non-current versions to cold storage.
// Idempotent: a bucket the caller already owns is accepted and its
// location returned; versioning and lifecycle writes are repeatable.
func (b *Buckets) CreateBucket(ctx context.Context, name string, isWarehouse bool) (string, error) {
	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	if b.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(b.region),
		}
	}

	location := fmt.Sprintf("s3://%s", name)
	if _, err := b.api.CreateBucket(ctx, input); err != nil {
		if errorCode(err) != "BucketAlreadyOwnedByYou" {
			return "", classify(err)
		}
		// already ours: fall through and re-assert settings
	}

	if err := b.EnableVersioning(ctx, name); err != nil {
		return "", err
	}
	if err := b.putDefaultLifecycle(ctx, name); err != nil {
		return "", err
	}
	if isWarehouse {
		if err := b.tag(ctx, name, "buckettype", "datawarehouse"); err != nil {
			return "", err
		}
	}

	return location, nil
}

// EnableVersioning is idempotent.
func (b *Buckets) EnableVersioning(ctx context.Context, name string) error {
	_, err := b.api.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: aws.String(name),
		VersioningConfiguration: &s3types.VersioningConfiguration{
			Status: s3types.BucketVersioningStatusEnabled,
		},
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// PutBucketLifecycle installs the given rules wholesale.
func (b *Buckets) PutBucketLifecycle(ctx context.Context, name string, rules []s3types.LifecycleRule) error {
	_, err := b.api.PutBucketLifecycleConfiguration(ctx, &s3.PutBucketLifecycleConfigurationInput{
		Bucket: aws.String(name),
		LifecycleConfiguration: &s3types.BucketLifecycleConfiguration{
			Rules: rules,
		},
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

func (b *Buckets) putDefaultLifecycle(ctx context.Context, name string) error {
	return b.PutBucketLifecycle(ctx, name, []s3types.LifecycleRule{
		{
			ID:     aws.String("noncurrent-to-glacier"),
			Status: s3types.ExpirationStatusEnabled,
			Filter: &s3types.LifecycleRuleFilterMemberPrefix{Value: ""},
			NoncurrentVersionTransitions: []s3types.NoncurrentVersionTransition{
				{
					NoncurrentDays: aws.Int32(30),
					StorageClass:   s3types.TransitionStorageClassGlacier,
				},
			},
		},
	})
}

// TagBucketForArchive marks a bucket archived. Nothing is deleted;
// reaping archived buckets is an operator action.
func (b *Buckets) TagBucketForArchive(ctx context.Context, name string) error {
	return b.tag(ctx, name, "to-archive", "true")
}

func (b *Buckets) tag(ctx context.Context, name string, key string, value string) error {
	_, err := b.api.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
		Bucket: aws.String(name),
		Tagging: &s3types.Tagging{
			TagSet: []s3types.Tag{{Key: aws.String(key), Value: aws.String(value)}},
		},
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// ListBuckets returns the names of all buckets the session can see.
func (b *Buckets) ListBuckets(ctx context.Context) ([]string, error) {
	out, err := b.api.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, classify(err)
	}
	names := make([]string, 0, len(out.Buckets))
	for _, bucket := range out.Buckets {
		if bucket.Name != nil {
			names = append(names, *bucket.Name)
		}
	}
	return names, nil
}
