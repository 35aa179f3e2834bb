package cloud

import (
	"context"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/analytical-platform/controlpanel/pkg/domain"
	"github.com/analytical-platform/controlpanel/pkg/policy"
)

// CarrierStore adapts Roles into policy.CarrierStore: inline role
// policies and customer-managed policy documents become the two
// carriers the policy manager edits.
type CarrierStore struct {
	roles *Roles
}

func NewCarrierStore(roles *Roles) *CarrierStore {
	return &CarrierStore{roles: roles}
}

var _ policy.CarrierStore = &CarrierStore{}

func (c *CarrierStore) Load(ctx context.Context, carrier domain.PolicyCarrier) ([]byte, string, error) {
	switch carrier.Kind {
	case domain.CarrierRolePolicy:
		// inline policies have no server-side version token;
		// PutRolePolicy overwrites wholesale
		raw, err := c.roles.GetInlinePolicy(ctx, carrier.Name)
		return raw, "", err
	case domain.CarrierManagedPolicy:
		return c.loadManaged(ctx, carrier.Name)
	}
	return nil, "", domain.ErrUnknownCarrier
}

// Store writes the document back. IAM rejects a document whose
// statement list is empty, so revoking the last grant deletes the
// inline policy outright, and writes the console placeholder as the
// managed policy's new version.
func (c *CarrierStore) Store(ctx context.Context, carrier domain.PolicyCarrier, raw []byte, version string) error {
	doc, err := policy.Parse(raw)
	if err != nil {
		return err
	}

	switch carrier.Kind {
	case domain.CarrierRolePolicy:
		if doc.Empty() {
			return c.roles.DeleteInlinePolicy(ctx, carrier.Name)
		}
		return c.roles.PutInlinePolicy(ctx, carrier.Name, raw)
	case domain.CarrierManagedPolicy:
		if doc.Empty() {
			if raw, err = policy.Placeholder().Serialise(); err != nil {
				return err
			}
		}
		return c.storeManaged(ctx, carrier.Name, raw, version)
	}
	return domain.ErrUnknownCarrier
}

func (c *CarrierStore) loadManaged(ctx context.Context, name string) ([]byte, string, error) {
	arn := c.roles.PolicyARN(name)
	pol, err := c.roles.api.GetPolicy(ctx, &iam.GetPolicyInput{PolicyArn: aws.String(arn)})
	if err != nil {
		if errorCode(err) == "NoSuchEntity" {
			return nil, "", nil
		}
		return nil, "", classify(err)
	}

	versionID := aws.ToString(pol.Policy.DefaultVersionId)
	ver, err := c.roles.api.GetPolicyVersion(ctx, &iam.GetPolicyVersionInput{
		PolicyArn: aws.String(arn),
		VersionId: aws.String(versionID),
	})
	if err != nil {
		return nil, "", classify(err)
	}

	decoded, err := url.QueryUnescape(aws.ToString(ver.PolicyVersion.Document))
	if err != nil {
		return nil, "", err
	}
	return []byte(decoded), versionID, nil
}

// storeManaged writes a new default version. The provider rejects a
// sixth version, so non-default versions are pruned first. A default
// version that moved since load means a concurrent writer won; that
// surfaces as policy.ErrVersionConflict so the edit retries.
func (c *CarrierStore) storeManaged(ctx context.Context, name string, raw []byte, version string) error {
	arn := c.roles.PolicyARN(name)

	pol, err := c.roles.api.GetPolicy(ctx, &iam.GetPolicyInput{PolicyArn: aws.String(arn)})
	if err != nil {
		return classify(err)
	}
	if current := aws.ToString(pol.Policy.DefaultVersionId); current != version {
		return policy.ErrVersionConflict
	}

	versions, err := c.roles.api.ListPolicyVersions(ctx, &iam.ListPolicyVersionsInput{
		PolicyArn: aws.String(arn),
	})
	if err != nil {
		return classify(err)
	}
	for _, v := range versions.Versions {
		if v.IsDefaultVersion {
			continue
		}
		if _, err := c.roles.api.DeletePolicyVersion(ctx, &iam.DeletePolicyVersionInput{
			PolicyArn: aws.String(arn),
			VersionId: v.VersionId,
		}); err != nil && errorCode(err) != "NoSuchEntity" {
			return classify(err)
		}
	}

	_, err = c.roles.api.CreatePolicyVersion(ctx, &iam.CreatePolicyVersionInput{
		PolicyArn:      aws.String(arn),
		PolicyDocument: aws.String(string(raw)),
		SetAsDefault:   true,
	})
	if err != nil {
		return classify(err)
	}
	return nil
}
