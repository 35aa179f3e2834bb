package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
)

// InlinePolicyName is the single inline policy the platform manages
// on every user and app role.
const InlinePolicyName = "s3-access"

// IAMAPI is the subset of the SDK IAM client this adapter uses.
type IAMAPI interface {
	CreateRole(ctx context.Context, params *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	DeleteRole(ctx context.Context, params *iam.DeleteRoleInput, optFns ...func(*iam.Options)) (*iam.DeleteRoleOutput, error)
	AttachRolePolicy(ctx context.Context, params *iam.AttachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error)
	DetachRolePolicy(ctx context.Context, params *iam.DetachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.DetachRolePolicyOutput, error)
	PutRolePolicy(ctx context.Context, params *iam.PutRolePolicyInput, optFns ...func(*iam.Options)) (*iam.PutRolePolicyOutput, error)
	GetRolePolicy(ctx context.Context, params *iam.GetRolePolicyInput, optFns ...func(*iam.Options)) (*iam.GetRolePolicyOutput, error)
	DeleteRolePolicy(ctx context.Context, params *iam.DeleteRolePolicyInput, optFns ...func(*iam.Options)) (*iam.DeleteRolePolicyOutput, error)
	ListAttachedRolePolicies(ctx context.Context, params *iam.ListAttachedRolePoliciesInput, optFns ...func(*iam.Options)) (*iam.ListAttachedRolePoliciesOutput, error)
	GetPolicy(ctx context.Context, params *iam.GetPolicyInput, optFns ...func(*iam.Options)) (*iam.GetPolicyOutput, error)
	GetPolicyVersion(ctx context.Context, params *iam.GetPolicyVersionInput, optFns ...func(*iam.Options)) (*iam.GetPolicyVersionOutput, error)
	CreatePolicy(ctx context.Context, params *iam.CreatePolicyInput, optFns ...func(*iam.Options)) (*iam.CreatePolicyOutput, error)
	DeletePolicy(ctx context.Context, params *iam.DeletePolicyInput, optFns ...func(*iam.Options)) (*iam.DeletePolicyOutput, error)
	CreatePolicyVersion(ctx context.Context, params *iam.CreatePolicyVersionInput, optFns ...func(*iam.Options)) (*iam.CreatePolicyVersionOutput, error)
	ListPolicyVersions(ctx context.Context, params *iam.ListPolicyVersionsInput, optFns ...func(*iam.Options)) (*iam.ListPolicyVersionsOutput, error)
	DeletePolicyVersion(ctx context.Context, params *iam.DeletePolicyVersionInput, optFns ...func(*iam.Options)) (*iam.DeletePolicyVersionOutput, error)
}

// RoleKind tells which trust policy a new role gets.
type RoleKind string

const (
	UserRole RoleKind = "user"
	AppRole  RoleKind = "app"
)

// Roles drives IAM role lifecycle and policy attachment.
type Roles struct {
	api IAMAPI

	// arn:aws:iam::<account-id>:policy/ — prefix for managed
	// policies owned by this platform
	policyARNBase string

	// principal ARN allowed to assume user/app roles
	trustedEntity string
}

func NewRoles(api IAMAPI, policyARNBase string, trustedEntity string) *Roles {
	return &Roles{api: api, policyARNBase: policyARNBase, trustedEntity: trustedEntity}
}

func NewRolesFromConfig(cfg aws.Config, policyARNBase string, trustedEntity string) *Roles {
	return NewRoles(iam.NewFromConfig(cfg), policyARNBase, trustedEntity)
}

// PolicyARN expands a managed policy name to its full ARN.
func (r *Roles) PolicyARN(name string) string {
	return r.policyARNBase + name
}

func (r *Roles) assumeRolePolicy() (string, error) {
	doc := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Effect":    "Allow",
				"Principal": map[string]any{"AWS": r.trustedEntity},
				"Action":    "sts:AssumeRole",
			},
		},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// CreateRole creates an assumable role. Create-or-ignore-exists: an
// EntityAlreadyExists answer is success.
func (r *Roles) CreateRole(ctx context.Context, name string, kind RoleKind) error {
	trust, err := r.assumeRolePolicy()
	if err != nil {
		return err
	}
	_, err = r.api.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(name),
		AssumeRolePolicyDocument: aws.String(trust),
		Description:              aws.String(fmt.Sprintf("Analytical Platform %s role", kind)),
	})
	if err != nil && errorCode(err) != "EntityAlreadyExists" {
		return classify(err)
	}
	return nil
}

// DeleteRole removes the role after detaching managed policies and
// deleting the platform inline policy. A missing role is success.
func (r *Roles) DeleteRole(ctx context.Context, name string) error {
	attached, err := r.api.ListAttachedRolePolicies(ctx, &iam.ListAttachedRolePoliciesInput{
		RoleName: aws.String(name),
	})
	if err != nil {
		if errorCode(err) == "NoSuchEntity" {
			return nil
		}
		return classify(err)
	}
	for _, p := range attached.AttachedPolicies {
		if err := r.DetachPolicy(ctx, name, aws.ToString(p.PolicyArn)); err != nil {
			return err
		}
	}

	if err := r.DeleteInlinePolicy(ctx, name); err != nil {
		return err
	}

	if _, err := r.api.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: aws.String(name)}); err != nil {
		if errorCode(err) == "NoSuchEntity" {
			return nil
		}
		return classify(err)
	}
	return nil
}

// AttachPolicy is idempotent (re-attaching is a no-op server-side).
func (r *Roles) AttachPolicy(ctx context.Context, roleName string, policyARN string) error {
	_, err := r.api.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyARN),
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// DetachPolicy treats an already-detached policy as success.
func (r *Roles) DetachPolicy(ctx context.Context, roleName string, policyARN string) error {
	_, err := r.api.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyARN),
	})
	if err != nil && errorCode(err) != "NoSuchEntity" {
		return classify(err)
	}
	return nil
}

// PutInlinePolicy overwrites the platform inline policy on a role.
func (r *Roles) PutInlinePolicy(ctx context.Context, roleName string, document []byte) error {
	_, err := r.api.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(roleName),
		PolicyName:     aws.String(InlinePolicyName),
		PolicyDocument: aws.String(string(document)),
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// DeleteInlinePolicy removes the platform inline policy from a role.
// A role or policy already gone is success.
func (r *Roles) DeleteInlinePolicy(ctx context.Context, roleName string) error {
	_, err := r.api.DeleteRolePolicy(ctx, &iam.DeleteRolePolicyInput{
		RoleName:   aws.String(roleName),
		PolicyName: aws.String(InlinePolicyName),
	})
	if err != nil && errorCode(err) != "NoSuchEntity" {
		return classify(err)
	}
	return nil
}

// GetInlinePolicy reads the platform inline policy of a role. A role
// without the policy yet yields an empty document, not an error.
//
// The IAM API answers URL-encoded JSON; the result here is decoded.
func (r *Roles) GetInlinePolicy(ctx context.Context, roleName string) ([]byte, error) {
	out, err := r.api.GetRolePolicy(ctx, &iam.GetRolePolicyInput{
		RoleName:   aws.String(roleName),
		PolicyName: aws.String(InlinePolicyName),
	})
	if err != nil {
		if errorCode(err) == "NoSuchEntity" {
			return nil, nil
		}
		return nil, classify(err)
	}
	decoded, err := url.QueryUnescape(aws.ToString(out.PolicyDocument))
	if err != nil {
		return nil, err
	}
	return []byte(decoded), nil
}

// CreateManagedPolicy creates a customer-managed policy and returns
// its ARN. Exists-already is success; the ARN is derived.
func (r *Roles) CreateManagedPolicy(ctx context.Context, name string, document []byte) (string, error) {
	out, err := r.api.CreatePolicy(ctx, &iam.CreatePolicyInput{
		PolicyName:     aws.String(name),
		PolicyDocument: aws.String(string(document)),
	})
	if err != nil {
		if errorCode(err) == "EntityAlreadyExists" {
			return r.PolicyARN(name), nil
		}
		return "", classify(err)
	}
	return aws.ToString(out.Policy.Arn), nil
}

// DeleteManagedPolicy prunes non-default versions then deletes the
// policy. A missing policy is success.
func (r *Roles) DeleteManagedPolicy(ctx context.Context, name string) error {
	arn := r.PolicyARN(name)
	versions, err := r.api.ListPolicyVersions(ctx, &iam.ListPolicyVersionsInput{
		PolicyArn: aws.String(arn),
	})
	if err != nil {
		if errorCode(err) == "NoSuchEntity" {
			return nil
		}
		return classify(err)
	}
	for _, v := range versions.Versions {
		if v.IsDefaultVersion {
			continue
		}
		if _, err := r.api.DeletePolicyVersion(ctx, &iam.DeletePolicyVersionInput{
			PolicyArn: aws.String(arn),
			VersionId: v.VersionId,
		}); err != nil && errorCode(err) != "NoSuchEntity" {
			return classify(err)
		}
	}
	if _, err := r.api.DeletePolicy(ctx, &iam.DeletePolicyInput{PolicyArn: aws.String(arn)}); err != nil {
		if errorCode(err) == "NoSuchEntity" {
			return nil
		}
		return classify(err)
	}
	return nil
}
