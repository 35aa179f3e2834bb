package policies

import (
	"github.com/analytical-platform/controlpanel/pkg/domain"
)

// Detail is the API representation of a managed policy.
type Detail struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ARN       string `json:"arn"`
	CreatedBy string `json:"created_by"`
}

func ComposeDetail(p domain.ManagedPolicy) Detail {
	return Detail{ID: p.ID, Name: p.Name, ARN: p.ARN, CreatedBy: p.CreatedBy}
}

// CreationRequest creates a managed policy.
type CreationRequest struct {
	Name string `json:"name"`
}

// MemberRequest attaches a user to a managed policy.
type MemberRequest struct {
	UserSub string `json:"user_id"`
}
