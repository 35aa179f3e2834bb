package buckets

import (
	"github.com/analytical-platform/controlpanel/pkg/domain"
)

// Detail is the API representation of a bucket.
type Detail struct {
	Name            string `json:"name"`
	ARN             string `json:"arn"`
	IsDataWarehouse bool   `json:"is_data_warehouse"`
	Location        string `json:"location_url"`
	IsArchived      bool   `json:"is_deleted"`
	CreatedBy       string `json:"created_by"`
}

func ComposeDetail(b domain.Bucket) Detail {
	return Detail{
		Name:            b.Name,
		ARN:             b.ARN(),
		IsDataWarehouse: b.IsDataWarehouse,
		Location:        b.Location,
		IsArchived:      b.IsArchived,
		CreatedBy:       b.CreatedBy,
	}
}

// CreationRequest asks for a new bucket.
type CreationRequest struct {
	Name            string `json:"name"`
	IsDataWarehouse bool   `json:"is_data_warehouse,omitempty"`
}
