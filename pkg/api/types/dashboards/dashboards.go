package dashboards

import (
	"github.com/analytical-platform/controlpanel/pkg/domain"
)

// Detail is the API representation of a shared dashboard.
type Detail struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	ExternalID string   `json:"quicksight_id"`
	CreatedBy  string   `json:"created_by"`
	Admins     []string `json:"admins"`
	Viewers    []string `json:"viewers"`
	Domains    []string `json:"whitelisted_domains"`
}

func ComposeDetail(d domain.Dashboard) Detail {
	return Detail{
		ID:         d.ID,
		Name:       d.Name,
		ExternalID: d.ExternalID,
		CreatedBy:  d.CreatedBy,
		Admins:     d.Admins,
		Viewers:    d.Viewers,
		Domains:    d.Domains,
	}
}
