package apps

import (
	"github.com/analytical-platform/controlpanel/pkg/domain"
	"github.com/analytical-platform/controlpanel/pkg/identity"
)

// Detail is the API representation of an app.
type Detail struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	RepoURL   string `json:"repo_url"`
	CreatedBy string `json:"created_by"`
}

func ComposeDetail(a domain.App) Detail {
	return Detail{
		ID:        a.ID,
		Name:      a.Name,
		Slug:      a.Slug,
		RepoURL:   a.RepoURL,
		CreatedBy: a.CreatedBy,
	}
}

// CreationRequest registers an app from a source repository.
type CreationRequest struct {
	Name    string `json:"name"`
	RepoURL string `json:"repo_url"`
}

// Allowlist is one named set of IP ranges recorded against an app.
type Allowlist struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Ranges []string `json:"allowed_ip_ranges"`
}

func ComposeAllowlist(l domain.AppIPAllowlist) Allowlist {
	return Allowlist{ID: l.ID, Name: l.Name, Ranges: l.Ranges}
}

// Customer is one identity-plane group member of an app.
type Customer struct {
	ID       string `json:"user_id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

func ComposeCustomer(m identity.GroupMember) Customer {
	return Customer{ID: m.ID, Email: m.Email, Nickname: m.Nickname}
}

// CustomerPage is one page of an app's customers.
type CustomerPage struct {
	Total int        `json:"total"`
	Users []Customer `json:"users"`
}
