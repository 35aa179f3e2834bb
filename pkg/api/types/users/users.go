package users

import (
	"github.com/analytical-platform/controlpanel/pkg/domain"
)

// Detail is the API representation of a user.
type Detail struct {
	Sub           string `json:"auth0_id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	IsSuperuser   bool   `json:"is_superuser"`
}

func ComposeDetail(u domain.User) Detail {
	return Detail{
		Sub:           u.Sub,
		Username:      u.Username,
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		IsSuperuser:   u.IsSuperuser,
	}
}
