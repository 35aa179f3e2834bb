package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	apiapps "github.com/analytical-platform/controlpanel/pkg/api/types/apps"
	binderr "github.com/analytical-platform/controlpanel/pkg/api/types/errors"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	kapp "github.com/analytical-platform/controlpanel/pkg/domain/app/db"
	"github.com/analytical-platform/controlpanel/pkg/identity"
)

// CustomerDirectory is the slice of the identity plane the customer
// endpoints need.
type CustomerDirectory interface {
	ListGroupMembers(ctx context.Context, groupName string, page int, perPage int) (identity.MemberPage, error)
	AddGroupMembersByEmail(ctx context.Context, groupName string, emails []string, connection string) error
	DeleteGroupMembers(ctx context.Context, groupName string, userIDs []string) error
}

// IdentityCleanup tears down an app's identity-plane resources.
type IdentityCleanup interface {
	ClearUpApp(ctx context.Context, appName string, groupName string) error
}

// The connection apps authenticate their customers against.
const customerConnection = "email"

func appGroupName(env string, app domain.App) string {
	return fmt.Sprintf("%s-%s", env, app.Slug)
}

// splitEmails accepts addresses separated by commas, semicolons,
// whitespace or any mix thereof.
func splitEmails(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
	emails := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			emails = append(emails, f)
		}
	}
	return emails
}

// validEmail accepts a bare RFC 5322 address. Display-name forms are
// refused: the identity service wants the address alone.
func validEmail(address string) bool {
	parsed, err := mail.ParseAddress(address)
	return err == nil && parsed.Address == address
}

func FindAppCustomersHandler(apps kapp.Interface, ident CustomerDirectory, env string, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireUser(c); err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}

		pageNo := 1
		if raw := c.QueryParam("page"); raw != "" {
			if pageNo, err = strconv.Atoi(raw); err != nil || pageNo < 1 {
				return binderr.BadRequest("page should be a positive integer", err)
			}
		}
		perPage := 25
		if raw := c.QueryParam("page_size"); raw != "" {
			if perPage, err = strconv.Atoi(raw); err != nil || perPage < 1 {
				return binderr.BadRequest("page_size should be a positive integer", err)
			}
		}

		ctx := c.Request().Context()
		app, err := apps.Get(ctx, id)
		if err != nil {
			return translate(err)
		}
		members, err := ident.ListGroupMembers(ctx, appGroupName(env, app), pageNo, perPage)
		if err != nil {
			return translate(err)
		}

		customers := make([]apiapps.Customer, 0, len(members.Users))
		for _, m := range members.Users {
			customers = append(customers, apiapps.ComposeCustomer(m))
		}
		return c.JSON(http.StatusOK, apiapps.CustomerPage{
			Total: members.Total,
			Users: customers,
		})
	}
}

// AddAppCustomersHandler admits end-users to an app by email. The
// request carries one string; separators are forgiving because the
// addresses are usually pasted from a mail client.
func AddAppCustomersHandler(apps kapp.Interface, ident CustomerDirectory, env string, paramID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireUser(c); err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}

		req := struct {
			Emails string `json:"email"`
		}{}
		if err := c.Bind(&req); err != nil {
			return binderr.BadRequest("can not understand the requested json", err)
		}
		emails := splitEmails(req.Emails)
		if len(emails) == 0 {
			return binderr.BadRequest("no email addresses given", nil)
		}
		for _, email := range emails {
			if !validEmail(email) {
				return binderr.BadRequest(email+" is not a valid email address", nil)
			}
		}

		ctx := c.Request().Context()
		app, err := apps.Get(ctx, id)
		if err != nil {
			return translate(err)
		}
		if err := ident.AddGroupMembersByEmail(
			ctx, appGroupName(env, app), emails, customerConnection,
		); err != nil {
			return translate(err)
		}
		return c.NoContent(http.StatusCreated)
	}
}

func DeleteAppCustomerHandler(apps kapp.Interface, ident CustomerDirectory, env string, paramID string, paramUserID string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireUser(c); err != nil {
			return err
		}
		id, err := pathParamInt(c, paramID)
		if err != nil {
			return err
		}
		userID := c.Param(paramUserID)
		if userID == "" {
			return binderr.BadRequest("user_id is required", nil)
		}

		ctx := c.Request().Context()
		app, err := apps.Get(ctx, id)
		if err != nil {
			return translate(err)
		}
		if err := ident.DeleteGroupMembers(ctx, appGroupName(env, app), []string{userID}); err != nil {
			return translate(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
