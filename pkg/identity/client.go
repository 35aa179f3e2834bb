// Package identity is the client for the external identity and
// authorisation service that manages application customer groups: the
// end-users allowed through a deployed web-app's auth proxy.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	domerr "github.com/analytical-platform/controlpanel/pkg/domain/errors"
)

// GroupMember is one end-user in a customer group.
type GroupMember struct {
	ID       string `json:"user_id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// MemberPage is one page of group members.
type MemberPage struct {
	Total int           `json:"total"`
	Users []GroupMember `json:"users"`
}

// Client is the identity service API. Callers validate emails before
// handing them in; the service rejects malformed inputs and the
// rejection surfaces as an IdentityError.
type Client interface {
	GetGroupID(ctx context.Context, groupName string) (string, error)
	ListGroupMembers(ctx context.Context, groupName string, page int, perPage int) (MemberPage, error)
	ListAllGroupMembers(ctx context.Context, groupName string) ([]GroupMember, error)
	AddGroupMembersByEmail(ctx context.Context, groupName string, emails []string, connection string) error
	DeleteGroupMembers(ctx context.Context, groupName string, userIDs []string) error
	SetupApp(ctx context.Context, appName string, groupName string, callbacks []string) error
	ClearUpApp(ctx context.Context, appName string, groupName string) error
}

type client struct {
	httpclient *http.Client
	baseURL    string
	tokens     *tokenSource
}

var _ Client = &client{}

// Credentials are the client-credentials grant parameters for the
// identity service's management API.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Audience     string

	// TokenURL is the grant endpoint. When empty, the service's
	// /oauth/token path is assumed.
	TokenURL string
}

func New(baseURL string, creds Credentials, httpclient *http.Client) Client {
	if httpclient == nil {
		httpclient = &http.Client{Timeout: 30 * time.Second}
	}
	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = baseURL + "/oauth/token"
	}
	return &client{
		httpclient: httpclient,
		baseURL:    baseURL,
		tokens: &tokenSource{
			httpclient: httpclient,
			tokenURL:   tokenURL,
			creds:      creds,
		},
	}
}

func (c *client) apipath(elems ...string) string {
	path := c.baseURL
	for _, e := range elems {
		path += "/" + url.PathEscape(e)
	}
	return path
}

// do sends one authenticated request and maps non-2xx statuses onto
// the identity error taxonomy.
func (c *client) do(ctx context.Context, method string, path string, payload any, result any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, path, body)
	if err != nil {
		return err
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || 300 <= resp.StatusCode {
		return statusError(resp)
	}
	if result == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

func statusError(resp *http.Response) error {
	message := struct {
		Message string `json:"message"`
	}{}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	json.Unmarshal(raw, &message)
	if message.Message == "" {
		message.Message = http.StatusText(resp.StatusCode)
	}
	cause := fmt.Errorf("identity service: %s (status code = %d)", message.Message, resp.StatusCode)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return domerr.NewIdentityError(domerr.IdentityNotFound, cause)
	case http.StatusConflict:
		return domerr.NewIdentityError(domerr.IdentityConflict, cause)
	case http.StatusTooManyRequests:
		return domerr.NewIdentityError(domerr.IdentityRateLimited, cause)
	case http.StatusUnauthorized, http.StatusForbidden:
		return domerr.NewIdentityError(domerr.IdentityUnauthorised, cause)
	default:
		return cause
	}
}

func (c *client) GetGroupID(ctx context.Context, groupName string) (string, error) {
	found := struct {
		Groups []struct {
			ID   string `json:"_id"`
			Name string `json:"name"`
		} `json:"groups"`
	}{}
	path := c.apipath("groups") + "?name=" + url.QueryEscape(groupName)
	if err := c.do(ctx, http.MethodGet, path, nil, &found); err != nil {
		return "", err
	}
	for _, g := range found.Groups {
		if g.Name == groupName {
			return g.ID, nil
		}
	}
	return "", domerr.NewIdentityError(
		domerr.IdentityNotFound,
		fmt.Errorf("group %q not found", groupName),
	)
}

func (c *client) ListGroupMembers(ctx context.Context, groupName string, page int, perPage int) (MemberPage, error) {
	groupID, err := c.GetGroupID(ctx, groupName)
	if err != nil {
		return MemberPage{}, err
	}

	path := c.apipath("groups", groupID, "members")
	if page > 0 {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("per_page", strconv.Itoa(perPage))
		path += "?" + query.Encode()
	}

	members := MemberPage{}
	if err := c.do(ctx, http.MethodGet, path, nil, &members); err != nil {
		return MemberPage{}, err
	}
	return members, nil
}

// ListAllGroupMembers pages through the whole group.
func (c *client) ListAllGroupMembers(ctx context.Context, groupName string) ([]GroupMember, error) {
	const perPage = 25

	all := []GroupMember{}
	for page := 1; ; page++ {
		members, err := c.ListGroupMembers(ctx, groupName, page, perPage)
		if err != nil {
			return nil, err
		}
		all = append(all, members.Users...)
		if len(all) >= members.Total || len(members.Users) == 0 {
			return all, nil
		}
	}
}

func (c *client) AddGroupMembersByEmail(ctx context.Context, groupName string, emails []string, connection string) error {
	groupID, err := c.GetGroupID(ctx, groupName)
	if err != nil {
		return err
	}
	payload := struct {
		Emails     []string `json:"emails"`
		Connection string   `json:"connection"`
	}{Emails: emails, Connection: connection}
	return c.do(ctx, http.MethodPatch, c.apipath("groups", groupID, "members"), payload, nil)
}

func (c *client) DeleteGroupMembers(ctx context.Context, groupName string, userIDs []string) error {
	groupID, err := c.GetGroupID(ctx, groupName)
	if err != nil {
		return err
	}
	payload := struct {
		UserIDs []string `json:"user_ids"`
	}{UserIDs: userIDs}
	return c.do(ctx, http.MethodDelete, c.apipath("groups", groupID, "members"), payload, nil)
}

// SetupApp provisions the client, connection and customer group for
// a deployed app. Already-provisioned apps are accepted, so the
// operation is safe to replay.
func (c *client) SetupApp(ctx context.Context, appName string, groupName string, callbacks []string) error {
	payload := struct {
		Name      string   `json:"name"`
		Group     string   `json:"group"`
		Callbacks []string `json:"callbacks"`
	}{Name: appName, Group: groupName, Callbacks: callbacks}

	err := c.do(ctx, http.MethodPost, c.apipath("apps"), payload, nil)
	if ierr, ok := domerr.AsIdentityError(err); ok && ierr.Kind == domerr.IdentityConflict {
		return nil
	}
	return err
}

// ClearUpApp removes the customer group and the client/connection
// artefacts of a deleted app. Artefacts that are already gone are
// skipped.
func (c *client) ClearUpApp(ctx context.Context, appName string, groupName string) error {
	groupID, err := c.GetGroupID(ctx, groupName)
	switch {
	case err == nil:
		if err := c.do(ctx, http.MethodDelete, c.apipath("groups", groupID), nil, nil); err != nil {
			if !isNotFound(err) {
				return err
			}
		}
	case isNotFound(err):
		// nothing to remove
	default:
		return err
	}

	for _, kind := range []string{"clients", "connections"} {
		if err := c.do(ctx, http.MethodDelete, c.apipath(kind, appName), nil, nil); err != nil {
			if !isNotFound(err) {
				return err
			}
		}
	}
	return nil
}

func isNotFound(err error) bool {
	if ierr, ok := domerr.AsIdentityError(err); ok {
		return ierr.Kind == domerr.IdentityNotFound
	}
	return false
}
