package identity_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	domerr "github.com/analytical-platform/controlpanel/pkg/domain/errors"
	"github.com/analytical-platform/controlpanel/pkg/identity"
	"github.com/analytical-platform/controlpanel/pkg/utils/try"
)

// identityServer is a scriptable stand-in for the identity service.
// It issues tokens, knows one group and records mutations.
type identityServer struct {
	mux *http.ServeMux

	groupName string
	groupID   string
	members   []identity.GroupMember

	tokensIssued  int
	addedEmails   []string
	addConnection string
	deletedUsers  []string
	deletedPaths  []string
}

func newIdentityServer(groupName string, members []identity.GroupMember) *identityServer {
	s := &identityServer{
		mux:       http.NewServeMux(),
		groupName: groupName,
		groupID:   "grp-0001",
		members:   members,
	}

	s.mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		s.tokensIssued++
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"expires_in":   3600,
		})
	})
	s.mux.HandleFunc("GET /groups", func(w http.ResponseWriter, r *http.Request) {
		if !s.authed(w, r) {
			return
		}
		groups := []map[string]string{}
		if r.URL.Query().Get("name") == s.groupName {
			groups = append(groups, map[string]string{"_id": s.groupID, "name": s.groupName})
		}
		json.NewEncoder(w).Encode(map[string]any{"groups": groups})
	})
	s.mux.HandleFunc("GET /groups/{id}/members", func(w http.ResponseWriter, r *http.Request) {
		if !s.authed(w, r) {
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

		users := s.members
		if page > 0 {
			lo := (page - 1) * perPage
			hi := lo + perPage
			if lo > len(users) {
				lo = len(users)
			}
			if hi > len(users) {
				hi = len(users)
			}
			users = users[lo:hi]
		}
		json.NewEncoder(w).Encode(identity.MemberPage{Total: len(s.members), Users: users})
	})
	s.mux.HandleFunc("PATCH /groups/{id}/members", func(w http.ResponseWriter, r *http.Request) {
		if !s.authed(w, r) {
			return
		}
		payload := struct {
			Emails     []string `json:"emails"`
			Connection string   `json:"connection"`
		}{}
		json.NewDecoder(r.Body).Decode(&payload)
		s.addedEmails = append(s.addedEmails, payload.Emails...)
		s.addConnection = payload.Connection
		w.WriteHeader(http.StatusNoContent)
	})
	s.mux.HandleFunc("DELETE /groups/{id}/members", func(w http.ResponseWriter, r *http.Request) {
		if !s.authed(w, r) {
			return
		}
		payload := struct {
			UserIDs []string `json:"user_ids"`
		}{}
		json.NewDecoder(r.Body).Decode(&payload)
		s.deletedUsers = append(s.deletedUsers, payload.UserIDs...)
		w.WriteHeader(http.StatusNoContent)
	})
	s.mux.HandleFunc("DELETE /", func(w http.ResponseWriter, r *http.Request) {
		if !s.authed(w, r) {
			return
		}
		s.deletedPaths = append(s.deletedPaths, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	return s
}

func (s *identityServer) authed(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer test-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	return true
}

func testClient(t *testing.T, handler http.Handler) identity.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return identity.New(
		server.URL,
		identity.Credentials{ClientID: "cp", ClientSecret: "secret", Audience: "https://identity.example.com/api"},
		server.Client(),
	)
}

func memberFixtures(n int) []identity.GroupMember {
	members := make([]identity.GroupMember, n)
	for i := range members {
		members[i] = identity.GroupMember{
			ID:    fmt.Sprintf("auth|%04d", i),
			Email: fmt.Sprintf("user%d@example.com", i),
		}
	}
	return members
}

func TestClient_GetGroupID(t *testing.T) {
	server := newIdentityServer("dev-myapp", nil)
	client := testClient(t, server.mux)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		id := try.To(client.GetGroupID(ctx, "dev-myapp")).OrFatal(t)
		if id != "grp-0001" {
			t.Errorf("group id: got %q", id)
		}
	})

	t.Run("missing group is a typed not-found", func(t *testing.T) {
		_, err := client.GetGroupID(ctx, "dev-otherapp")
		ierr, ok := domerr.AsIdentityError(err)
		if !ok || ierr.Kind != domerr.IdentityNotFound {
			t.Errorf("error: got %v, want IdentityNotFound", err)
		}
	})

	t.Run("token is fetched once and reused", func(t *testing.T) {
		if server.tokensIssued != 1 {
			t.Errorf("tokens issued: got %d, want 1", server.tokensIssued)
		}
	})
}

func TestClient_ListGroupMembers(t *testing.T) {
	server := newIdentityServer("dev-myapp", memberFixtures(60))
	client := testClient(t, server.mux)
	ctx := context.Background()

	t.Run("single page", func(t *testing.T) {
		page := try.To(client.ListGroupMembers(ctx, "dev-myapp", 2, 25)).OrFatal(t)
		if page.Total != 60 {
			t.Errorf("total: got %d, want 60", page.Total)
		}
		if len(page.Users) != 25 {
			t.Errorf("page size: got %d, want 25", len(page.Users))
		}
		if page.Users[0].ID != "auth|0025" {
			t.Errorf("first member of page 2: got %q", page.Users[0].ID)
		}
	})

	t.Run("all pages", func(t *testing.T) {
		all := try.To(client.ListAllGroupMembers(ctx, "dev-myapp")).OrFatal(t)
		if len(all) != 60 {
			t.Errorf("members: got %d, want 60", len(all))
		}
	})
}

func TestClient_AddAndDeleteMembers(t *testing.T) {
	server := newIdentityServer("dev-myapp", nil)
	client := testClient(t, server.mux)
	ctx := context.Background()

	emails := []string{"a@example.com", "b@example.com"}
	if err := client.AddGroupMembersByEmail(ctx, "dev-myapp", emails, "email"); err != nil {
		t.Fatal(err)
	}
	if len(server.addedEmails) != 2 || server.addConnection != "email" {
		t.Errorf("add recorded: emails=%v connection=%q", server.addedEmails, server.addConnection)
	}

	if err := client.DeleteGroupMembers(ctx, "dev-myapp", []string{"auth|0001"}); err != nil {
		t.Fatal(err)
	}
	if len(server.deletedUsers) != 1 || server.deletedUsers[0] != "auth|0001" {
		t.Errorf("delete recorded: %v", server.deletedUsers)
	}
}

func TestClient_ClearUpApp(t *testing.T) {
	t.Run("removes group, client and connection", func(t *testing.T) {
		server := newIdentityServer("dev-myapp", nil)
		client := testClient(t, server.mux)

		if err := client.ClearUpApp(context.Background(), "myapp", "dev-myapp"); err != nil {
			t.Fatal(err)
		}
		want := []string{"/groups/grp-0001", "/clients/myapp", "/connections/myapp"}
		if len(server.deletedPaths) != len(want) {
			t.Fatalf("deleted paths: got %v, want %v", server.deletedPaths, want)
		}
		for i := range want {
			if server.deletedPaths[i] != want[i] {
				t.Errorf("deleted[%d]: got %q, want %q", i, server.deletedPaths[i], want[i])
			}
		}
	})

	t.Run("missing group is tolerated", func(t *testing.T) {
		server := newIdentityServer("dev-otherapp", nil)
		client := testClient(t, server.mux)

		if err := client.ClearUpApp(context.Background(), "myapp", "dev-myapp"); err != nil {
			t.Fatal(err)
		}
	})
}

func TestClient_RateLimitIsRetryable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "test-token", "expires_in": 3600})
	})
	mux.HandleFunc("GET /groups", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"message": "rate limit exceeded"})
	})
	client := testClient(t, mux)

	_, err := client.GetGroupID(context.Background(), "dev-myapp")
	ierr, ok := domerr.AsIdentityError(err)
	if !ok || ierr.Kind != domerr.IdentityRateLimited {
		t.Fatalf("error: got %v, want IdentityRateLimited", err)
	}
	if !domerr.Retryable(err) {
		t.Error("rate-limited identity error should be retryable")
	}
}

func TestClient_ExplicitTokenURL(t *testing.T) {
	// the grant endpoint may live on a different host than the
	// management API
	server := newIdentityServer("dev-myapp", nil)
	apiServer := httptest.NewServer(server.mux)
	t.Cleanup(apiServer.Close)

	grants := 0
	tokenMux := http.NewServeMux()
	tokenMux.HandleFunc("POST /custom/token", func(w http.ResponseWriter, r *http.Request) {
		grants++
		json.NewEncoder(w).Encode(map[string]any{"access_token": "test-token", "expires_in": 3600})
	})
	tokenServer := httptest.NewServer(tokenMux)
	t.Cleanup(tokenServer.Close)

	client := identity.New(
		apiServer.URL,
		identity.Credentials{
			ClientID:     "cp",
			ClientSecret: "secret",
			Audience:     "https://identity.example.com/api",
			TokenURL:     tokenServer.URL + "/custom/token",
		},
		apiServer.Client(),
	)

	id := try.To(client.GetGroupID(context.Background(), "dev-myapp")).OrFatal(t)
	if id != "grp-0001" {
		t.Errorf("group id: got %q", id)
	}
	if grants != 1 {
		t.Errorf("grants against the configured endpoint: got %d, want 1", grants)
	}
	if server.tokensIssued != 0 {
		t.Errorf("tokens issued by the API host: got %d, want 0", server.tokensIssued)
	}
}
