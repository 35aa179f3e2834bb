package orchestrator_test

import (
	"context"
	"log"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/analytical-platform/controlpanel/pkg/cloud"
	"github.com/analytical-platform/controlpanel/pkg/domain"
	"github.com/analytical-platform/controlpanel/pkg/domain/task/db/mocks"
	"github.com/analytical-platform/controlpanel/pkg/orchestrator"
)

// provisionIAM fakes the two IAM calls provisioning makes; everything
// else inherited from the embedded interface panics if reached.
type provisionIAM struct {
	cloud.IAMAPI
	createdRoles []string
	attached     map[string][]string
}

func (m *provisionIAM) CreateRole(ctx context.Context, in *iam.CreateRoleInput, _ ...func(*iam.Options)) (*iam.CreateRoleOutput, error) {
	m.createdRoles = append(m.createdRoles, aws.ToString(in.RoleName))
	return &iam.CreateRoleOutput{}, nil
}

func (m *provisionIAM) AttachRolePolicy(ctx context.Context, in *iam.AttachRolePolicyInput, _ ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error) {
	if m.attached == nil {
		m.attached = map[string][]string{}
	}
	role := aws.ToString(in.RoleName)
	m.attached[role] = append(m.attached[role], aws.ToString(in.PolicyArn))
	return &iam.AttachRolePolicyOutput{}, nil
}

func TestUserInitialiser(t *testing.T) {
	ctx := context.Background()

	api := &provisionIAM{}
	roles := cloud.NewRoles(api, "arn:aws:iam::123456789012:policy/", "arn:aws:iam::123456789012:role/saml-login")

	tasks := mocks.NewTaskDBMock()
	tasks.Impl.Register = func(ctx context.Context, task domain.Task) error { return nil }
	sender := &fakeSender{}

	init := &orchestrator.UserInitialiser{
		Env:          "test",
		Roles:        roles,
		BasePolicies: []string{"base-user", "restrict-regions"},
		Tasks:        orchestrator.NewSubmitter(tasks, sender, log.New(testWriter{t}, "", 0)),
		Logger:       log.New(testWriter{t}, "", 0),
	}

	err := init.InitialiseUser(ctx, domain.User{
		Sub:      "github|1234",
		Username: "alice",
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(api.createdRoles) != 1 || api.createdRoles[0] != "test_user_alice" {
		t.Errorf("created roles: got %v", api.createdRoles)
	}
	want := []string{
		"arn:aws:iam::123456789012:policy/base-user",
		"arn:aws:iam::123456789012:policy/restrict-regions",
	}
	got := api.attached["test_user_alice"]
	if len(got) != len(want) {
		t.Fatalf("attached policies: got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("attached[%d]: got %q, want %q", i, got[i], want[i])
		}
	}

	if len(sender.calls) != 1 {
		t.Fatalf("Send calls: got %d", len(sender.calls))
	}
	msg, err := orchestrator.DecodeFrame(sender.calls[0].Payload)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Name != domain.TaskUserResetHome {
		t.Errorf("queued task: got %q", msg.Name)
	}
	if username := msg.Kwargs["username"]; username != "alice" {
		t.Errorf("username kwarg: got %v", username)
	}
}
