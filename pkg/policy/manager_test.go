package policy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/analytical-platform/controlpanel/pkg/domain"
	"github.com/analytical-platform/controlpanel/pkg/policy"
	"github.com/analytical-platform/controlpanel/pkg/utils/try"
)

type fakeStore struct {
	raw      []byte
	version  string
	conflict int // number of stores to reject before accepting

	loads  int
	stores int
}

func (f *fakeStore) Load(_ context.Context, _ domain.PolicyCarrier) ([]byte, string, error) {
	f.loads += 1
	return f.raw, f.version, nil
}

func (f *fakeStore) Store(_ context.Context, _ domain.PolicyCarrier, raw []byte, _ string) error {
	f.stores += 1
	if 0 < f.conflict {
		f.conflict -= 1
		return policy.ErrVersionConflict
	}
	f.raw = raw
	return nil
}

var carrier = domain.PolicyCarrier{Kind: domain.CarrierRolePolicy, Name: "test_user_alice"}

func TestManager_Edit(t *testing.T) {
	t.Run("writes the mutated document", func(t *testing.T) {
		store := &fakeStore{}
		mgr := policy.NewManager(store)

		err := mgr.Edit(context.Background(), carrier, func(d *policy.Document) error {
			d.GrantAccess("arn:aws:s3:::b/*", domain.ReadWrite)
			d.GrantListAccess("arn:aws:s3:::b")
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}

		doc := try.To(policy.Parse(store.raw)).OrFatal(t)
		if len(doc.Statement) != 2 {
			t.Errorf("unexpected statement count: %d", len(doc.Statement))
		}
	})

	t.Run("does not write when the mutation fails", func(t *testing.T) {
		store := &fakeStore{}
		mgr := policy.NewManager(store)

		boom := errors.New("boom")
		err := mgr.Edit(context.Background(), carrier, func(d *policy.Document) error {
			d.GrantAccess("arn:aws:s3:::b/*", domain.ReadWrite)
			return boom
		})
		if !errors.Is(err, boom) {
			t.Errorf("expected the mutation error, got: %v", err)
		}
		if store.stores != 0 {
			t.Errorf("store should not have been called (%d calls)", store.stores)
		}
	})

	t.Run("reloads and re-applies on version conflict", func(t *testing.T) {
		store := &fakeStore{conflict: 2}
		mgr := policy.NewManager(store)

		err := mgr.Edit(context.Background(), carrier, func(d *policy.Document) error {
			d.GrantListAccess("arn:aws:s3:::b")
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if store.loads != 3 {
			t.Errorf("expected 3 loads (1 + 2 retries), got %d", store.loads)
		}
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		store := &fakeStore{conflict: 100}
		mgr := policy.NewManager(store, policy.WithRetries(2))

		err := mgr.Edit(context.Background(), carrier, func(d *policy.Document) error {
			d.GrantListAccess("arn:aws:s3:::b")
			return nil
		})
		if !errors.Is(err, policy.ErrVersionConflict) {
			t.Errorf("expected version conflict, got: %v", err)
		}
		if store.stores != 3 {
			t.Errorf("expected 3 store attempts, got %d", store.stores)
		}
	})
}
