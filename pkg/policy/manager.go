package policy

import (
	"context"
	"errors"
	"sync"

	"github.com/analytical-platform/controlpanel/pkg/domain"
	xe "github.com/analytical-platform/controlpanel/pkg/errors"
)

// ErrVersionConflict is returned by a CarrierStore when the server
// rejects a write because the document changed since it was loaded.
var ErrVersionConflict = errors.New("policy document version conflict")

// CarrierStore loads and stores raw policy documents from whatever
// carries them: an inline role policy or a managed policy. version is
// an opaque token the store uses for its compare-and-swap; carriers
// without server-side versioning return "".
type CarrierStore interface {
	Load(ctx context.Context, carrier domain.PolicyCarrier) (raw []byte, version string, err error)
	Store(ctx context.Context, carrier domain.PolicyCarrier, raw []byte, version string) error
}

// Manager serialises policy edits. Within one process, at most one
// edit scope runs per (carrier kind, name); across processes the
// carrier's version token arbitrates, and a rejected write is retried
// by reloading and re-applying the mutation function.
type Manager struct {
	store   CarrierStore
	retries int

	mu    sync.Mutex
	locks map[domain.PolicyCarrier]*sync.Mutex
}

type Option func(*Manager) *Manager

// WithRetries overrides how many times a conflicted write is retried.
func WithRetries(n int) Option {
	return func(m *Manager) *Manager {
		m.retries = n
		return m
	}
}

func NewManager(store CarrierStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		retries: 3,
		locks:   map[domain.PolicyCarrier]*sync.Mutex{},
	}
	for _, opt := range opts {
		m = opt(m)
	}
	return m
}

func (m *Manager) lockFor(carrier domain.PolicyCarrier) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[carrier]
	if !ok {
		l = &sync.Mutex{}
		m.locks[carrier] = l
	}
	return l
}

// Edit runs one load-mutate-store transaction on the carrier's
// document. mutate queues its changes on the passed document; when it
// returns an error, nothing is written. A write rejected with
// ErrVersionConflict reloads the document and re-applies mutate, up
// to the configured retry count.
func (m *Manager) Edit(ctx context.Context, carrier domain.PolicyCarrier, mutate func(*Document) error) error {
	l := m.lockFor(carrier)
	l.Lock()
	defer l.Unlock()

	var lastErr error
	for attempt := 0; attempt <= m.retries; attempt++ {
		raw, version, err := m.store.Load(ctx, carrier)
		if err != nil {
			return xe.Wrap(err)
		}

		doc := NewDocument()
		if len(raw) != 0 {
			doc, err = Parse(raw)
			if err != nil {
				return xe.WrapWithNote("broken policy document", err)
			}
		}

		if err := mutate(doc); err != nil {
			return err
		}

		out, err := doc.Serialise()
		if err != nil {
			return xe.Wrap(err)
		}

		err = m.store.Store(ctx, carrier, out, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return xe.Wrap(err)
		}
		lastErr = err
	}

	return xe.WrapWithNote("policy edit did not converge", lastErr)
}

// ApplyGrant records g in the carrier's document: object ARNs under
// the statement of its level, the bucket ARN under the list
// statement.
func ApplyGrant(doc *Document, g domain.Grant) {
	for _, arn := range domain.ObjectARNs(g) {
		doc.GrantAccess(arn, g.Level())
	}
	doc.GrantListAccess(domain.BucketARN(g))
}

// RemoveGrant strips every ARN of g's bucket from the document.
func RemoveGrant(doc *Document, g domain.Grant) {
	doc.ResetAccess(domain.BucketARN(g))
}
