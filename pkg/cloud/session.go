// Package cloud encapsulates the object-storage and IAM planes of the
// cloud provider. All remote calls are funneled through narrow client
// interfaces so that handlers and tests never touch the SDK directly.
package cloud

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// SessionKey identifies one credential session. Sessions are memoised
// process-wide per key so handlers in one worker share refreshable
// state.
type SessionKey struct {
	Profile       string
	AssumeRoleARN string
	Region        string
}

// Sessions is the process-wide session cache. Access is serialised by
// an internal mutex; the contained credential caches refresh
// themselves before expiry, so long-running workers never present a
// stale token.
type Sessions struct {
	mu    sync.Mutex
	cache map[SessionKey]aws.Config
}

func NewSessions() *Sessions {
	return &Sessions{cache: map[SessionKey]aws.Config{}}
}

// Get returns the memoised aws.Config for key, creating it on first
// use. With an empty AssumeRoleARN the process's default credential
// chain is used as-is; otherwise base credentials are exchanged for
// time-bounded assumed-role credentials, refreshed opportunistically
// before use by the SDK's credential cache.
func (s *Sessions) Get(ctx context.Context, key SessionKey) (aws.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg, ok := s.cache[key]; ok {
		return cfg, nil
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(key.Region),
	}
	if key.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(key.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	if key.AssumeRoleARN != "" {
		provider := stscreds.NewAssumeRoleProvider(
			sts.NewFromConfig(cfg), key.AssumeRoleARN,
		)
		cfg.Credentials = aws.NewCredentialsCache(provider)
	}

	s.cache[key] = cfg
	return cfg, nil
}
