package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwksRefreshInterval bounds how often an unknown key id triggers a
// refetch, so a flood of bad tokens cannot hammer the issuer.
const jwksRefreshInterval = 5 * time.Minute

type jwksDocument struct {
	Keys []jwkEntry `json:"keys"`
}

type jwkEntry struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS fetches and caches the issuer's signing keys, keyed by kid.
type JWKS struct {
	httpclient *http.Client
	url        string

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewJWKS(url string, httpclient *http.Client) *JWKS {
	if httpclient == nil {
		httpclient = &http.Client{Timeout: 10 * time.Second}
	}
	return &JWKS{httpclient: httpclient, url: url, keys: map[string]*rsa.PublicKey{}}
}

func (j *JWKS) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		return err
	}
	resp, err := j.httpclient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks fetch: unexpected status %d", resp.StatusCode)
	}

	doc := jwksDocument{}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return err
	}

	keys := map[string]*rsa.PublicKey{}
	for _, entry := range doc.Keys {
		if entry.Kty != "RSA" || entry.Kid == "" {
			continue
		}
		key, err := entry.publicKey()
		if err != nil {
			return fmt.Errorf("jwks key %s: %w", entry.Kid, err)
		}
		keys[entry.Kid] = key
	}

	j.keys = keys
	j.fetchedAt = time.Now()
	return nil
}

func (e jwkEntry) publicKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(e.N)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(e.E)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}, nil
}

// Key resolves a signing key by kid, refetching the key set when the
// kid is unknown and the cache is stale enough.
func (j *JWKS) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if key, ok := j.keys[kid]; ok {
		return key, nil
	}
	if time.Since(j.fetchedAt) < jwksRefreshInterval {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	if err := j.fetch(ctx); err != nil {
		return nil, err
	}
	key, ok := j.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

// Claims are the OIDC claims the platform acts on.
type Claims struct {
	Sub           string
	Nickname      string
	Name          string
	Email         string
	EmailVerified bool
}

// TokenVerifier checks an end-user bearer token and extracts claims.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (Claims, error)
}

type oidcVerifier struct {
	keys     *JWKS
	issuer   string
	audience string
	parser   *jwt.Parser
}

// NewTokenVerifier verifies RS256 tokens against the issuer's JWKS.
func NewTokenVerifier(keys *JWKS, issuer string, audience string) TokenVerifier {
	return &oidcVerifier{
		keys:     keys,
		issuer:   issuer,
		audience: audience,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256"}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
		),
	}
}

type oidcClaims struct {
	jwt.RegisteredClaims
	Nickname      string `json:"nickname"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func (v *oidcVerifier) Verify(ctx context.Context, raw string) (Claims, error) {
	claims := oidcClaims{}
	_, err := v.parser.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		return Claims{}, err
	}
	return Claims{
		Sub:           claims.Subject,
		Nickname:      claims.Nickname,
		Name:          claims.Name,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
	}, nil
}
