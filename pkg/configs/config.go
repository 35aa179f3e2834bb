package configs

import (
	"time"
)

// Config is the sealed runtime configuration of both binaries.
//
// To get a Config instance, use `ConfigMarshall.TrySeal()` via Load or
// Unmarshal. Values are validated once at startup; getters never fail.
type Config struct {
	port     int32
	env      string
	database string
	cloud    *CloudConfig
	helm     *HelmConfig
	identity *IdentityConfig
	oidc     *OIDCConfig
	apps     *AppConfig
	users    *UsersConfig
}

func (c *Config) Port() int32 {
	return c.port
}

// Env is the environment tag every cross-plane identifier is prefixed
// with (bucket names, role names, identity group names).
func (c *Config) Env() string {
	return c.env
}

// Database is the connection URI of the relational store.
func (c *Config) Database() string {
	return c.database
}

func (c *Config) Cloud() *CloudConfig {
	return c.cloud
}

func (c *Config) Helm() *HelmConfig {
	return c.helm
}

func (c *Config) Identity() *IdentityConfig {
	return c.identity
}

func (c *Config) OIDC() *OIDCConfig {
	return c.oidc
}

func (c *Config) Apps() *AppConfig {
	return c.apps
}

func (c *Config) Users() *UsersConfig {
	return c.users
}

// CloudConfig selects the cloud plane: region, how managed policy
// names expand to ARNs, and who may assume created roles.
type CloudConfig struct {
	region        string
	policyARNBase string
	trustedEntity string
	profile       string
	assumeRoleARN string
}

func (c *CloudConfig) Region() string {
	return c.region
}

// Profile selects a shared-config credential profile. Empty means the
// default credential chain.
func (c *CloudConfig) Profile() string {
	return c.profile
}

// AssumeRoleARN, when set, is the role every cloud call runs as; the
// base credentials are only used to assume it.
func (c *CloudConfig) AssumeRoleARN() string {
	return c.assumeRoleARN
}

// PolicyARNBase is prepended to managed policy names to form their
// full ARN, e.g. "arn:aws:iam::123456789012:policy/".
func (c *CloudConfig) PolicyARNBase() string {
	return c.policyARNBase
}

// TrustedEntity is the ARN written into the assume-role policy of
// every role this system creates.
func (c *CloudConfig) TrustedEntity() string {
	return c.trustedEntity
}

// HelmConfig locates the chart repository and the on-disk index cache.
type HelmConfig struct {
	repoName         string
	repoURL          string
	cachePath        string
	uninstallTimeout time.Duration
}

func (h *HelmConfig) RepoName() string {
	return h.repoName
}

func (h *HelmConfig) RepoURL() string {
	return h.repoURL
}

// CachePath is where `helm repo update` writes the repository index.
// Shared between processes; writers take a file lock.
func (h *HelmConfig) CachePath() string {
	return h.cachePath
}

func (h *HelmConfig) UninstallTimeout() time.Duration {
	return h.uninstallTimeout
}

// IdentityConfig is the identity-provider management API access.
type IdentityConfig struct {
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	audience     string
}

func (i *IdentityConfig) BaseURL() string {
	return i.baseURL
}

func (i *IdentityConfig) TokenURL() string {
	return i.tokenURL
}

func (i *IdentityConfig) ClientID() string {
	return i.clientID
}

func (i *IdentityConfig) ClientSecret() string {
	return i.clientSecret
}

func (i *IdentityConfig) Audience() string {
	return i.audience
}

// OIDCConfig verifies end-user bearer tokens on the API surface.
type OIDCConfig struct {
	issuer   string
	jwksURL  string
	audience string
}

func (o *OIDCConfig) Issuer() string {
	return o.issuer
}

func (o *OIDCConfig) JWKSURL() string {
	return o.jwksURL
}

func (o *OIDCConfig) Audience() string {
	return o.audience
}

// AppConfig holds app-provisioning knobs: the managed policies every
// app role starts with and the auth callback URL template.
type AppConfig struct {
	basePolicies     []string
	callbackTemplate string
}

func (a *AppConfig) BasePolicies() []string {
	return a.basePolicies
}

// CallbackTemplate expands an app slug into its OAuth callback URL,
// e.g. "https://%s.apps.example.com/callback".
func (a *AppConfig) CallbackTemplate() string {
	return a.callbackTemplate
}

// UsersConfig holds user-provisioning knobs.
type UsersConfig struct {
	basePolicies []string
}

// BasePolicies are the managed policies attached to every newly
// provisioned user role. May be empty.
func (u *UsersConfig) BasePolicies() []string {
	return u.basePolicies
}
