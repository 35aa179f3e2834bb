package configs

import (
	"fmt"
	"time"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// TrySeal validates a marshalled config and returns the immutable
// form. IT WILL PANIC on misconfiguration: a broken config should
// fail startup, not a request.
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

type ConfigMarshall struct {
	Port     int32                    `yaml:"port"`
	Env      string                   `yaml:"env"`
	Database string                   `yaml:"database"`
	Cloud    *CloudConfigMarshall    `yaml:"cloud"`
	Helm     *HelmConfigMarshall     `yaml:"helm"`
	Identity *IdentityConfigMarshall `yaml:"identity"`
	OIDC     *OIDCConfigMarshall     `yaml:"oidc"`
	Apps     *AppConfigMarshall      `yaml:"apps"`
	Users    *UsersConfigMarshall    `yaml:"users,omitempty"`
}

var _ Marshalled[*Config] = &ConfigMarshall{}

func (c *ConfigMarshall) trySeal(path string) *Config {
	port := c.Port
	if port == 0 {
		port = 8080
	}
	return &Config{
		port:     port,
		env:      required(c.Env, path+".env"),
		database: required(c.Database, path+".database"),
		cloud:    nonnil(c.Cloud, path+".cloud").trySeal(path + ".cloud"),
		helm:     nonnil(c.Helm, path+".helm").trySeal(path + ".helm"),
		identity: nonnil(c.Identity, path+".identity").trySeal(path + ".identity"),
		oidc:     nonnil(c.OIDC, path+".oidc").trySeal(path + ".oidc"),
		apps:     nonnil(c.Apps, path+".apps").trySeal(path + ".apps"),
		users:    c.Users.trySeal(path + ".users"),
	}
}

type CloudConfigMarshall struct {
	Region        string `yaml:"region"`
	PolicyARNBase string `yaml:"policyArnBase"`
	TrustedEntity string `yaml:"trustedEntity"`
	Profile       string `yaml:"profile,omitempty"`
	AssumeRole    string `yaml:"assumeRole,omitempty"`
}

func (c *CloudConfigMarshall) trySeal(path string) *CloudConfig {
	return &CloudConfig{
		region:        required(c.Region, path+".region"),
		policyARNBase: required(c.PolicyARNBase, path+".policyArnBase"),
		trustedEntity: required(c.TrustedEntity, path+".trustedEntity"),
		profile:       c.Profile,
		assumeRoleARN: c.AssumeRole,
	}
}

type HelmConfigMarshall struct {
	RepoName         string `yaml:"repoName"`
	RepoURL          string `yaml:"repoUrl"`
	CachePath        string `yaml:"cachePath"`
	UninstallTimeout string `yaml:"uninstallTimeout,omitempty"`
}

func (h *HelmConfigMarshall) trySeal(path string) *HelmConfig {
	timeout := 5 * time.Minute
	if h.UninstallTimeout != "" {
		t, err := time.ParseDuration(h.UninstallTimeout)
		if err != nil {
			panic(fmt.Errorf("%s.uninstallTimeout can not be parsed: %w", path, err))
		}
		timeout = t
	}
	return &HelmConfig{
		repoName:         required(h.RepoName, path+".repoName"),
		repoURL:          required(h.RepoURL, path+".repoUrl"),
		cachePath:        required(h.CachePath, path+".cachePath"),
		uninstallTimeout: timeout,
	}
}

type IdentityConfigMarshall struct {
	BaseURL      string `yaml:"baseUrl"`
	TokenURL     string `yaml:"tokenUrl"`
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	Audience     string `yaml:"audience"`
}

func (i *IdentityConfigMarshall) trySeal(path string) *IdentityConfig {
	return &IdentityConfig{
		baseURL:      required(i.BaseURL, path+".baseUrl"),
		tokenURL:     required(i.TokenURL, path+".tokenUrl"),
		clientID:     required(i.ClientID, path+".clientId"),
		clientSecret: required(i.ClientSecret, path+".clientSecret"),
		audience:     required(i.Audience, path+".audience"),
	}
}

type OIDCConfigMarshall struct {
	Issuer   string `yaml:"issuer"`
	JWKSURL  string `yaml:"jwksUrl"`
	Audience string `yaml:"audience"`
}

func (o *OIDCConfigMarshall) trySeal(path string) *OIDCConfig {
	return &OIDCConfig{
		issuer:   required(o.Issuer, path+".issuer"),
		jwksURL:  required(o.JWKSURL, path+".jwksUrl"),
		audience: required(o.Audience, path+".audience"),
	}
}

type AppConfigMarshall struct {
	BasePolicies     []string `yaml:"basePolicies"`
	CallbackTemplate string   `yaml:"callbackTemplate"`
}

func (a *AppConfigMarshall) trySeal(path string) *AppConfig {
	return &AppConfig{
		basePolicies:     a.BasePolicies,
		callbackTemplate: required(a.CallbackTemplate, path+".callbackTemplate"),
	}
}

// The whole section is optional: a platform without first-login
// policy attachment simply omits it.
type UsersConfigMarshall struct {
	BasePolicies []string `yaml:"basePolicies"`
}

func (u *UsersConfigMarshall) trySeal(string) *UsersConfig {
	if u == nil {
		return &UsersConfig{}
	}
	return &UsersConfig{basePolicies: u.BasePolicies}
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}
