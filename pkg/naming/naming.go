// Package naming is the single source of truth for identifiers shared
// across the cloud, cluster and identity planes: bucket names, IAM
// role names, Kubernetes namespaces and Helm release names.
//
// All functions are pure and deterministic. Identifier drift between
// planes is unrecoverable, so nothing outside this package composes
// names.
package naming

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidRepoURL = errors.New("invalid repository URL")

var (
	reBucketName = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9](\.[a-z][a-z0-9-]*[a-z0-9])*$`)
	reNonLabel   = regexp.MustCompile(`[^a-z0-9]+`)
	reNonRole    = regexp.MustCompile(`[^a-z0-9._-]+`)
)

// BucketSlug normalises a requested bucket name: lowercases and
// replaces underscores with hyphens. The result is validated against
// S3 bucket naming rules (3..63 chars, RFC-style labels).
func BucketSlug(name string) (string, error) {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, "_", "-")

	if l := len(slug); l < 3 || 63 < l {
		return "", fmt.Errorf("bucket name must be 3 to 63 characters: %q", name)
	}
	if !reBucketName.MatchString(slug) {
		return "", fmt.Errorf("bucket name does not satisfy naming rules: %q", name)
	}
	return slug, nil
}

// EnsureEnvPrefix checks that a bucket name begins with the
// environment prefix "<env>-".
func EnsureEnvPrefix(env string, name string) error {
	prefix := env + "-"
	if !strings.HasPrefix(name, prefix) {
		return fmt.Errorf("bucket name must start with %s", prefix)
	}
	return nil
}

// DNSLabel turns an arbitrary string into a DNS-1123 label: lowered,
// any run of non-[a-z0-9] collapsed to a single hyphen, trimmed of
// leading/trailing non-alphanumerics, truncated to 63 characters.
func DNSLabel(s string) string {
	label := strings.ToLower(s)
	label = reNonLabel.ReplaceAllString(label, "-")
	label = strings.Trim(label, "-")
	if 63 < len(label) {
		label = label[:63]
		label = strings.TrimRight(label, "-")
	}
	return label
}

// RepoNameFromURL returns the last path segment of a repository URL,
// with trailing "/" and ".git" stripped.
func RepoNameFromURL(url string) (string, error) {
	u := strings.TrimSuffix(url, "/")
	u = strings.TrimSuffix(u, ".git")
	idx := strings.LastIndex(u, "/")
	if idx < 0 || idx == len(u)-1 {
		return "", fmt.Errorf("%w: %q", ErrInvalidRepoURL, url)
	}
	name := u[idx+1:]
	if name == "" || strings.ContainsAny(name, ":@ ") {
		return "", fmt.Errorf("%w: %q", ErrInvalidRepoURL, url)
	}
	return name, nil
}

// UserRoleName is the IAM role of a user: ENV_user_<sanitised-username>.
func UserRoleName(env string, username string) string {
	return fmt.Sprintf("%s_user_%s", env, sanitiseUsername(username))
}

// AppRoleName is the IAM role of an app: ENV_app_<slug>.
func AppRoleName(env string, slug string) string {
	return fmt.Sprintf("%s_app_%s", env, slug)
}

// NamespaceName is the per-user Kubernetes namespace: user-<username>
// cleaned to DNS-label rules.
func NamespaceName(username string) string {
	return DNSLabel("user-" + username)
}

// ReleaseName is the Helm release of a tool deployed for a user,
// e.g. rstudio-bob.
func ReleaseName(username string, tool string) string {
	return DNSLabel(tool + "-" + username)
}

// WebappReleaseName is the Helm release of a registered app,
// derived from its repository name.
func WebappReleaseName(repoName string) string {
	return DNSLabel(repoName)
}

func sanitiseUsername(username string) string {
	u := strings.ToLower(username)
	return reNonRole.ReplaceAllString(u, "")
}
