package handlers

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"k8s.io/client-go/rest"

	binderr "github.com/analytical-platform/controlpanel/pkg/api/types/errors"
	"github.com/analytical-platform/controlpanel/pkg/cluster"
	"github.com/analytical-platform/controlpanel/pkg/naming"
)

// API groups ordinary users may reach through the cluster proxy.
// Anything else is for superusers only.
var allowedAPIPrefixes = []string{
	"api/v1",
	"apis/apps/v1",
	"apis/apps/v1beta2",
	"apis/extensions/v1beta1",
}

// allowedClusterPath reports whether an ordinary user may proxy the
// given path: a whitelisted API group, addressing the user's own
// namespace. The namespace segments must sit directly after the API
// group — a `namespaces/<ns>` pair deeper in the path (a service
// proxy sub-path, say) names an upstream resource, not the scope of
// the request. The namespace match is on the whole path segment, so
// user-alice never reaches user-aliceother.
func allowedClusterPath(path string, namespace string) bool {
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")

	for _, prefix := range allowedAPIPrefixes {
		group := strings.Split(prefix, "/")
		if len(segments) < len(group)+2 {
			continue
		}
		matched := true
		for i := range group {
			if segments[i] != group[i] {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		return segments[len(group)] == "namespaces" && segments[len(group)+1] == namespace
	}
	return false
}

// K8sProxyHandler forwards requests to the cluster API server with
// the caller's own identity: the bearer token of the incoming request
// is swapped into a copy of the cluster configuration, so the API
// server authorises the call as the user, not as the platform.
func K8sProxyHandler(base *url.URL, k8sConfig *rest.Config, paramPath string) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := requireUser(c)
		if err != nil {
			return err
		}

		path := c.Param(paramPath)
		if !caller.IsSuperuser {
			namespace := naming.NamespaceName(caller.Username)
			if !allowedClusterPath(path, namespace) {
				return binderr.Forbidden("path not allowed through the cluster proxy")
			}
		}

		token := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		transport, err := rest.TransportFor(cluster.BearerConfig(k8sConfig, token))
		if err != nil {
			return binderr.InternalServerError(err)
		}
		proxy := &httputil.ReverseProxy{
			Transport: transport,
			Director:  func(*http.Request) {},
		}

		req := c.Request().Clone(c.Request().Context())
		req.URL.Scheme = base.Scheme
		req.URL.Host = base.Host
		req.URL.Path = strings.TrimSuffix(base.Path, "/") + "/" + strings.TrimPrefix(path, "/")
		req.Host = base.Host
		// the bearer transport only injects when the header is unset
		req.Header.Del(echo.HeaderAuthorization)

		proxy.ServeHTTP(c.Response(), req)
		return nil
	}
}
