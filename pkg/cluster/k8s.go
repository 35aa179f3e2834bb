// Package cluster encapsulates the Kubernetes API and Helm command
// execution: everything the control panel does inside the analytical
// cluster.
package cluster

import (
	"context"
	"os"
	"path/filepath"

	kubeapps "k8s.io/api/apps/v1"
	kubecore "k8s.io/api/core/v1"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8s "k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// IdledLabel marks deployments scaled to zero by the external idler.
// The platform reads this label and never writes it.
const IdledLabel = "mojanalytics.xyz/idled"

// K8sClient is the subset of the Kubernetes clientset the control
// panel uses, extracted so handlers and tests stay off the chain-call
// API of client-go.
type K8sClient interface {
	ListDeployments(ctx context.Context, namespace string, labelSelector string) ([]kubeapps.Deployment, error)
	GetDeployment(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error)
	ListPods(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Pod, error)
	DeleteReplicaSets(ctx context.Context, namespace string, labelSelector string) error
}

type k8sClient struct {
	client k8s.Interface
}

var _ K8sClient = &k8sClient{}

// WrapK8sClient adapts a clientset into K8sClient.
func WrapK8sClient(client k8s.Interface) K8sClient {
	return &k8sClient{client: client}
}

func (k *k8sClient) ListDeployments(ctx context.Context, namespace string, labelSelector string) ([]kubeapps.Deployment, error) {
	list, err := k.client.AppsV1().Deployments(namespace).List(ctx, kubeapimeta.ListOptions{
		LabelSelector: labelSelector,
	})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (k *k8sClient) GetDeployment(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
	return k.client.AppsV1().Deployments(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) ListPods(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Pod, error) {
	list, err := k.client.CoreV1().Pods(namespace).List(ctx, kubeapimeta.ListOptions{
		LabelSelector: labelSelector,
	})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// DeleteReplicaSets removes matching replica sets; their deployment
// recreates them, which restarts the tool.
func (k *k8sClient) DeleteReplicaSets(ctx context.Context, namespace string, labelSelector string) error {
	return k.client.AppsV1().ReplicaSets(namespace).DeleteCollection(
		ctx,
		kubeapimeta.DeleteOptions{},
		kubeapimeta.ListOptions{LabelSelector: labelSelector},
	)
}

// RestConfig detects the cluster connection configuration.
//
// It searches, by growing priority: in-cluster config, then
// `~/.kube/config`, then the KUBECONFIG environment variable.
func RestConfig() (*rest.Config, error) {
	kubeconfig := ""
	if home := homedir.HomeDir(); home != "" {
		kubeconfig = filepath.Join(home, ".kube", "config")
	}
	if k := os.Getenv("KUBECONFIG"); k != "" {
		kubeconfig = k
	}
	if kubeconfig != "" {
		stat, err := os.Stat(kubeconfig)
		if os.IsNotExist(err) || (err == nil && stat.IsDir()) {
			kubeconfig = ""
		}
	}

	if kubeconfig == "" {
		return rest.InClusterConfig()
	}
	return clientcmd.BuildConfigFromFlags("", kubeconfig)
}

// Connect builds a clientset from the detected configuration.
func Connect() (*k8s.Clientset, error) {
	config, err := RestConfig()
	if err != nil {
		return nil, err
	}
	return k8s.NewForConfig(config)
}

// BearerConfig copies a rest config and swaps in the caller's ID
// token, for requests that must run with the user's own cluster
// identity (the namespace proxy).
func BearerConfig(base *rest.Config, token string) *rest.Config {
	cfg := rest.CopyConfig(base)
	cfg.BearerToken = token
	cfg.BearerTokenFile = ""
	cfg.Username = ""
	cfg.Password = ""
	return cfg
}
