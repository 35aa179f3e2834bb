package cluster

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ChartVersion is one published version of a chart in the repository
// index.
type ChartVersion struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	AppVersion  string   `yaml:"appVersion"`
	Description string   `yaml:"description"`
	URLs        []string `yaml:"urls"`
}

type repoIndex struct {
	APIVersion string                    `yaml:"apiVersion"`
	Entries    map[string][]ChartVersion `yaml:"entries"`
}

// ChartIndex reads the Helm repository index file and answers chart
// lookups. The parsed index is cached in memory and refreshed through
// the runner's repo update, so lookups stay cheap on the request path.
type ChartIndex struct {
	helm *Helm

	mu       sync.Mutex
	entries  map[string][]ChartVersion
	loadedAt time.Time
}

func NewChartIndex(helm *Helm) *ChartIndex {
	return &ChartIndex{helm: helm}
}

// Entries returns all charts in the repository keyed by chart name,
// newest version first as helm writes them.
func (ci *ChartIndex) Entries(ctx context.Context) (map[string][]ChartVersion, error) {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	if ci.entries != nil && time.Since(ci.loadedAt) < indexTTL {
		return ci.entries, nil
	}

	if err := ci.helm.RepoUpdate(ctx, false); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(ci.helm.cachePath)
	if err != nil {
		return nil, fmt.Errorf("read chart index: %w", err)
	}

	index := repoIndex{}
	if err := yaml.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("parse chart index: %w", err)
	}

	ci.entries = index.Entries
	ci.loadedAt = time.Now()
	return ci.entries, nil
}

// Lookup finds one chart version. An empty version selects the latest
// published one.
func (ci *ChartIndex) Lookup(ctx context.Context, chart string, version string) (ChartVersion, error) {
	entries, err := ci.Entries(ctx)
	if err != nil {
		return ChartVersion{}, err
	}

	versions, ok := entries[chart]
	if !ok || len(versions) == 0 {
		return ChartVersion{}, fmt.Errorf("chart %q not found in repository index", chart)
	}
	if version == "" {
		return versions[0], nil
	}
	for _, v := range versions {
		if v.Version == version {
			return v, nil
		}
	}
	return ChartVersion{}, fmt.Errorf("chart %q has no version %q", chart, version)
}
