package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/leadforge/internal/interfaces"
	"github.com/ternarybob/leadforge/internal/models"
)

// Registry implements interfaces.ModelRegistry over an ObjectStore: each
// version's weight bytes and metadata sidecar live under
// "models/{name}/{version}/".
type Registry struct {
	store  interfaces.ObjectStore
	logger arbor.ILogger
}

var _ interfaces.ModelRegistry = (*Registry)(nil)

func NewRegistry(store interfaces.ObjectStore, logger arbor.ILogger) *Registry {
	return &Registry{store: store, logger: logger}
}

func (r *Registry) Register(ctx context.Context, artifact *models.ModelArtifact, modelBytes []byte) error {
	metaBytes, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("failed to marshal model artifact metadata: %w", err)
	}
	if err := r.store.Put(ctx, artifact.Key("weights.json"), bytes.NewReader(modelBytes), int64(len(modelBytes))); err != nil {
		return fmt.Errorf("failed to store model weights: %w", err)
	}
	if err := r.store.Put(ctx, artifact.Key("metadata.json"), bytes.NewReader(metaBytes), int64(len(metaBytes))); err != nil {
		return fmt.Errorf("failed to store model metadata: %w", err)
	}
	return nil
}

func (r *Registry) Get(ctx context.Context, name string, version string) (*models.ModelArtifact, []byte, error) {
	prefix := "models/" + name + "/" + version + "/"
	meta, err := r.readMetadata(ctx, prefix+"metadata.json")
	if err != nil {
		return nil, nil, err
	}
	weights, err := r.readAll(ctx, prefix+"weights.json")
	if err != nil {
		return nil, nil, err
	}
	return meta, weights, nil
}

func (r *Registry) GetLatest(ctx context.Context, name string) (*models.ModelArtifact, []byte, error) {
	versions, err := r.versionsFor(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if len(versions) == 0 {
		return nil, nil, fmt.Errorf("no registered versions for model %s", name)
	}
	// The "seed" version sorts after timestamp versions, so prefer the last
	// trained version and fall back to seed only when it is the sole one.
	latest := versions[len(versions)-1]
	for i := len(versions) - 1; i >= 0; i-- {
		if versions[i] != "seed" {
			latest = versions[i]
			break
		}
	}
	return r.Get(ctx, name, latest)
}

func (r *Registry) GetMetrics(ctx context.Context, name string, version string) (*models.ModelMetrics, error) {
	artifact, _, err := r.Get(ctx, name, version)
	if err != nil {
		return nil, err
	}
	return &artifact.Metrics, nil
}

func (r *Registry) List(ctx context.Context) (map[string][]string, error) {
	keys, err := r.store.List(ctx, "models/")
	if err != nil {
		return nil, fmt.Errorf("failed to list registered models: %w", err)
	}
	result := make(map[string][]string)
	for _, key := range keys {
		parts := strings.Split(key, "/")
		if len(parts) < 3 {
			continue
		}
		name, version := parts[1], parts[2]
		found := false
		for _, v := range result[name] {
			if v == version {
				found = true
				break
			}
		}
		if !found {
			result[name] = append(result[name], version)
		}
	}
	for name := range result {
		sort.Strings(result[name])
	}
	return result, nil
}

func (r *Registry) versionsFor(ctx context.Context, name string) ([]string, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return all[name], nil
}

func (r *Registry) readMetadata(ctx context.Context, key string) (*models.ModelArtifact, error) {
	data, err := r.readAll(ctx, key)
	if err != nil {
		return nil, err
	}
	var artifact models.ModelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model metadata %s: %w", key, err)
	}
	return &artifact, nil
}

func (r *Registry) readAll(ctx context.Context, key string) ([]byte, error) {
	rc, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", key, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
