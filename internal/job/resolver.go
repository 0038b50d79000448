package job

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/example/kingdom-assetgen/internal/comfy"
)

const (
	CheckpointLoader = "CheckpointLoaderSimple"
	checkpointInput  = "ckpt_name"

	DefaultModel      = "v1-5-pruned-emaonly.ckpt"
	DefaultPreference = "v1-5"
)

// NodeInfoer serves capability descriptors.
type NodeInfoer interface {
	NodeInfo(ctx context.Context, kind string) (json.RawMessage, error)
}

// Resolver picks the checkpoint used for a batch run.
type Resolver struct {
	info       NodeInfoer
	preference string
	fallback   string
	logger     *zap.Logger
}

// NewResolver returns a resolver preferring checkpoints whose name contains
// preference and falling back to fallback when nothing can be listed.
func NewResolver(info NodeInfoer, preference, fallback string, logger *zap.Logger) *Resolver {
	if fallback == "" {
		fallback = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{info: info, preference: preference, fallback: fallback, logger: logger}
}

// Resolve never fails: any error yields the fallback checkpoint.
func (r *Resolver) Resolve(ctx context.Context) string {
	raw, err := r.info.NodeInfo(ctx, CheckpointLoader)
	if err != nil {
		r.logger.Warn("failed to fetch models, using default",
			zap.String("model", r.fallback), zap.Error(err))
		return r.fallback
	}
	models, err := comfy.ChoiceValues(raw, CheckpointLoader, checkpointInput)
	if err != nil {
		r.logger.Warn("could not parse model list, using default",
			zap.String("model", r.fallback), zap.Error(err))
		return r.fallback
	}
	r.logger.Debug("found models", zap.Strings("models", models))
	if r.preference != "" {
		for _, m := range models {
			if strings.Contains(m, r.preference) {
				return m
			}
		}
	}
	return models[0]
}
