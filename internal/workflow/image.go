// Package workflow builds the job graphs submitted for each asset: a fixed
// text-to-image pipeline, and audio pipelines instantiated from templates.
package workflow

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/example/kingdom-assetgen/internal/graph"
)

// Node ids of the text-to-image pipeline.
const (
	NodeSampler     = "3"
	NodeCheckpoint  = "4"
	NodeLatent      = "5"
	NodePositive    = "6"
	NodeNegative    = "7"
	NodeDecode      = "8"
	NodeSave        = "9"
	NodePostProcess = "10"
)

// DefaultPostProcessNode is the background removal node kind.
const DefaultPostProcessNode = "Image Remove Background (rembg)"

// Sampling holds the sampler hyperparameters shared by a category.
type Sampling struct {
	Steps     int
	CFG       float64
	Sampler   string
	Scheduler string
	Denoise   float64
}

func DefaultSampling() Sampling {
	return Sampling{Steps: 28, CFG: 7.5, Sampler: "euler", Scheduler: "normal", Denoise: 1}
}

func (s Sampling) withDefaults() Sampling {
	d := DefaultSampling()
	if s.Steps <= 0 {
		s.Steps = d.Steps
	}
	if s.CFG <= 0 {
		s.CFG = d.CFG
	}
	if s.Sampler == "" {
		s.Sampler = d.Sampler
	}
	if s.Scheduler == "" {
		s.Scheduler = d.Scheduler
	}
	if s.Denoise <= 0 {
		s.Denoise = d.Denoise
	}
	return s
}

// ImageRequest describes one image asset.
type ImageRequest struct {
	Prefix      string
	Prompt      string
	Negative    string
	Width       int
	Height      int
	PostProcess bool
	Sampling    Sampling
}

// Builder constructs job graphs. The zero value is usable.
type Builder struct {
	// PostProcessNode is the node kind inserted when PostProcess is set.
	PostProcessNode string
	// Seed draws the sampler seed; nil means a fresh random value per call.
	Seed func() int64
}

func NewBuilder(postProcessNode string) *Builder {
	return &Builder{PostProcessNode: postProcessNode}
}

// RandomSeed returns a value in [1, 2^31-1].
func RandomSeed() int64 {
	return rand.Int63n(math.MaxInt32) + 1
}

func (b *Builder) seed() int64 {
	if b != nil && b.Seed != nil {
		return b.Seed()
	}
	return RandomSeed()
}

// BuildImage returns the text-to-image graph for req using checkpoint model.
func (b *Builder) BuildImage(req ImageRequest, model string) (*graph.Graph, error) {
	if strings.TrimSpace(req.Prefix) == "" {
		return nil, fmt.Errorf("image request: empty filename prefix")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("image %s: empty model", req.Prefix)
	}
	if req.Width <= 0 || req.Height <= 0 || req.Width%8 != 0 || req.Height%8 != 0 {
		return nil, fmt.Errorf("image %s: size %dx%d must be positive multiples of 8", req.Prefix, req.Width, req.Height)
	}
	s := req.Sampling.withDefaults()

	g := graph.New()
	g.Add(NodeSampler, "KSampler", map[string]graph.Input{
		"seed":         graph.L(b.seed()),
		"steps":        graph.L(s.Steps),
		"cfg":          graph.L(s.CFG),
		"sampler_name": graph.L(s.Sampler),
		"scheduler":    graph.L(s.Scheduler),
		"denoise":      graph.L(s.Denoise),
		"model":        graph.R(NodeCheckpoint, 0),
		"positive":     graph.R(NodePositive, 0),
		"negative":     graph.R(NodeNegative, 0),
		"latent_image": graph.R(NodeLatent, 0),
	})
	g.Add(NodeCheckpoint, "CheckpointLoaderSimple", map[string]graph.Input{
		"ckpt_name": graph.L(model),
	})
	g.Add(NodeLatent, "EmptyLatentImage", map[string]graph.Input{
		"width":      graph.L(req.Width),
		"height":     graph.L(req.Height),
		"batch_size": graph.L(1),
	})
	g.Add(NodePositive, "CLIPTextEncode", map[string]graph.Input{
		"text": graph.L(req.Prompt),
		"clip": graph.R(NodeCheckpoint, 1),
	})
	g.Add(NodeNegative, "CLIPTextEncode", map[string]graph.Input{
		"text": graph.L(req.Negative),
		"clip": graph.R(NodeCheckpoint, 1),
	})
	g.Add(NodeDecode, "VAEDecode", map[string]graph.Input{
		"samples": graph.R(NodeSampler, 0),
		"vae":     graph.R(NodeCheckpoint, 2),
	})

	last := NodeDecode
	if req.PostProcess {
		kind := DefaultPostProcessNode
		if b != nil && b.PostProcessNode != "" {
			kind = b.PostProcessNode
		}
		g.Add(NodePostProcess, kind, map[string]graph.Input{
			"image": graph.R(last, 0),
		})
		last = NodePostProcess
	}

	g.Add(NodeSave, "SaveImage", map[string]graph.Input{
		"filename_prefix": graph.L(req.Prefix),
		"images":          graph.R(last, 0),
	})
	g.Terminal = NodeSave

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("image %s: %w", req.Prefix, err)
	}
	return g, nil
}
