// Package catalog lists the assets each batch category generates, and where
// each one lands in the game's asset tree.
package catalog

import (
	"fmt"
	"sort"

	"github.com/example/kingdom-assetgen/internal/workflow"
)

type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// Asset is one generated file.
type Asset struct {
	// Name is the save node's filename prefix and the asset's log identity.
	Name string
	// Dest is the output path relative to the asset root. When it has no
	// extension the artifact's own extension is used.
	Dest string

	Width       int
	Height      int
	Prompt      string
	Negative    string
	PostProcess bool

	// Audio assets only.
	Template string
	Duration int
	CFG      float64
}

// Category is a named batch of assets sharing a kind and sampler settings.
type Category struct {
	Name     string
	Kind     Kind
	Sampling workflow.Sampling
	// DefaultExt is appended when neither Dest nor the artifact name carries
	// an extension.
	DefaultExt string
	Assets     []Asset
}

var builders = map[string]func() Category{
	"title":          Title,
	"hero":           Hero,
	"stage-popup":    StagePopup,
	"stage-node":     StageNode,
	"worldmap":       WorldMap,
	"worldmap-audio": WorldMapAudio,
}

// order is the sequence used by All.
var order = []string{"title", "hero", "stage-popup", "stage-node", "worldmap", "worldmap-audio"}

// Lookup returns a fresh copy of the named category.
func Lookup(name string) (Category, error) {
	b, ok := builders[name]
	if !ok {
		return Category{}, fmt.Errorf("unknown category %q (known: %v)", name, Names())
	}
	return b(), nil
}

func Names() []string {
	names := make([]string, 0, len(builders))
	for n := range builders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func All() []Category {
	out := make([]Category, 0, len(order))
	for _, n := range order {
		out = append(out, builders[n]())
	}
	return out
}

func imageSampling(steps int, cfg float64) workflow.Sampling {
	s := workflow.DefaultSampling()
	s.Steps = steps
	s.CFG = cfg
	return s
}
