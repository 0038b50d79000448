package workflow

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/kingdom-assetgen/internal/graph"
)

//go:embed templates/*.json
var builtinTemplates embed.FS

// Template names shipped with the binary.
const (
	TemplateBGM = "worldmap_bgm.json"
	TemplateSFX = "worldmap_sfx.json"
)

// DefaultAudioSaveNode is the SaveAudio node id in the bundled templates.
const DefaultAudioSaveNode = "19"

// AudioRequest describes one audio asset.
type AudioRequest struct {
	Name     string
	Prompt   string
	Duration int
	CFG      float64
	// Prefix overrides the save node's filename prefix; empty means
	// "WorldMap/<Name>".
	Prefix string
}

// LoadTemplate reads a template from dir, falling back to the embedded copy
// when dir is empty or does not contain the file.
func LoadTemplate(dir, name string) ([]byte, error) {
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}
	}
	data, err := builtinTemplates.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	return data, nil
}

// BuildAudio instantiates template for req. saveNode is the template's
// terminal SaveAudio node.
func (b *Builder) BuildAudio(template []byte, saveNode string, req AudioRequest) (*graph.Graph, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("audio request: empty name")
	}
	if req.Duration <= 0 {
		return nil, fmt.Errorf("audio %s: duration must be positive, got %d", req.Name, req.Duration)
	}
	if saveNode == "" {
		saveNode = DefaultAudioSaveNode
	}

	dec := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(template, []byte("\xef\xbb\xbf"))))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("audio %s: decode template: %w", req.Name, err)
	}

	ph, err := NewPlaceholders(map[string]any{
		TokenPrompt:   req.Prompt,
		TokenDuration: req.Duration,
		TokenSeed:     b.seed(),
		TokenCFG:      req.CFG,
	})
	if err != nil {
		return nil, err
	}
	substituted, _ := ph.Apply(raw).(map[string]any)

	g, err := graph.FromWire(substituted, saveNode)
	if err != nil {
		return nil, fmt.Errorf("audio %s: %w", req.Name, err)
	}
	if _, ok := g.Nodes[saveNode]; !ok {
		return nil, fmt.Errorf("audio %s: template has no save node %q", req.Name, saveNode)
	}
	prefix := req.Prefix
	if prefix == "" {
		prefix = "WorldMap/" + req.Name
	}
	if err := g.SetInput(saveNode, "filename_prefix", graph.L(prefix)); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("audio %s: %w", req.Name, err)
	}
	return g, nil
}
