// Package probe checks that a generation server is reachable and has the
// node kinds the batches submit.
package probe

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Lister lists the node kinds a server can execute.
type Lister interface {
	NodeKinds(ctx context.Context) ([]string, error)
}

// Missing is a required node kind the server does not know.
type Missing struct {
	Kind        string
	Suggestions []string
}

type Report struct {
	Kinds   int
	Present []string
	Missing []Missing
	// BackgroundRemoval lists every installed node that looks like a
	// background remover, whatever its pack calls it.
	BackgroundRemoval []string
}

func (r *Report) OK() bool { return len(r.Missing) == 0 }

// RequiredKinds returns the node kinds used by the image pipeline (with
// postProcess as the background removal node) and the bundled audio
// templates.
func RequiredKinds(postProcess string) []string {
	kinds := []string{
		"CheckpointLoaderSimple",
		"CLIPTextEncode",
		"EmptyLatentImage",
		"KSampler",
		"VAEDecode",
		"SaveImage",
		"CLIPLoader",
		"EmptyLatentAudio",
		"VAEDecodeAudio",
		"SaveAudio",
	}
	if postProcess != "" {
		kinds = append(kinds, postProcess)
	}
	return kinds
}

// Check lists the server's node kinds and compares them with required.
func Check(ctx context.Context, l Lister, required []string) (*Report, error) {
	kinds, err := l.NodeKinds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list node kinds: %w", err)
	}
	sort.Strings(kinds)
	have := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		have[k] = true
	}

	r := &Report{Kinds: len(kinds)}
	for _, want := range required {
		if have[want] {
			r.Present = append(r.Present, want)
			continue
		}
		r.Missing = append(r.Missing, Missing{Kind: want, Suggestions: Suggest(want, kinds, 3)})
	}
	for _, k := range kinds {
		if isBackgroundRemoval(k) {
			r.BackgroundRemoval = append(r.BackgroundRemoval, k)
		}
	}
	return r, nil
}

func isBackgroundRemoval(kind string) bool {
	k := strings.ToLower(kind)
	return strings.Contains(k, "rembg") || strings.Contains(k, "remove background")
}

type candidate struct {
	kind string
	dist int
}

// Suggest returns up to n kinds close to want: near misses by edit distance
// first, then kinds that contain want or are contained in it. Background
// removal nodes are always candidates for a background removal kind.
func Suggest(want string, kinds []string, n int) []string {
	lw := strings.ToLower(want)
	limit := distanceLimit(len(lw))
	var cands []candidate
	for _, k := range kinds {
		lk := strings.ToLower(k)
		dist := levenshtein.ComputeDistance(lw, lk)
		switch {
		case dist <= limit:
		case strings.Contains(lk, lw) || strings.Contains(lw, lk):
			dist = limit + 1
		case isBackgroundRemoval(want) && isBackgroundRemoval(k):
			dist = limit + 2
		default:
			continue
		}
		cands = append(cands, candidate{kind: k, dist: dist})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].dist == cands[j].dist {
			return cands[i].kind < cands[j].kind
		}
		return cands[i].dist < cands[j].dist
	})
	out := make([]string, 0, n)
	for _, c := range cands {
		if len(out) == n {
			break
		}
		out = append(out, c.kind)
	}
	return out
}

func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	case length <= 16:
		return 3
	default:
		return 5
	}
}
