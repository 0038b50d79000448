package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func chain() *Graph {
	g := New()
	g.Add("4", "CheckpointLoaderSimple", map[string]Input{"ckpt_name": L("m.ckpt")})
	g.Add("8", "VAEDecode", map[string]Input{"vae": R("4", 2)})
	g.Add("9", "SaveImage", map[string]Input{"images": R("8", 0), "filename_prefix": L("x")})
	g.Terminal = "9"
	return g
}

func TestValidateAcceptsChain(t *testing.T) {
	g := chain()
	require.NoError(t, g.Validate())
	require.Equal(t, []string{"4", "8", "9"}, g.TopoOrder())
	require.True(t, g.Reaches("9", "4"))
	require.False(t, g.Reaches("4", "9"))
}

func TestValidateRejectsDanglingRef(t *testing.T) {
	g := chain()
	require.NoError(t, g.SetInput("8", "samples", R("3", 0)))

	err := g.Validate()
	require.ErrorIs(t, err, ErrInvalidGraph)
	require.Contains(t, err.Error(), `unknown node "3"`)
}

func TestValidateRejectsMissingTerminal(t *testing.T) {
	g := chain()
	g.Terminal = ""
	require.ErrorIs(t, g.Validate(), ErrInvalidGraph)

	g.Terminal = "42"
	require.ErrorIs(t, g.Validate(), ErrInvalidGraph)
}

func TestValidateReportsCycle(t *testing.T) {
	g := chain()
	require.NoError(t, g.SetInput("4", "loop", R("9", 0)))

	err := g.Validate()
	require.ErrorIs(t, err, ErrCycleFound)
	var gerr *GraphError
	require.True(t, errors.As(err, &gerr))
	require.Contains(t, gerr.Msg, "->")
}

func TestSelfReferenceIsCycle(t *testing.T) {
	g := New()
	g.Add("1", "Loop", map[string]Input{"in": R("1", 0)})
	g.Terminal = "1"
	require.ErrorIs(t, g.Validate(), ErrCycleFound)
}

func TestSetInputUnknownNode(t *testing.T) {
	g := chain()
	require.ErrorIs(t, g.SetInput("77", "x", L(1)), ErrInvalidGraph)
}

func TestIDsOrderNumericFirst(t *testing.T) {
	g := New()
	for _, id := range []string{"10", "b", "9", "a", "3"} {
		g.Add(id, "K", nil)
	}
	require.Equal(t, []string{"3", "9", "10", "a", "b"}, g.IDs())
}

func TestMarshalEncodesRefsAsPairs(t *testing.T) {
	data, err := json.Marshal(chain())
	require.NoError(t, err)

	var wire map[string]struct {
		ClassType string         `json:"class_type"`
		Inputs    map[string]any `json:"inputs"`
	}
	require.NoError(t, json.Unmarshal(data, &wire))
	require.Equal(t, "SaveImage", wire["9"].ClassType)
	require.Equal(t, []any{"8", float64(0)}, wire["9"].Inputs["images"])
	require.Equal(t, "x", wire["9"].Inputs["filename_prefix"])
}

func fromJSON(t *testing.T, data []byte, terminal string) (*Graph, error) {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	require.NoError(t, dec.Decode(&raw))
	return FromWire(raw, terminal)
}

func TestFromWireRoundTrip(t *testing.T) {
	data, err := json.Marshal(chain())
	require.NoError(t, err)

	g, err := fromJSON(t, data, "9")
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	require.Equal(t, R("8", 0), g.Nodes["9"].Inputs["images"])
	require.Equal(t, L("m.ckpt"), g.Nodes["4"].Inputs["ckpt_name"])
}

func TestFromWireKeepsNonRefArrays(t *testing.T) {
	g, err := fromJSON(t, []byte(`{"1":{"class_type":"K","inputs":{"pair":[1,2],"three":["a",0,1],"frac":["a",0.5]}}}`), "1")
	require.NoError(t, err)
	for _, name := range []string{"pair", "three", "frac"} {
		_, isRef := g.Nodes["1"].Inputs[name].(Ref)
		require.False(t, isRef, name)
	}
}

func TestFromWireRejectsNodeWithoutKind(t *testing.T) {
	_, err := fromJSON(t, []byte(`{"1":{"inputs":{}}}`), "1")
	require.ErrorIs(t, err, ErrInvalidGraph)
}

func TestCloneIsIndependent(t *testing.T) {
	g := chain()
	c := g.Clone()
	require.NoError(t, c.SetInput("9", "filename_prefix", L("y")))
	require.Equal(t, L("x"), g.Nodes["9"].Inputs["filename_prefix"])
}
