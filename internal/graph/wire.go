package graph

import (
	"encoding/json"
	"fmt"
	"math"
)

type wireNode struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
}

// MarshalJSON encodes the graph in the server's prompt format, where a Ref
// is written as a two element [node, slot] array.
func (g Graph) MarshalJSON() ([]byte, error) {
	out := make(map[string]wireNode, len(g.Nodes))
	for id, n := range g.Nodes {
		inputs := make(map[string]any, len(n.Inputs))
		for name, in := range n.Inputs {
			switch v := in.(type) {
			case Ref:
				inputs[name] = []any{v.Node, v.Slot}
			case Literal:
				inputs[name] = v.Value
			default:
				return nil, fmt.Errorf("node %q input %q: unsupported input %T", id, name, in)
			}
		}
		out[id] = wireNode{ClassType: n.Kind, Inputs: inputs}
	}
	return json.Marshal(out)
}

// FromWire converts an already decoded prompt document into a Graph.
func FromWire(raw map[string]any, terminal string) (*Graph, error) {
	g := New()
	g.Terminal = terminal
	for id, v := range raw {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, invalidf("node %q is not an object", id)
		}
		kind, _ := obj["class_type"].(string)
		if kind == "" {
			return nil, invalidf("node %q has no class_type", id)
		}
		inputs := make(map[string]Input)
		if rawInputs, ok := obj["inputs"].(map[string]any); ok {
			for name, val := range rawInputs {
				inputs[name] = inputFromWire(val)
			}
		}
		g.Add(id, kind, inputs)
	}
	return g, nil
}

func inputFromWire(v any) Input {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return L(v)
	}
	node, ok := arr[0].(string)
	if !ok {
		return L(v)
	}
	slot, ok := slotNumber(arr[1])
	if !ok {
		return L(v)
	}
	return R(node, slot)
}

func slotNumber(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
