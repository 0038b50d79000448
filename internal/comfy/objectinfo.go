package comfy

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNoChoices = errors.New("no choices")

type nodeDescriptor struct {
	Input struct {
		Required map[string]json.RawMessage `json:"required"`
		Optional map[string]json.RawMessage `json:"optional"`
	} `json:"input"`
}

// ChoiceValues extracts the accepted values of a combo input from a
// capability descriptor. The descriptor may be keyed by the node kind or be
// the bare node entry. Both the legacy [[values...], {...}] form and the
// ["COMBO", {"options": [...]}] form are understood.
func ChoiceValues(raw json.RawMessage, kind, input string) ([]string, error) {
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode %s descriptor: %w", kind, err)
	}
	if inner, ok := wrapped[kind]; ok {
		raw = inner
	}
	var desc nodeDescriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return nil, fmt.Errorf("decode %s descriptor: %w", kind, err)
	}
	spec, ok := desc.Input.Required[input]
	if !ok {
		spec, ok = desc.Input.Optional[input]
	}
	if !ok {
		return nil, fmt.Errorf("%s has no input %q: %w", kind, input, ErrNoChoices)
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(spec, &parts); err != nil || len(parts) == 0 {
		return nil, fmt.Errorf("%s.%s: malformed input spec: %w", kind, input, ErrNoChoices)
	}

	var values []string
	if err := json.Unmarshal(parts[0], &values); err == nil {
		return nonEmpty(kind, input, values)
	}

	var tag string
	if err := json.Unmarshal(parts[0], &tag); err == nil && tag == "COMBO" && len(parts) > 1 {
		var opts struct {
			Options []string `json:"options"`
		}
		if err := json.Unmarshal(parts[1], &opts); err == nil {
			return nonEmpty(kind, input, opts.Options)
		}
	}
	return nil, fmt.Errorf("%s.%s: not a combo input: %w", kind, input, ErrNoChoices)
}

func nonEmpty(kind, input string, values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%s.%s: empty list: %w", kind, input, ErrNoChoices)
	}
	return values, nil
}
