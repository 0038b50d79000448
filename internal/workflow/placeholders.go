package workflow

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Placeholder tokens understood by the audio templates.
const (
	TokenPrompt   = "%PROMPT%"
	TokenDuration = "%DURATION%"
	TokenSeed     = "%SEED%"
	TokenCFG      = "%CFG%"
)

// Tokens are %-delimited upper case words so they can never be mistaken for
// a node id.
var tokenPattern = regexp.MustCompile(`^%[A-Z][A-Z0-9_]*%$`)

// Placeholders maps tokens to typed replacement values.
type Placeholders struct {
	values map[string]any
	order  []string
}

// NewPlaceholders validates every token against the delimiter syntax.
func NewPlaceholders(values map[string]any) (Placeholders, error) {
	p := Placeholders{values: make(map[string]any, len(values))}
	for tok, v := range values {
		if !tokenPattern.MatchString(tok) {
			return Placeholders{}, fmt.Errorf("placeholder %q: tokens must look like %%NAME%%", tok)
		}
		p.values[tok] = v
		p.order = append(p.order, tok)
	}
	// Longer tokens first so that a token which is a prefix of another
	// never eats part of it.
	sort.Slice(p.order, func(i, j int) bool {
		if len(p.order[i]) != len(p.order[j]) {
			return len(p.order[i]) > len(p.order[j])
		}
		return p.order[i] < p.order[j]
	})
	return p, nil
}

// Apply walks a decoded JSON tree and returns a substituted copy. A string
// equal to a token becomes the token's typed value; tokens inside longer
// strings are replaced by their text form. Everything else is returned as is.
func (p Placeholders) Apply(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = p.Apply(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = p.Apply(val)
		}
		return out
	case string:
		if val, ok := p.values[t]; ok {
			return val
		}
		if !strings.Contains(t, "%") {
			return t
		}
		s := t
		for _, tok := range p.order {
			s = strings.ReplaceAll(s, tok, textOf(p.values[tok]))
		}
		return s
	}
	return v
}

func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		// Floats keep a decimal point so 7.0 does not read as the int 7.
		s := strconv.FormatFloat(t, 'f', -1, 64)
		if !strings.Contains(s, ".") && !math.IsInf(t, 0) && !math.IsNaN(t) {
			s += ".0"
		}
		return s
	}
	return fmt.Sprint(v)
}
