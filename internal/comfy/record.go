package comfy

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Output kinds used by the save nodes.
const (
	KindImages = "images"
	KindAudio  = "audio"
)

// MsgExecutionError tags the status message the executor writes when a node
// fails.
const MsgExecutionError = "execution_error"

// OutputRef locates one produced artifact in the server's storage.
type OutputRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// Record is the history entry of one prompt.
type Record struct {
	Outputs map[string]map[string]json.RawMessage `json:"outputs"`
	Status  Status                                `json:"status"`
}

type Status struct {
	StatusStr string    `json:"status_str"`
	Completed bool      `json:"completed"`
	Messages  []Message `json:"messages"`
}

// Message is one [tag, payload] status event.
type Message struct {
	Tag  string
	Data map[string]any
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(b, &parts); err != nil {
		return fmt.Errorf("status message: %w", err)
	}
	if len(parts) == 0 {
		return nil
	}
	if err := json.Unmarshal(parts[0], &m.Tag); err != nil {
		return fmt.Errorf("status message tag: %w", err)
	}
	if len(parts) > 1 {
		// Payloads of unknown shape are ignored rather than failing the poll.
		_ = json.Unmarshal(parts[1], &m.Data)
	}
	return nil
}

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{m.Tag, m.Data})
}

// ExecutionError is the payload of an execution_error message.
type ExecutionError struct {
	NodeID        string
	NodeType      string
	ExceptionType string
	Message       string
}

// ExecutionError returns the first error event in the record, if any.
func (r *Record) ExecutionError() (ExecutionError, bool) {
	if r == nil {
		return ExecutionError{}, false
	}
	for _, m := range r.Status.Messages {
		if m.Tag != MsgExecutionError {
			continue
		}
		e := ExecutionError{
			NodeID:        str(m.Data["node_id"]),
			NodeType:      str(m.Data["node_type"]),
			ExceptionType: str(m.Data["exception_type"]),
			Message:       strings.TrimSpace(str(m.Data["exception_message"])),
		}
		if e.NodeType == "" {
			e.NodeType = "unknown"
		}
		if e.Message == "" {
			e.Message = "Unknown error"
		}
		return e, true
	}
	if r.Status.StatusStr == "error" {
		return ExecutionError{NodeType: "unknown", Message: "execution failed without error event"}, true
	}
	return ExecutionError{}, false
}

// Items returns the artifacts of the given kind produced by node. Entries that
// are not file references (text outputs, for instance) are skipped.
func (r *Record) Items(node, kind string) []OutputRef {
	if r == nil {
		return nil
	}
	raw, ok := r.Outputs[node][kind]
	if !ok {
		return nil
	}
	var items []OutputRef
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := items[:0]
	for _, it := range items {
		if it.Filename != "" {
			out = append(out, it)
		}
	}
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
