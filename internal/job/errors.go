package job

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/kingdom-assetgen/internal/comfy"
)

// Error kinds. A *JobError unwraps to exactly one of these.
var (
	ErrNetwork         = errors.New("network error")
	ErrRemote          = errors.New("remote job error")
	ErrMalformedRecord = errors.New("malformed job record")
	ErrTimeout         = errors.New("job timed out")
	ErrFilesystem      = errors.New("filesystem error")
)

// JobError describes why one job did not produce an artifact.
type JobError struct {
	Kind       error
	PromptID   string
	NodeKind   string
	Message    string
	StatusCode int
	Err        error
}

func (e *JobError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.PromptID != "" {
		fmt.Fprintf(&b, " (prompt %s)", e.PromptID)
	}
	if e.NodeKind != "" {
		fmt.Fprintf(&b, ": %s", e.NodeKind)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *JobError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func networkError(promptID, msg string, err error) *JobError {
	je := &JobError{Kind: ErrNetwork, PromptID: promptID, Message: msg, Err: err}
	var herr *comfy.HTTPError
	if errors.As(err, &herr) {
		je.StatusCode = herr.StatusCode
	}
	return je
}
