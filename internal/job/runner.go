// Package job runs single generation jobs against the server: it resolves
// the checkpoint, submits a graph, polls its history until an artifact or an
// error shows up, and saves the artifact.
package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/example/kingdom-assetgen/internal/comfy"
	"github.com/example/kingdom-assetgen/internal/graph"
)

// Server is the part of the generation API the runner needs.
type Server interface {
	Submit(ctx context.Context, g *graph.Graph) (string, error)
	History(ctx context.Context, promptID string) (*comfy.Record, error)
}

// Policy bounds the poll loop and says what counts as completion.
type Policy struct {
	Interval time.Duration
	// MaxPolls is the number of history requests before giving up. Values
	// below 1 are treated as 1.
	MaxPolls int
	// OutputKind is the output list read from the terminal node
	// (comfy.KindImages when empty).
	OutputKind string
	// AwaitOutput keeps polling when a record exists but the terminal node
	// has not reported output yet. Without it such a record is malformed.
	AwaitOutput bool
	// OnSubmit, when set, is called with the prompt id once the server has
	// accepted the graph and before the first poll.
	OnSubmit func(promptID string)
}

// Result is a finished job.
type Result struct {
	PromptID string
	Output   comfy.OutputRef
	Polls    int
}

type Runner struct {
	server Server
	logger *zap.Logger
}

func NewRunner(server Server, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{server: server, logger: logger}
}

var errPending = errors.New("job record not ready")

// Run submits g and waits for its terminal node's first artifact.
func (r *Runner) Run(ctx context.Context, g *graph.Graph, p Policy) (*Result, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("submit job: %w", err)
	}
	kind := p.OutputKind
	if kind == "" {
		kind = comfy.KindImages
	}
	maxPolls := p.MaxPolls
	if maxPolls < 1 {
		maxPolls = 1
	}

	promptID, err := r.server.Submit(ctx, g)
	if err != nil {
		return nil, networkError("", "submit", err)
	}
	r.logger.Info("job queued", zap.String("prompt_id", promptID))
	if p.OnSubmit != nil {
		p.OnSubmit(promptID)
	}

	res := &Result{PromptID: promptID}
	poll := func() error {
		res.Polls++
		rec, err := r.server.History(ctx, promptID)
		if err != nil {
			return backoff.Permanent(networkError(promptID, "poll history", err))
		}
		if rec == nil {
			return errPending
		}
		if e, failed := rec.ExecutionError(); failed {
			return backoff.Permanent(&JobError{
				Kind:     ErrRemote,
				PromptID: promptID,
				NodeKind: e.NodeType,
				Message:  e.Message,
			})
		}
		if items := rec.Items(g.Terminal, kind); len(items) > 0 {
			res.Output = items[0]
			return nil
		}
		if p.AwaitOutput {
			return errPending
		}
		return backoff.Permanent(&JobError{
			Kind:     ErrMalformedRecord,
			PromptID: promptID,
			Message:  fmt.Sprintf("node %s has no %s output", g.Terminal, kind),
		})
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Interval), uint64(maxPolls-1)),
		ctx,
	)
	err = backoff.RetryNotify(poll, b, func(error, time.Duration) {
		r.logger.Debug("job pending", zap.String("prompt_id", promptID), zap.Int("polls", res.Polls))
	})
	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, errPending):
		return nil, &JobError{
			Kind:     ErrTimeout,
			PromptID: promptID,
			Message:  fmt.Sprintf("no result after %d polls", res.Polls),
		}
	case ctx.Err() != nil && !isJobError(err):
		return nil, fmt.Errorf("wait for prompt %s: %w", promptID, err)
	}
	return nil, err
}

func isJobError(err error) bool {
	var je *JobError
	return errors.As(err, &je)
}
