// Package batch drives one category of assets through the generation
// pipeline, one job at a time. A failing asset is logged and skipped; the
// batch carries on and reports every failure at the end.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/example/kingdom-assetgen/internal/catalog"
	"github.com/example/kingdom-assetgen/internal/comfy"
	"github.com/example/kingdom-assetgen/internal/graph"
	"github.com/example/kingdom-assetgen/internal/job"
	"github.com/example/kingdom-assetgen/internal/model"
	"github.com/example/kingdom-assetgen/internal/workflow"
)

type Resolver interface {
	Resolve(ctx context.Context) string
}

type Runner interface {
	Run(ctx context.Context, g *graph.Graph, p job.Policy) (*job.Result, error)
}

// Ledger records job progress. Ledger failures are logged, never fatal.
type Ledger interface {
	CreateJob(ctx context.Context, j model.Job) error
	UpdateJob(ctx context.Context, id string, patch model.JobPatch) error
}

// Outcome is the result of one asset.
type Outcome struct {
	Asset    string
	Path     string
	PromptID string
	Elapsed  time.Duration
	Err      error
}

type Report struct {
	Category  string
	Model     string
	Succeeded []Outcome
	Failed    []Outcome
}

// Driver runs categories. Build one with NewDriver.
type Driver struct {
	resolver    Resolver
	builder     *workflow.Builder
	runner      Runner
	fetcher     *job.Fetcher
	ledger      Ledger
	workflowDir string
	policies    map[catalog.Kind]job.Policy
	logger      *zap.Logger
	now         func() time.Time
}

type Option func(*Driver)

func WithLedger(l Ledger) Option {
	return func(d *Driver) { d.ledger = l }
}

// WithWorkflowDir makes audio templates load from dir before falling back
// to the bundled ones.
func WithWorkflowDir(dir string) Option {
	return func(d *Driver) { d.workflowDir = dir }
}

// WithPolling overrides the poll interval and ceiling for one asset kind.
func WithPolling(kind catalog.Kind, interval time.Duration, maxPolls int) Option {
	return func(d *Driver) {
		p := d.policies[kind]
		p.Interval = interval
		p.MaxPolls = maxPolls
		d.policies[kind] = p
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// DefaultPolicy returns the completion rules for kind. Images fail fast on a
// record without output; audio nodes report late, so audio keeps polling.
func DefaultPolicy(kind catalog.Kind) job.Policy {
	if kind == catalog.KindAudio {
		return job.Policy{Interval: 2 * time.Second, MaxPolls: 300, OutputKind: comfy.KindAudio, AwaitOutput: true}
	}
	return job.Policy{Interval: time.Second, MaxPolls: 600, OutputKind: comfy.KindImages}
}

func NewDriver(resolver Resolver, builder *workflow.Builder, runner Runner, fetcher *job.Fetcher, opts ...Option) *Driver {
	d := &Driver{
		resolver: resolver,
		builder:  builder,
		runner:   runner,
		fetcher:  fetcher,
		policies: map[catalog.Kind]job.Policy{
			catalog.KindImage: DefaultPolicy(catalog.KindImage),
			catalog.KindAudio: DefaultPolicy(catalog.KindAudio),
		},
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

// Run generates every asset of c in order. The returned error combines the
// failures of all assets; it is nil only when every asset was written.
func (d *Driver) Run(ctx context.Context, c catalog.Category) (*Report, error) {
	var modelName string
	if c.Kind == catalog.KindImage {
		modelName = d.resolver.Resolve(ctx)
	}
	return d.run(ctx, c, modelName)
}

func (d *Driver) run(ctx context.Context, c catalog.Category, modelName string) (*Report, error) {
	logger := d.logger.With(zap.String("category", c.Name))
	report := &Report{Category: c.Name}

	policy, ok := d.policies[c.Kind]
	if !ok {
		return report, fmt.Errorf("category %s: unsupported kind %q", c.Name, c.Kind)
	}
	if c.Kind == catalog.KindImage {
		report.Model = modelName
		logger.Info("using model", zap.String("model", modelName))
	}
	fetcher := d.fetcher
	if c.DefaultExt != "" {
		fetcher = fetcher.WithDefaultExt(c.DefaultExt)
	}

	var errs error
	for i, a := range c.Assets {
		if err := ctx.Err(); err != nil {
			return report, multierr.Append(errs, err)
		}
		alog := logger.With(zap.String("asset", a.Name))
		alog.Info("generating asset", zap.Int("index", i+1), zap.Int("total", len(c.Assets)))

		out := d.runAsset(ctx, alog, c, a, report.Model, policy, fetcher)
		if out.Err != nil {
			alog.Error("asset failed", zap.Duration("elapsed", out.Elapsed), zap.Error(out.Err))
			report.Failed = append(report.Failed, out)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", a.Name, out.Err))
			continue
		}
		alog.Info("asset saved", zap.String("path", out.Path), zap.Duration("elapsed", out.Elapsed))
		report.Succeeded = append(report.Succeeded, out)
	}
	logger.Info("category finished",
		zap.Int("succeeded", len(report.Succeeded)),
		zap.Int("failed", len(report.Failed)),
	)
	return report, errs
}

func (d *Driver) runAsset(ctx context.Context, logger *zap.Logger, c catalog.Category, a catalog.Asset, modelName string, policy job.Policy, fetcher *job.Fetcher) Outcome {
	start := d.now()
	out := Outcome{Asset: a.Name}
	id := d.record(ctx, logger, c.Name, a.Name)

	fail := func(err error) Outcome {
		out.Err = err
		out.Elapsed = d.now().Sub(start)
		var je *job.JobError
		if errors.As(err, &je) && je.PromptID != "" {
			out.PromptID = je.PromptID
		}
		msg := err.Error()
		d.update(ctx, logger, id, model.JobPatch{Status: statusPtr(model.JobError), PromptID: strPtr(out.PromptID), Error: &msg})
		return out
	}

	g, err := d.build(c, a, modelName)
	if err != nil {
		return fail(err)
	}
	policy.OnSubmit = func(promptID string) {
		d.update(ctx, logger, id, model.JobPatch{Status: statusPtr(model.JobRunning), PromptID: &promptID})
	}

	res, err := d.runner.Run(ctx, g, policy)
	if err != nil {
		return fail(err)
	}
	out.PromptID = res.PromptID

	path, err := fetcher.FetchAndSave(ctx, res.Output, a.Dest)
	if err != nil {
		return fail(err)
	}
	out.Path = path
	out.Elapsed = d.now().Sub(start)
	d.update(ctx, logger, id, model.JobPatch{Status: statusPtr(model.JobDone), PromptID: &out.PromptID, OutputPath: &path})
	return out
}

func (d *Driver) build(c catalog.Category, a catalog.Asset, modelName string) (*graph.Graph, error) {
	switch c.Kind {
	case catalog.KindImage:
		return d.builder.BuildImage(workflow.ImageRequest{
			Prefix:      a.Name,
			Prompt:      a.Prompt,
			Negative:    a.Negative,
			Width:       a.Width,
			Height:      a.Height,
			PostProcess: a.PostProcess,
			Sampling:    c.Sampling,
		}, modelName)
	case catalog.KindAudio:
		tpl, err := workflow.LoadTemplate(d.workflowDir, a.Template)
		if err != nil {
			return nil, err
		}
		return d.builder.BuildAudio(tpl, workflow.DefaultAudioSaveNode, workflow.AudioRequest{
			Name:     a.Name,
			Prompt:   a.Prompt,
			Duration: a.Duration,
			CFG:      a.CFG,
		})
	}
	return nil, fmt.Errorf("unsupported kind %q", c.Kind)
}

// record creates the ledger entry and returns its id, or "" without a ledger.
func (d *Driver) record(ctx context.Context, logger *zap.Logger, category, asset string) string {
	if d.ledger == nil {
		return ""
	}
	now := d.now()
	j := model.Job{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Status:    model.JobQueued,
		Category:  category,
		Asset:     asset,
	}
	if err := d.ledger.CreateJob(ctx, j); err != nil {
		logger.Warn("ledger create failed", zap.Error(err))
		return ""
	}
	return j.ID
}

func (d *Driver) update(ctx context.Context, logger *zap.Logger, id string, patch model.JobPatch) {
	if d.ledger == nil || id == "" {
		return
	}
	// The ledger should reflect the outcome even when the batch was cancelled.
	if err := d.ledger.UpdateJob(context.WithoutCancel(ctx), id, patch); err != nil {
		logger.Warn("ledger update failed", zap.String("job_id", id), zap.Error(err))
	}
}

func statusPtr(s model.JobStatus) *model.JobStatus { return &s }

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// RunAll runs each category in turn, continuing past failed categories. The
// checkpoint is resolved once, before the first image category.
func (d *Driver) RunAll(ctx context.Context, cats []catalog.Category) ([]*Report, error) {
	var (
		reports   []*Report
		errs      error
		modelName string
		resolved  bool
	)
	for _, c := range cats {
		if c.Kind == catalog.KindImage && !resolved {
			modelName = d.resolver.Resolve(ctx)
			resolved = true
		}
		r, err := d.run(ctx, c, modelName)
		reports = append(reports, r)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("category %s: %w", c.Name, err))
		}
		if ctx.Err() != nil {
			break
		}
	}
	return reports, errs
}
