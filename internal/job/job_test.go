package job

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/example/kingdom-assetgen/internal/blob"
	"github.com/example/kingdom-assetgen/internal/comfy"
	"github.com/example/kingdom-assetgen/internal/graph"
)

// fakeServer replays one history answer per poll; the last answer repeats.
type fakeServer struct {
	submitErr error
	records   []*comfy.Record
	histErr   error
	submits   int
	polls     int
	views     int
	payload   []byte
	viewErr   error
	info      json.RawMessage
	infoErr   error
}

func (f *fakeServer) Submit(context.Context, *graph.Graph) (string, error) {
	f.submits++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "p-1", nil
}

func (f *fakeServer) History(context.Context, string) (*comfy.Record, error) {
	f.polls++
	if f.histErr != nil {
		return nil, f.histErr
	}
	if len(f.records) == 0 {
		return nil, nil
	}
	i := f.polls - 1
	if i >= len(f.records) {
		i = len(f.records) - 1
	}
	return f.records[i], nil
}

func (f *fakeServer) View(context.Context, comfy.OutputRef) ([]byte, error) {
	f.views++
	return f.payload, f.viewErr
}

func (f *fakeServer) NodeInfo(context.Context, string) (json.RawMessage, error) {
	return f.info, f.infoErr
}

func record(t *testing.T, s string) *comfy.Record {
	t.Helper()
	var r comfy.Record
	require.NoError(t, json.Unmarshal([]byte(s), &r))
	return &r
}

const (
	doneImage   = `{"outputs":{"9":{"images":[{"filename":"Title_Logo_00001_.png","subfolder":"","type":"output"}]}},"status":{"status_str":"success","completed":true,"messages":[]}}`
	failedImage = `{"outputs":{"9":{"images":[{"filename":"x.png","type":"output"}]}},"status":{"status_str":"error","messages":[["execution_error",{"node_type":"KSampler","exception_message":"CUDA out of memory"}]]}}`
	emptyRecord = `{"outputs":{},"status":{"status_str":"","messages":[["execution_start",{}]]}}`
)

func saveGraph() *graph.Graph {
	g := graph.New()
	g.Add("4", "CheckpointLoaderSimple", map[string]graph.Input{"ckpt_name": graph.L("m")})
	g.Add("9", "SaveImage", map[string]graph.Input{"images": graph.R("4", 0)})
	g.Terminal = "9"
	return g
}

func fastPolicy(max int) Policy {
	return Policy{Interval: time.Millisecond, MaxPolls: max}
}

func TestRunReturnsOnFirstCompleteRecord(t *testing.T) {
	srv := &fakeServer{records: []*comfy.Record{nil, nil, record(t, doneImage)}}
	r := NewRunner(srv, zaptest.NewLogger(t))

	res, err := r.Run(context.Background(), saveGraph(), fastPolicy(10))
	require.NoError(t, err)
	require.Equal(t, "p-1", res.PromptID)
	require.Equal(t, "Title_Logo_00001_.png", res.Output.Filename)
	require.Equal(t, 3, res.Polls)
	require.Equal(t, 3, srv.polls)
}

func TestRunErrorTakesPrecedenceOverOutput(t *testing.T) {
	srv := &fakeServer{records: []*comfy.Record{record(t, failedImage)}}
	r := NewRunner(srv, zaptest.NewLogger(t))

	res, err := r.Run(context.Background(), saveGraph(), fastPolicy(10))
	require.Nil(t, res)
	require.ErrorIs(t, err, ErrRemote)
	var je *JobError
	require.True(t, errors.As(err, &je))
	require.Equal(t, "KSampler", je.NodeKind)
	require.Equal(t, "CUDA out of memory", je.Message)
	require.Equal(t, "p-1", je.PromptID)
	require.Equal(t, 1, srv.polls, "a remote error must stop polling")
}

func TestRunMalformedRecordWithoutAwait(t *testing.T) {
	srv := &fakeServer{records: []*comfy.Record{record(t, emptyRecord)}}
	_, err := NewRunner(srv, nil).Run(context.Background(), saveGraph(), fastPolicy(10))
	require.ErrorIs(t, err, ErrMalformedRecord)
	require.Equal(t, 1, srv.polls)
}

func TestRunAwaitsLateOutput(t *testing.T) {
	audio := `{"outputs":{"9":{"audio":[{"filename":"WorldMap_BGM_00001_.flac","subfolder":"WorldMap","type":"output"}]}},"status":{"messages":[]}}`
	srv := &fakeServer{records: []*comfy.Record{record(t, emptyRecord), record(t, emptyRecord), record(t, audio)}}
	p := fastPolicy(5)
	p.OutputKind = comfy.KindAudio
	p.AwaitOutput = true

	res, err := NewRunner(srv, nil).Run(context.Background(), saveGraph(), p)
	require.NoError(t, err)
	require.Equal(t, "WorldMap", res.Output.Subfolder)
	require.Equal(t, 3, srv.polls)
}

func TestRunTimesOutAfterExactlyMaxPolls(t *testing.T) {
	srv := &fakeServer{}
	_, err := NewRunner(srv, nil).Run(context.Background(), saveGraph(), fastPolicy(3))
	require.ErrorIs(t, err, ErrTimeout)
	require.Equal(t, 3, srv.polls)
	require.Equal(t, 0, srv.views)
}

func TestRunClampsMaxPolls(t *testing.T) {
	srv := &fakeServer{}
	_, err := NewRunner(srv, nil).Run(context.Background(), saveGraph(), fastPolicy(0))
	require.ErrorIs(t, err, ErrTimeout)
	require.Equal(t, 1, srv.polls)
}

func TestRunSubmitFailureIsNetworkError(t *testing.T) {
	srv := &fakeServer{submitErr: &comfy.HTTPError{Method: "POST", Path: "/prompt", StatusCode: 400, Body: "bad"}}
	_, err := NewRunner(srv, nil).Run(context.Background(), saveGraph(), fastPolicy(3))
	require.ErrorIs(t, err, ErrNetwork)
	var je *JobError
	require.True(t, errors.As(err, &je))
	require.Equal(t, 400, je.StatusCode)
	require.Equal(t, 0, srv.polls)
}

func TestRunReportsSubmitBeforePolling(t *testing.T) {
	srv := &fakeServer{records: []*comfy.Record{nil, record(t, doneImage)}}
	var (
		got        []string
		pollsSoFar int
	)
	p := fastPolicy(5)
	p.OnSubmit = func(promptID string) {
		got = append(got, promptID)
		pollsSoFar = srv.polls
	}

	_, err := NewRunner(srv, nil).Run(context.Background(), saveGraph(), p)
	require.NoError(t, err)
	require.Equal(t, []string{"p-1"}, got)
	require.Zero(t, pollsSoFar)

	got = nil
	failing := &fakeServer{submitErr: errors.New("refused")}
	_, err = NewRunner(failing, nil).Run(context.Background(), saveGraph(), p)
	require.ErrorIs(t, err, ErrNetwork)
	require.Empty(t, got, "nothing was accepted")
}

func TestRunPollFailureStopsImmediately(t *testing.T) {
	boom := errors.New("connection reset")
	srv := &fakeServer{histErr: boom}
	_, err := NewRunner(srv, nil).Run(context.Background(), saveGraph(), fastPolicy(5))
	require.ErrorIs(t, err, ErrNetwork)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, srv.polls)
}

func TestRunRejectsInvalidGraph(t *testing.T) {
	g := saveGraph()
	g.Terminal = "missing"
	srv := &fakeServer{}
	_, err := NewRunner(srv, nil).Run(context.Background(), g, fastPolicy(1))
	require.ErrorIs(t, err, graph.ErrInvalidGraph)
	require.Equal(t, 0, srv.submits)
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &fakeServer{}
	p := Policy{Interval: time.Hour, MaxPolls: 10}
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := NewRunner(srv, nil).Run(ctx, saveGraph(), p)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, srv.polls)
}

func TestResolverPrefersVersion(t *testing.T) {
	srv := &fakeServer{info: json.RawMessage(`{"CheckpointLoaderSimple":{"input":{"required":{"ckpt_name":[["sdxl.safetensors","v1-5-pruned.ckpt"],{}]}}}}`)}
	r := NewResolver(srv, DefaultPreference, "", zaptest.NewLogger(t))
	require.Equal(t, "v1-5-pruned.ckpt", r.Resolve(context.Background()))

	r = NewResolver(srv, "turbo", "", nil)
	require.Equal(t, "sdxl.safetensors", r.Resolve(context.Background()))
}

func TestResolverFallsBack(t *testing.T) {
	for name, srv := range map[string]*fakeServer{
		"network": {infoErr: errors.New("dial tcp: refused")},
		"garbage": {info: json.RawMessage(`<html>`)},
		"empty":   {info: json.RawMessage(`{"input":{"required":{"ckpt_name":[[]]}}}`)},
	} {
		r := NewResolver(srv, DefaultPreference, "fallback.ckpt", nil)
		require.Equal(t, "fallback.ckpt", r.Resolve(context.Background()), name)
	}
	require.Equal(t, DefaultModel, NewResolver(&fakeServer{infoErr: errors.New("x")}, "", "", nil).Resolve(context.Background()))
}

func TestFetchAndSaveOverwrites(t *testing.T) {
	root := t.TempDir()
	srv := &fakeServer{payload: []byte("one")}
	f := NewFetcher(srv, blob.LocalFS{Root: root}, zaptest.NewLogger(t))
	dest := "Assets/Resources/UI/Title/Title_Logo.png"

	key, err := f.FetchAndSave(context.Background(), comfy.OutputRef{Filename: "a.png"}, dest)
	require.NoError(t, err)
	require.Equal(t, filepath.FromSlash(dest), key)

	srv.payload = []byte("two")
	_, err = f.FetchAndSave(context.Background(), comfy.OutputRef{Filename: "b.png"}, dest)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, dest))
	require.NoError(t, err)
	require.Equal(t, "two", string(data))
}

func TestFetchAndSaveExtensions(t *testing.T) {
	root := t.TempDir()
	srv := &fakeServer{payload: []byte("ID3")}
	f := NewFetcher(srv, blob.LocalFS{Root: root}, nil).WithDefaultExt(".mp3")

	key, err := f.FetchAndSave(context.Background(), comfy.OutputRef{Filename: "clip_00001_.flac"}, "Audio/WorldMap_BGM")
	require.NoError(t, err)
	require.Equal(t, filepath.FromSlash("Audio/WorldMap_BGM.flac"), key)

	key, err = f.FetchAndSave(context.Background(), comfy.OutputRef{Filename: "clip"}, "Audio/WorldMap_Click")
	require.NoError(t, err)
	require.Equal(t, filepath.FromSlash("Audio/WorldMap_Click.mp3"), key)
}

func TestFetchAndSaveWritesNothingOnFailure(t *testing.T) {
	root := t.TempDir()
	srv := &fakeServer{viewErr: errors.New("EOF")}
	f := NewFetcher(srv, blob.LocalFS{Root: root}, nil)

	_, err := f.FetchAndSave(context.Background(), comfy.OutputRef{Filename: "a.png"}, "x/a.png")
	require.ErrorIs(t, err, ErrNetwork)
	_, statErr := os.Stat(filepath.Join(root, "x"))
	require.True(t, os.IsNotExist(statErr))

	srv.viewErr = nil
	srv.payload = nil
	_, err = f.FetchAndSave(context.Background(), comfy.OutputRef{Filename: "a.png"}, "x/a.png")
	require.ErrorIs(t, err, ErrNetwork)
}

func TestFetchAndSaveFilesystemError(t *testing.T) {
	root := t.TempDir()
	// A regular file where a directory is needed makes MkdirAll fail.
	require.NoError(t, os.WriteFile(filepath.Join(root, "Assets"), []byte("x"), 0o644))
	f := NewFetcher(&fakeServer{payload: []byte("png")}, blob.LocalFS{Root: root}, nil)

	_, err := f.FetchAndSave(context.Background(), comfy.OutputRef{Filename: "a.png"}, "Assets/UI/a.png")
	require.ErrorIs(t, err, ErrFilesystem)
}

func TestJobErrorMessage(t *testing.T) {
	err := &JobError{Kind: ErrRemote, PromptID: "p", NodeKind: "KSampler", Message: "boom"}
	require.Equal(t, "remote job error (prompt p): KSampler: boom", err.Error())
}
