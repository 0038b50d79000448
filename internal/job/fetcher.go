package job

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/example/kingdom-assetgen/internal/blob"
	"github.com/example/kingdom-assetgen/internal/comfy"
)

// Viewer downloads artifacts.
type Viewer interface {
	View(ctx context.Context, ref comfy.OutputRef) ([]byte, error)
}

// Fetcher downloads artifacts and writes them into the asset tree.
type Fetcher struct {
	viewer     Viewer
	fs         blob.LocalFS
	defaultExt string
	logger     *zap.Logger
}

func NewFetcher(viewer Viewer, fs blob.LocalFS, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{viewer: viewer, fs: fs, defaultExt: ".png", logger: logger}
}

// WithDefaultExt returns a copy that appends ext when neither the
// destination nor the artifact name has an extension.
func (f *Fetcher) WithDefaultExt(ext string) *Fetcher {
	c := *f
	c.defaultExt = ext
	return &c
}

// FetchAndSave downloads ref and writes it to dest, a key relative to the
// asset root. It returns the key actually written.
func (f *Fetcher) FetchAndSave(ctx context.Context, ref comfy.OutputRef, dest string) (string, error) {
	data, err := f.viewer.View(ctx, ref)
	if err != nil {
		return "", networkError("", "fetch "+ref.Filename, err)
	}
	if len(data) == 0 {
		return "", &JobError{Kind: ErrNetwork, Message: "empty artifact " + ref.Filename}
	}

	if filepath.Ext(dest) == "" {
		ext := filepath.Ext(ref.Filename)
		if ext == "" {
			ext = f.defaultExt
		}
		dest += ext
	}
	key, n, err := f.fs.Put(dest, bytes.NewReader(data))
	if err != nil {
		return "", &JobError{Kind: ErrFilesystem, Message: "write " + dest, Err: err}
	}
	f.logger.Info("saved artifact",
		zap.String("path", key),
		zap.String("size", humanize.Bytes(uint64(n))),
	)
	return key, nil
}
