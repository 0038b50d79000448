package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/kingdom-assetgen/internal/catalog"
)

func isolate(t *testing.T) {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "ASSETGEN_") {
			t.Setenv(key, "")
		}
	}
	t.Setenv("ASSETGEN_DATA_DIR", t.TempDir())
	t.Setenv("ASSETGEN_LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestEveryCategoryHasACommand(t *testing.T) {
	root := newRootCmd()
	for _, name := range append(catalog.Names(), "all", "probe", "serve", "jobs") {
		c, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		require.Equal(t, name, c.Name())
	}
}

func TestJobsOnEmptyLedger(t *testing.T) {
	isolate(t)
	out, err := execute(t, "jobs")
	require.NoError(t, err)
	require.Equal(t, "no jobs\n", out)
}

func TestJobsRejectsBadStatus(t *testing.T) {
	isolate(t)
	_, err := execute(t, "jobs", "--status", "lost")
	require.ErrorContains(t, err, `invalid status "lost"`)
}

func TestBadLogLevelFlag(t *testing.T) {
	isolate(t)
	_, err := execute(t, "jobs", "--log-level", "chatty")
	require.ErrorContains(t, err, "parse log level")
}
