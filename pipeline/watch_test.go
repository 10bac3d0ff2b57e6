package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c360studio/stbgraph/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, patterns ...string) *Watcher {
	t.Helper()
	w, err := NewWatcher(patterns, 50*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	// Give watcher time to set up
	time.Sleep(100 * time.Millisecond)
	return w
}

func waitChanges(t *testing.T, w *Watcher) []Change {
	t.Helper()
	select {
	case changes := <-w.Changes():
		return changes
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for changes")
		return nil
	}
}

func expectQuiet(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case changes := <-w.Changes():
		t.Errorf("unexpected changes: %+v", changes)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherReportsModification(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stb.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	w := startWatcher(t, path)
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0644))

	changes := waitChanges(t, w)
	require.Len(t, changes, 1)
	assert.Equal(t, path, changes[0].Path)
	assert.Equal(t, ChangeModify, changes[0].Operation)
}

func TestWatcherIgnoresUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rdfs.n3")
	require.NoError(t, os.WriteFile(path, []byte("same"), 0644))

	w := startWatcher(t, path)
	require.NoError(t, os.WriteFile(path, []byte("same"), 0644))

	expectQuiet(t, w)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stb.ttl")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	w := startWatcher(t, path)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "transformed.nq"), []byte("out"), 0644))

	expectQuiet(t, w)
}

func TestWatcherReportsDeletion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stb.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	w := startWatcher(t, path)
	require.NoError(t, os.Remove(path))

	changes := waitChanges(t, w)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeDelete, changes[0].Operation)
}

func TestWatcherGlobPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, filepath.Join(dir, "**", "*.xlsx"))

	sub := filepath.Join(dir, "2014")
	require.NoError(t, os.Mkdir(sub, 0755))
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(sub, "stb.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	changes := waitChanges(t, w)
	require.Len(t, changes, 1)
	assert.Equal(t, path, changes[0].Path)
	assert.Equal(t, ChangeCreate, changes[0].Operation)
}

func TestWatcherMergesUnreadBatches(t *testing.T) {
	w, err := NewWatcher([]string{"stb.xlsx"}, 0, nil)
	require.NoError(t, err)
	defer w.Stop()

	w.send([]Change{{Path: "a", Operation: ChangeModify}})
	w.send([]Change{{Path: "b", Operation: ChangeCreate}})

	changes := <-w.Changes()
	assert.Equal(t, []Change{
		{Path: "a", Operation: ChangeModify},
		{Path: "b", Operation: ChangeCreate},
	}, changes)
	assert.Equal(t, int64(1), w.Coalesced())
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestWatchRoot(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"/data/STB_1_mei_2014.xls", "/data"},
		{"/data/*.xlsx", "/data"},
		{"/data/**/*.xlsx", "/data"},
		{"/data/2014/stb-?.xls", "/data/2014"},
	}
	for _, tt := range tests {
		pattern := filepath.FromSlash(tt.pattern)
		assert.Equal(t, filepath.FromSlash(tt.want), watchRoot(pattern), tt.pattern)
	}
}

func TestNewWatcherRequiresPatterns(t *testing.T) {
	_, err := NewWatcher(nil, time.Second, nil)
	assert.Error(t, err)
}

func TestPipelineWatchReruns(t *testing.T) {
	cfg := testConfig(t)
	cfg.Watch.Debounce = config.Duration(200 * time.Millisecond)

	p, err := New(cfg)
	require.NoError(t, err)

	type outcome struct {
		res *Result
		err error
	}
	results := make(chan outcome, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Watch(ctx, func(res *Result, err error) {
			results <- outcome{res, err}
		})
	}()

	first := <-results
	require.NoError(t, first.err)
	assert.Equal(t, 1, first.res.Rows)

	// Give watcher time to set up
	time.Sleep(200 * time.Millisecond)
	writeWorkbook(t, filepath.Dir(cfg.Source.Path), cfg.Source.Sheet, header, taskRow, taskRow)

	select {
	case second := <-results:
		require.NoError(t, second.err)
		assert.Equal(t, 2, second.res.Rows)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for the second run")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
