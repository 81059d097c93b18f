package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"demclean/internal/config"
	"demclean/internal/dem"
	"demclean/internal/mesh"
	"demclean/internal/objio"
	"demclean/internal/pipeline"
	"demclean/internal/scene"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeLakeTile(t *testing.T, path string) {
	t.Helper()
	m, _, err := dem.BuildMesh(dem.Synthetic(5, 5, 5), dem.Options{Lakes: []dem.Lake{{Col0: 1, Row0: 1, Col1: 3, Row1: 3}}})
	require.NoError(t, err)
	s := scene.New()
	_, err = s.Add("533925_dem_6697", m)
	require.NoError(t, err)
	_, err = objio.WriteFile(path, s)
	require.NoError(t, err)
}

func TestWatcher_ProcessesNewTiles(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "clean")

	cfg := config.DefaultConfig()
	cfg.EdgeLength = 8
	runner := pipeline.NewRunner(cfg, zaptest.NewLogger(t))

	w, err := New(in, out, 50*time.Millisecond, runner, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	writeLakeTile(t, filepath.Join(in, "533925_dem_6697.obj"))
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("ignored"), 0644))

	target := filepath.Join(out, "533925_dem_6697.obj")
	require.Eventually(t, func() bool {
		return w.Stats().FilesProcessed >= 1
	}, 5*time.Second, 20*time.Millisecond)

	back, _, err := objio.ReadFile(target)
	require.NoError(t, err)
	obj, ok := back.Get("533925_dem_6697")
	require.True(t, ok)
	assert.Equal(t, mesh.Counts{Vertices: 24, Edges: 48, Faces: 24}, obj.Mesh.Counts())

	stats := w.Stats()
	assert.Zero(t, stats.FilesFailed)
	assert.NotEmpty(t, stats.LastRunID)
	assert.Equal(t, filepath.Join(in, "533925_dem_6697.obj"), stats.LastEventPath)
}

// stubProcessor records calls and fails on demand
type stubProcessor struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (p *stubProcessor) ProcessFile(_ context.Context, in, _ string) (*pipeline.Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, filepath.Base(in))
	if p.err != nil {
		return nil, p.err
	}
	return &pipeline.Report{RunID: "run-1"}, nil
}

func (p *stubProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func TestWatcher_DebouncesRapidWrites(t *testing.T) {
	in := t.TempDir()
	proc := &stubProcessor{}
	w, err := New(in, t.TempDir(), 200*time.Millisecond, proc, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	path := filepath.Join(in, "1_dem_1.obj")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("v 0 0 0\n"), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return proc.count() == 1 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, proc.count())
	assert.Equal(t, "run-1", w.Stats().LastRunID)
}

func TestWatcher_RecordsFailures(t *testing.T) {
	in := t.TempDir()
	proc := &stubProcessor{err: assert.AnError}
	w, err := New(in, t.TempDir(), 20*time.Millisecond, proc, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(in, "2_dem_2.obj"), []byte("v 0 0 0\n"), 0644))
	require.Eventually(t, func() bool { return w.Stats().FilesFailed == 1 }, 5*time.Second, 20*time.Millisecond)
	assert.Zero(t, w.Stats().FilesProcessed)
}

func TestWatcher_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w, err := New(t.TempDir(), t.TempDir(), 20*time.Millisecond, &stubProcessor{}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))

	cancel()
	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("event loop did not exit")
	}
	w.Stop()
}

func TestNew_RejectsSameDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir, dir+string(filepath.Separator), time.Second, &stubProcessor{}, nil)
	assert.Error(t, err)
}

func TestStart_MissingInput(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing"), t.TempDir(), time.Second, &stubProcessor{}, nil)
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
	require.NoError(t, w.Close())
}

func TestIsTile(t *testing.T) {
	assert.True(t, isTile("/data/533925_dem_6697.obj"))
	assert.True(t, isTile("TILE.OBJ"))
	assert.False(t, isTile("/data/.533925_dem_6697.obj.12345"))
	assert.False(t, isTile("/data/.hidden.obj"))
	assert.False(t, isTile("/data/tile.mtl"))
}
