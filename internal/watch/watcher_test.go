package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/xref/internal/config"
	"github.com/standardbeagle/xref/internal/testing/builders"
)

func smallDatabase(t *testing.T, files ...string) *builders.DatabaseBuilder {
	b := builders.NewDatabase(t)
	for _, f := range files {
		b.File(f).Line(1, builders.Text("int "), builders.Sym("x"), builders.Text(";"))
	}
	return b
}

func startWatcher(t *testing.T, dbPath string, calls *atomic.Int64) *DatabaseWatcher {
	t.Helper()
	dw, err := New(dbPath, config.Watch{Enabled: true, DebounceMs: 20, Patterns: []string{"cscope*.out"}},
		func(uint64) { calls.Add(1) })
	require.NoError(t, err)
	require.NoError(t, dw.Start())
	return dw
}

func TestReloadOnFingerprintChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	dbPath := smallDatabase(t, "a.c").Write(dir)

	var calls atomic.Int64
	dw := startWatcher(t, dbPath, &calls)

	smallDatabase(t, "a.c", "b.c").Write(dir)

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	stats := dw.GetStats()
	assert.Equal(t, int64(1), stats.Reloads)
	assert.True(t, stats.IsActive)

	require.NoError(t, dw.Stop())
	assert.False(t, dw.GetStats().IsActive)
}

func TestSameContentDoesNotReload(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	dbPath := smallDatabase(t, "a.c").Write(dir)

	var calls atomic.Int64
	dw := startWatcher(t, dbPath, &calls)
	defer dw.Stop()

	smallDatabase(t, "a.c").Write(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int64(0), calls.Load())
}

func TestRelevant(t *testing.T) {
	dw := &DatabaseWatcher{dbPath: "/proj/xref.db", patterns: []string{"cscope*.out"}}

	tests := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{"/proj/xref.db", fsnotify.Write, true},
		{"/proj/cscope.in.out", fsnotify.Create, true},
		{"/proj/cscope.po.out", fsnotify.Rename, true},
		{"/proj/main.c", fsnotify.Write, false},
		{"/proj/xref.db", fsnotify.Chmod, false},
	}
	for _, tt := range tests {
		got := dw.relevant(fsnotify.Event{Name: tt.name, Op: tt.op})
		if got != tt.want {
			t.Errorf("relevant(%s, %v) = %v, want %v", tt.name, tt.op, got, tt.want)
		}
	}
}
