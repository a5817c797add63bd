package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/simplefs/errors"
	"github.com/jmgilman/simplefs/volume"
)

func newVolume(t *testing.T) *volume.Volume {
	t.Helper()
	geo := volume.Geometry{Capacity: 4096, MetadataSize: 1024, Slots: 4}
	vol, err := volume.Format("disk.sim", volume.WithFilesystem(memfs.New()), volume.WithGeometry(geo))
	require.NoError(t, err)
	t.Cleanup(func() { _ = vol.Close() })
	return vol
}

func TestObserveOperation(t *testing.T) {
	m := New()
	start := time.Now()

	m.ObserveOperation("create", start, nil)
	m.ObserveOperation("create", start, nil)
	m.ObserveOperation("create", start, errors.New(errors.CodeAlreadyExists, "file already exists"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("create", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("create", "ALREADY_EXISTS")))
}

func TestUsageCollector(t *testing.T) {
	vol := newVolume(t)
	require.NoError(t, vol.Create("a"))
	require.NoError(t, vol.Write("a", []byte("1234")))
	require.NoError(t, vol.Write("a", []byte("12")))

	expected := `
# HELP simplefs_volume_capacity_bytes Size of the backing extent.
# TYPE simplefs_volume_capacity_bytes gauge
simplefs_volume_capacity_bytes 4096
# HELP simplefs_volume_files Number of valid files.
# TYPE simplefs_volume_files gauge
simplefs_volume_files 1
# HELP simplefs_volume_free_bytes Bytes above the high-water mark.
# TYPE simplefs_volume_free_bytes gauge
simplefs_volume_free_bytes 3066
# HELP simplefs_volume_garbage_bytes Abandoned bytes below the high-water mark, reclaimable by defragmentation.
# TYPE simplefs_volume_garbage_bytes gauge
simplefs_volume_garbage_bytes 4
# HELP simplefs_volume_live_bytes Bytes held by valid files.
# TYPE simplefs_volume_live_bytes gauge
simplefs_volume_live_bytes 2
`
	err := testutil.CollectAndCompare(NewUsageCollector(vol), strings.NewReader(expected),
		"simplefs_volume_capacity_bytes",
		"simplefs_volume_files",
		"simplefs_volume_free_bytes",
		"simplefs_volume_garbage_bytes",
		"simplefs_volume_live_bytes",
	)
	require.NoError(t, err)
}

func TestWriteToTextfile(t *testing.T) {
	vol := newVolume(t)
	m := New()
	require.NoError(t, m.WatchVolume(vol))
	m.ObserveOperation("defragment", time.Now(), nil)

	path := filepath.Join(t.TempDir(), "simplefs.prom")
	require.NoError(t, m.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `simplefs_volume_operations_total{code="OK",operation="defragment"} 1`)
	assert.Contains(t, string(data), "simplefs_volume_slots 4")
}
