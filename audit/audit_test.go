package audit

import (
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/simplefs/volume"
)

func TestLog_Notify(t *testing.T) {
	fs := memfs.New()
	clock := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)
	log := New("fs.log", WithFilesystem(fs), WithClock(func() time.Time { return clock }))

	require.NoError(t, log.Notify("disk formatted"))
	clock = clock.Add(61 * time.Second)
	require.NoError(t, log.Notify("file created: a"))

	data, err := util.ReadFile(fs, "fs.log")
	require.NoError(t, err)
	assert.Equal(t,
		"2025-01-02 03:04:05 - disk formatted\n"+
			"2025-01-02 03:05:06 - file created: a\n",
		string(data))
}

func TestLog_AppendsToExisting(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "ops.log", []byte("earlier\n"), 0o644))

	log := New("ops.log", WithFilesystem(fs), WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	}))
	require.NoError(t, log.Notify("disk defragmented"))

	data, err := util.ReadFile(fs, "ops.log")
	require.NoError(t, err)
	assert.Equal(t, "earlier\n2025-06-01 12:00:00 - disk defragmented\n", string(data))
}

func TestNew_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultPath, New("", WithFilesystem(memfs.New())).Path())
}

func TestLog_AsVolumeNotifier(t *testing.T) {
	fs := memfs.New()
	log := New("fs.log", WithFilesystem(fs))

	vol, err := volume.Format("disk.sim", volume.WithFilesystem(fs), volume.WithNotifier(log))
	require.NoError(t, err)
	defer vol.Close()

	require.NoError(t, vol.Create("a"))
	require.NoError(t, vol.Rename("a", "b"))
	require.Error(t, vol.Delete("missing"))

	data, err := util.ReadFile(fs, "fs.log")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], " - disk formatted")
	assert.Contains(t, lines[1], " - file created: a")
	assert.Contains(t, lines[2], " - file renamed: a -> b")
}

func TestNop(t *testing.T) {
	var n volume.Notifier = Nop{}
	assert.NoError(t, n.Notify("anything"))
}
