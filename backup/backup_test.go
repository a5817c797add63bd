package backup

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/simplefs/errors"
	"github.com/jmgilman/simplefs/volume"
)

var testGeometry = volume.Geometry{Capacity: 64 * 1024, MetadataSize: 16 * 1024, Slots: 8}

func newVolume(t *testing.T) *volume.Volume {
	t.Helper()
	vol, err := volume.Format("disk.sim", volume.WithFilesystem(memfs.New()), volume.WithGeometry(testGeometry))
	require.NoError(t, err)
	t.Cleanup(func() { _ = vol.Close() })
	return vol
}

type recorder struct {
	ops []string
}

func (r *recorder) Notify(op string) error {
	r.ops = append(r.ops, op)
	return nil
}

// memTarget keeps images in memory.
type memTarget struct {
	images map[string][]byte
	putErr error
}

func (m *memTarget) Put(_ context.Context, name string, r io.Reader, _ int64) error {
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if m.images == nil {
		m.images = map[string][]byte{}
	}
	m.images[name] = data
	return nil
}

func (m *memTarget) Get(_ context.Context, name string) (io.ReadCloser, int64, error) {
	data, ok := m.images[name]
	if !ok {
		return nil, 0, errors.New(errors.CodeNotFound, "backup not found")
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (m *memTarget) String() string { return "mem" }

func TestBackupRestore_FileTarget(t *testing.T) {
	vol := newVolume(t)
	require.NoError(t, vol.Create("a"))
	require.NoError(t, vol.Write("a", []byte("before backup")))

	fs := memfs.New()
	rec := &recorder{}
	svc, err := New([]Target{NewFileTarget(fs, "backups")}, WithNotifier(rec))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, svc.Backup(ctx, vol.Extent(), "disk.bak"))

	stored, err := util.ReadFile(fs, "backups/disk.bak")
	require.NoError(t, err)
	assert.Len(t, stored, int(testGeometry.Capacity))

	require.NoError(t, vol.Write("a", []byte("after backup")))
	require.NoError(t, vol.Create("b"))

	require.NoError(t, svc.Restore(ctx, vol.Extent(), "disk.bak"))

	data, err := vol.ReadFile("a")
	require.NoError(t, err)
	assert.Equal(t, "before backup", string(data))

	ok, err := vol.Exists("b")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{"backup taken: disk.bak", "backup restored: disk.bak"}, rec.ops)
}

func TestBackup_ImageIsByteIdentical(t *testing.T) {
	vol := newVolume(t)
	require.NoError(t, vol.Create("x"))
	require.NoError(t, vol.Write("x", []byte{0xde, 0xad, 0xbe, 0xef}))

	target := &memTarget{}
	svc, err := New([]Target{target})
	require.NoError(t, err)
	require.NoError(t, svc.Backup(context.Background(), vol.Extent(), "img"))

	want := make([]byte, testGeometry.Capacity)
	_, err = vol.Extent().ReadAt(want, 0)
	require.NoError(t, err)
	assert.Equal(t, want, target.images["img"])
}

func TestBackup_AllTargets(t *testing.T) {
	vol := newVolume(t)
	first, second := &memTarget{}, &memTarget{}
	svc, err := New([]Target{first, second})
	require.NoError(t, err)

	require.NoError(t, svc.Backup(context.Background(), vol.Extent(), "img"))
	assert.Len(t, first.images["img"], int(testGeometry.Capacity))
	assert.Len(t, second.images["img"], int(testGeometry.Capacity))
}

func TestBackup_TargetFailure(t *testing.T) {
	vol := newVolume(t)
	rec := &recorder{}
	failing := &memTarget{putErr: errors.New(errors.CodeNetwork, "connection refused")}
	svc, err := New([]Target{&memTarget{}, failing}, WithNotifier(rec))
	require.NoError(t, err)

	err = svc.Backup(context.Background(), vol.Extent(), "img")
	assert.True(t, errors.HasCode(err, errors.CodeNetwork))
	assert.Empty(t, rec.ops)
}

func TestRestore_SizeMismatch(t *testing.T) {
	vol := newVolume(t)
	require.NoError(t, vol.Create("keep"))
	before := make([]byte, testGeometry.Capacity)
	_, err := vol.Extent().ReadAt(before, 0)
	require.NoError(t, err)

	target := &memTarget{images: map[string][]byte{"small": make([]byte, 1024)}}
	svc, err := New([]Target{target})
	require.NoError(t, err)

	err = svc.Restore(context.Background(), vol.Extent(), "small")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidArgument))

	after := make([]byte, testGeometry.Capacity)
	_, err = vol.Extent().ReadAt(after, 0)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRestore_FallsBackToNextTarget(t *testing.T) {
	vol := newVolume(t)
	require.NoError(t, vol.Create("a"))

	image := make([]byte, testGeometry.Capacity)
	_, err := vol.Extent().ReadAt(image, 0)
	require.NoError(t, err)

	require.NoError(t, vol.Delete("a"))

	svc, err := New([]Target{&memTarget{}, &memTarget{images: map[string][]byte{"img": image}}})
	require.NoError(t, err)
	require.NoError(t, svc.Restore(context.Background(), vol.Extent(), "img"))

	ok, err := vol.Exists("a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRestore_NotFound(t *testing.T) {
	vol := newVolume(t)
	svc, err := New([]Target{NewFileTarget(memfs.New(), "backups")})
	require.NoError(t, err)

	err = svc.Restore(context.Background(), vol.Extent(), "missing")
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestNew_NoTargets(t *testing.T) {
	_, err := New(nil)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidConfig))
}

func TestFileTarget_ShortInput(t *testing.T) {
	fs := memfs.New()
	target := NewFileTarget(fs, "backups")

	err := target.Put(context.Background(), "img", bytes.NewReader([]byte("abc")), 10)
	assert.True(t, errors.HasCode(err, errors.CodeIO))

	_, err = fs.Stat("backups/img")
	assert.Error(t, err)
}

func TestObjectConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ObjectConfig
		wantErr bool
	}{
		{"complete", ObjectConfig{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "k", SecretKey: "s"}, false},
		{"missing bucket", ObjectConfig{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s"}, true},
		{"missing endpoint", ObjectConfig{Bucket: "b", AccessKey: "k", SecretKey: "s"}, true},
		{"missing access key", ObjectConfig{Endpoint: "localhost:9000", Bucket: "b", SecretKey: "s"}, true},
		{"missing secret key", ObjectConfig{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "k"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewObjectTarget(tt.cfg)
			if tt.wantErr {
				assert.True(t, errors.HasCode(err, errors.CodeInvalidConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestObjectTarget_Key(t *testing.T) {
	target, err := NewObjectTarget(ObjectConfig{
		Endpoint: "localhost:9000", Bucket: "volumes", AccessKey: "k", SecretKey: "s", Prefix: "/nightly/",
	})
	require.NoError(t, err)

	assert.Equal(t, "nightly/disk.bak", target.key("disk.bak"))
	assert.Equal(t, "s3://volumes/nightly", target.String())
}
