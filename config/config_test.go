package config

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmgilman/simplefs/errors"
	"github.com/jmgilman/simplefs/volume"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "disk.sim", cfg.Disk.Path)
	assert.Equal(t, volume.DefaultGeometry(), cfg.VolumeGeometry())
	assert.Equal(t, "bump", cfg.Allocator)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, "fs.log", cfg.Audit.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Metrics.Textfile)
	assert.Equal(t, ".", cfg.Backup.Dir)
	assert.Nil(t, cfg.Backup.MinIO)
}

func TestParse_YAML(t *testing.T) {
	data := []byte(`
disk:
  path: /srv/volume.sim
geometry:
  capacity: 1048576
  slots: 10
allocator: firstfit
audit:
  enabled: false
log:
  level: debug
  format: json
backup:
  minio:
    endpoint: localhost:9000
    bucket: volumes
    accessKey: minioadmin
    secretKey: minioadmin
    useSSL: false
`)
	cfg, err := Parse(data, "simplefs.yaml")
	require.NoError(t, err)

	assert.Equal(t, "/srv/volume.sim", cfg.Disk.Path)
	assert.Equal(t, volume.Geometry{Capacity: 1048576, MetadataSize: 65536, Slots: 10}, cfg.VolumeGeometry())
	assert.Equal(t, "firstfit", cfg.Allocator)
	assert.False(t, cfg.Audit.Enabled)
	assert.Equal(t, "fs.log", cfg.Audit.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	require.NotNil(t, cfg.Backup.MinIO)
	assert.Equal(t, "localhost:9000", cfg.Backup.MinIO.Endpoint)
	assert.Equal(t, "volumes", cfg.Backup.MinIO.Bucket)
	assert.False(t, cfg.Backup.MinIO.UseSSL)
	assert.Empty(t, cfg.Backup.MinIO.Prefix)
}

func TestParse_JSON(t *testing.T) {
	cfg, err := Parse([]byte(`{"disk": {"path": "other.sim"}, "metrics": {"textfile": "simplefs.prom"}}`), "simplefs.json")
	require.NoError(t, err)
	assert.Equal(t, "other.sim", cfg.Disk.Path)
	assert.Equal(t, "simplefs.prom", cfg.Metrics.Textfile)
}

func TestParse_CUE(t *testing.T) {
	data := []byte(`
disk: path: "cue.sim"
geometry: {
	capacity:     2 * 1024 * 1024
	metadataSize: 16 * 1024
	slots:        50
}
`)
	cfg, err := Parse(data, "simplefs.cue")
	require.NoError(t, err)
	assert.Equal(t, "cue.sim", cfg.Disk.Path)
	assert.Equal(t, volume.Geometry{Capacity: 2 * 1024 * 1024, MetadataSize: 16 * 1024, Slots: 50}, cfg.VolumeGeometry())
	require.NoError(t, cfg.VolumeGeometry().Validate())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		filename string
	}{
		{"unknown field", "colour: blue\n", "c.yaml"},
		{"unknown allocator", "allocator: buddy\n", "c.yaml"},
		{"bad log level", "log:\n  level: loud\n", "c.yaml"},
		{"table does not fit", "geometry:\n  metadataSize: 1024\n", "c.yaml"},
		{"metadata not below capacity", "geometry:\n  capacity: 65536\n", "c.yaml"},
		{"capacity over 32 bits", `{"geometry": {"capacity": 4294967296}}`, "c.json"},
		{"minio without bucket", "backup:\n  minio:\n    endpoint: x\n", "c.yaml"},
		{"malformed yaml", "disk: [\n", "c.yaml"},
		{"malformed cue", "disk: {", "c.cue"},
		{"unsupported extension", "", "c.toml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.filename)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeInvalidConfig), "got %v", err)
		})
	}
}

func TestLoad(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "etc/simplefs.yml", []byte("disk:\n  path: loaded.sim\n"), 0o644))

	cfg, err := Load(fs, "etc/simplefs.yml")
	require.NoError(t, err)
	assert.Equal(t, "loaded.sim", cfg.Disk.Path)

	_, err = Load(fs, "missing.yaml")
	assert.True(t, errors.HasCode(err, errors.CodeIO))
}

func TestEncodeYAML(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	out, err := cfg.EncodeYAML()
	require.NoError(t, err)

	var back map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, "bump", back["allocator"])

	again, err := Parse(out, "roundtrip.yaml")
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}
