// Package config loads simplefs configuration.
//
// Configuration files may be written in CUE, YAML or JSON. Every file is
// unified with the embedded #Config schema, which supplies defaults and
// rejects unknown fields, and then decoded into a Config.
//
// Example YAML:
//
//	disk:
//	  path: /var/lib/simplefs/disk.sim
//	allocator: firstfit
//	audit:
//	  path: /var/log/simplefs.log
//	backup:
//	  minio:
//	    endpoint: minio.internal:9000
//	    bucket: volumes
package config

import (
	_ "embed"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"

	"github.com/jmgilman/simplefs/errors"
	"github.com/jmgilman/simplefs/volume"
)

//go:embed schema.cue
var schemaSource []byte

// Config is the decoded configuration.
type Config struct {
	Disk      DiskConfig     `json:"disk"`
	Geometry  GeometryConfig `json:"geometry"`
	Allocator string         `json:"allocator"`
	Audit     AuditConfig    `json:"audit"`
	Log       LogConfig      `json:"log"`
	Metrics   MetricsConfig  `json:"metrics"`
	Backup    BackupConfig   `json:"backup"`
}

// DiskConfig locates the backing file.
type DiskConfig struct {
	Path string `json:"path"`
}

// GeometryConfig mirrors volume.Geometry.
type GeometryConfig struct {
	Capacity     uint32 `json:"capacity"`
	MetadataSize uint32 `json:"metadataSize"`
	Slots        int    `json:"slots"`
}

// AuditConfig controls the operation log.
type AuditConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	Textfile string `json:"textfile"`
}

// BackupConfig configures backup targets.
type BackupConfig struct {
	Dir   string       `json:"dir"`
	MinIO *MinIOConfig `json:"minio,omitempty"`
}

// MinIOConfig configures an object-storage backup target.
type MinIOConfig struct {
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	UseSSL    bool   `json:"useSSL"`
	Prefix    string `json:"prefix"`
}

// VolumeGeometry converts the geometry section.
func (c *Config) VolumeGeometry() volume.Geometry {
	return volume.Geometry{
		Capacity:     c.Geometry.Capacity,
		MetadataSize: c.Geometry.MetadataSize,
		Slots:        c.Geometry.Slots,
	}
}

// Default returns the configuration produced by the schema defaults alone.
func Default() (*Config, error) {
	return decode(func(ctx *cue.Context) (cue.Value, error) {
		return ctx.CompileString("{}"), nil
	}, "<default>")
}

// Load reads the configuration file at path from fs. The format is chosen by
// extension: .cue, .yaml, .yml or .json.
func Load(fs billy.Filesystem, path string) (*Config, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeIO, "failed to read configuration file",
			map[string]interface{}{"path": path})
	}
	return Parse(data, path)
}

// Parse decodes configuration bytes. filename selects the format and is used
// in error messages.
func Parse(data []byte, filename string) (*Config, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".cue":
		return decode(func(ctx *cue.Context) (cue.Value, error) {
			v := ctx.CompileBytes(data, cue.Filename(filename))
			return v, v.Err()
		}, filename)
	case ".yaml", ".yml", ".json":
		// yaml.v3 reads JSON as well.
		var raw map[string]interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.WrapWithContext(err, errors.CodeInvalidConfig, "failed to parse configuration file",
				map[string]interface{}{"path": filename})
		}
		if raw == nil {
			raw = map[string]interface{}{}
		}
		return decode(func(ctx *cue.Context) (cue.Value, error) {
			v := ctx.Encode(raw)
			return v, v.Err()
		}, filename)
	default:
		return nil, errors.WithContext(
			errors.Newf(errors.CodeInvalidConfig, "unsupported configuration format %q", ext),
			"path", filename,
		)
	}
}

// EncodeYAML renders the configuration as YAML.
func (c *Config) EncodeYAML() ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.Encode(c)
	if err := v.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to encode configuration")
	}
	out, err := cueyaml.Encode(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to encode configuration as YAML")
	}
	return out, nil
}

func decode(build func(*cue.Context) (cue.Value, error), filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "embedded configuration schema is invalid")
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	data, err := build(ctx)
	if err != nil {
		return nil, validationError(err, "failed to compile configuration", filename)
	}

	unified := def.Unify(data)
	if err := unified.Validate(cue.Concrete(true), cue.Final(), cue.All()); err != nil {
		return nil, validationError(err, "configuration is invalid", filename)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, validationError(err, "failed to decode configuration", filename)
	}
	return &cfg, nil
}

func validationError(err error, msg, filename string) error {
	return errors.WrapWithContext(err, errors.CodeInvalidConfig, msg, map[string]interface{}{
		"path":    filename,
		"details": cueerrors.Details(err, nil),
	})
}
