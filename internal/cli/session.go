package cli

import (
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jmgilman/simplefs/audit"
	"github.com/jmgilman/simplefs/backup"
	"github.com/jmgilman/simplefs/config"
	"github.com/jmgilman/simplefs/errors"
	"github.com/jmgilman/simplefs/logging"
	"github.com/jmgilman/simplefs/metrics"
	"github.com/jmgilman/simplefs/volume"
)

// session holds what one invocation builds from configuration and flags.
type session struct {
	env      Env
	cfg      *config.Config
	logger   *slog.Logger
	notifier volume.Notifier
	metrics  *metrics.Metrics
	vol      *volume.Volume
}

func (s *session) setup(c *cli.Context) error {
	cfg, err := loadConfig(s.env, c.String("config"))
	if err != nil {
		return err
	}
	applyFlags(c, cfg)

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return errors.Wrap(err, errors.CodeInvalidConfig, "invalid --log-level")
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return errors.Wrap(err, errors.CodeInvalidConfig, "invalid --log-format")
	}

	s.cfg = cfg
	s.logger = logging.New(logging.Config{Level: level, Format: format, Writer: s.env.Stderr})
	s.metrics = metrics.New()
	if cfg.Audit.Enabled {
		s.notifier = audit.New(cfg.Audit.Path, audit.WithFilesystem(s.env.FS), audit.WithClock(s.env.Now))
	} else {
		s.notifier = audit.Nop{}
	}

	s.logger.Debug("configuration loaded",
		"disk", cfg.Disk.Path,
		"allocator", cfg.Allocator,
		"audit", cfg.Audit.Enabled,
	)
	return nil
}

// teardown exports metrics while the volume is still open, then closes it.
// It also runs when setup failed.
func (s *session) teardown(*cli.Context) error {
	var err error
	if s.cfg != nil && s.cfg.Metrics.Textfile != "" {
		err = s.metrics.WriteToTextfile(s.cfg.Metrics.Textfile)
	}
	if s.vol != nil {
		if cerr := s.vol.Close(); cerr != nil && err == nil {
			err = cerr
		}
		s.vol = nil
	}
	return err
}

func loadConfig(env Env, path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(env.FS, path)
}

// applyFlags lets explicitly set flags and environment variables override
// the configuration file.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("disk") {
		cfg.Disk.Path = c.String("disk")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if c.IsSet("audit-log") {
		cfg.Audit.Path = c.String("audit-log")
	}
	if c.Bool("no-audit") {
		cfg.Audit.Enabled = false
	}
	if c.IsSet("metrics-file") {
		cfg.Metrics.Textfile = c.String("metrics-file")
	}
}

func (s *session) volumeOptions() ([]volume.Option, error) {
	alloc, err := volume.AllocatorByName(s.cfg.Allocator)
	if err != nil {
		return nil, err
	}
	return []volume.Option{
		volume.WithFilesystem(s.env.FS),
		volume.WithGeometry(s.cfg.VolumeGeometry()),
		volume.WithAllocator(alloc),
		volume.WithNotifier(s.notifier),
		volume.WithLogger(s.logger),
		volume.WithClock(s.env.Now),
	}, nil
}

// volume opens the configured disk once per invocation.
func (s *session) volume() (*volume.Volume, error) {
	if s.vol != nil {
		return s.vol, nil
	}
	opts, err := s.volumeOptions()
	if err != nil {
		return nil, err
	}
	vol, err := volume.Open(s.cfg.Disk.Path, opts...)
	if err != nil {
		return nil, err
	}
	return s.attach(vol)
}

func (s *session) format() (*volume.Volume, error) {
	opts, err := s.volumeOptions()
	if err != nil {
		return nil, err
	}
	vol, err := volume.Format(s.cfg.Disk.Path, opts...)
	if err != nil {
		return nil, err
	}
	return s.attach(vol)
}

// image opens the configured disk as a raw image for a restore.
func (s *session) image() (*volume.Volume, error) {
	opts, err := s.volumeOptions()
	if err != nil {
		return nil, err
	}
	vol, err := volume.OpenImage(s.cfg.Disk.Path, opts...)
	if err != nil {
		return nil, err
	}
	return s.attach(vol)
}

// discardImage removes a disk that image created for a restore that failed.
func (s *session) discardImage() {
	if s.vol == nil {
		return
	}
	path := s.vol.Path()
	if err := s.vol.Close(); err != nil {
		s.logger.Warn("failed to close disk image", "path", path, "error", err)
	}
	s.vol = nil
	if err := s.env.FS.Remove(path); err != nil {
		s.logger.Warn("failed to remove disk image", "path", path, "error", err)
	}
}

func (s *session) attach(vol *volume.Volume) (*volume.Volume, error) {
	s.vol = vol
	if s.cfg.Metrics.Textfile != "" {
		if err := s.metrics.WatchVolume(vol); err != nil {
			return nil, err
		}
	}
	return vol, nil
}

// backups builds the backup service from the configured targets: the backup
// directory always, and a bucket when one is configured.
func (s *session) backups() (*backup.Service, error) {
	targets := []backup.Target{backup.NewFileTarget(s.env.FS, s.cfg.Backup.Dir)}
	if m := s.cfg.Backup.MinIO; m != nil {
		t, err := backup.NewObjectTarget(backup.ObjectConfig{
			Endpoint:  m.Endpoint,
			Bucket:    m.Bucket,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			UseSSL:    m.UseSSL,
			Prefix:    m.Prefix,
		})
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return backup.New(targets, backup.WithNotifier(s.notifier), backup.WithLogger(s.logger))
}

// observe wraps an action so its outcome is counted under operation. With
// --json, a failure is written to stderr as an errors.ErrorResponse.
func (s *session) observe(operation string, fn cli.ActionFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		start := time.Now()
		err := fn(c)
		s.metrics.ObserveOperation(operation, start, err)
		if err != nil && c.Bool("json") {
			return reportJSON(c.App.ErrWriter, err)
		}
		return err
	}
}
