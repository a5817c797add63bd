// Package backup copies whole volume images to and from backup targets.
//
// A backup is a byte-identical copy of the entire backing extent, metadata
// region included. Restoring overwrites the extent in place; the stored image
// must have exactly the extent's size.
package backup

import (
	"context"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmgilman/simplefs/errors"
	"github.com/jmgilman/simplefs/logging"
	"github.com/jmgilman/simplefs/volume"
)

// Image is a fixed-size random-access byte range, typically
// (*volume.Volume).Extent().
type Image interface {
	io.ReaderAt
	io.WriterAt
	Size() int64
}

// Target stores named images.
type Target interface {
	// Put stores size bytes read from r under name, replacing any previous
	// image with that name.
	Put(ctx context.Context, name string, r io.Reader, size int64) error

	// Get opens the image stored under name and reports its size. It fails
	// with errors.CodeNotFound when there is none.
	Get(ctx context.Context, name string) (io.ReadCloser, int64, error)

	// String describes the target in log lines.
	String() string
}

// Service writes backups to one or more targets.
type Service struct {
	targets  []Target
	notifier volume.Notifier
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier records successful backups and restores, typically in the
// audit log.
func WithNotifier(n volume.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Service over targets. Backups go to every target; restores
// read from the first target holding the image.
func New(targets []Target, opts ...Option) (*Service, error) {
	if len(targets) == 0 {
		return nil, errors.New(errors.CodeInvalidConfig, "at least one backup target is required")
	}
	s := &Service{targets: targets, logger: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Backup streams the whole image to every target concurrently. It returns
// the first error encountered; other uploads are cancelled.
func (s *Service) Backup(ctx context.Context, img Image, name string) error {
	start := time.Now()
	size := img.Size()

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range s.targets {
		g.Go(func() error {
			r := io.NewSectionReader(img, 0, size)
			if err := t.Put(gctx, name, r, size); err != nil {
				return errors.WithContextMap(err, map[string]interface{}{"target": t.String(), "backup": name})
			}
			return nil
		})
	}
	err := g.Wait()
	logging.LogOperation(s.logger, "backup", time.Since(start), err, "backup", name, "size", size, "targets", len(s.targets))
	if err != nil {
		return err
	}

	s.notify("backup taken: " + name)
	return nil
}

// Restore overwrites the image with the backup called name. Targets are tried
// in order; a target without the backup is skipped. A stored image whose size
// differs from the image is rejected with errors.CodeInvalidArgument before
// anything is written.
func (s *Service) Restore(ctx context.Context, img Image, name string) error {
	start := time.Now()
	err := s.restore(ctx, img, name)
	logging.LogOperation(s.logger, "restore", time.Since(start), err, "backup", name)
	if err != nil {
		return err
	}

	s.notify("backup restored: " + name)
	return nil
}

func (s *Service) restore(ctx context.Context, img Image, name string) error {
	var lastErr error
	for _, t := range s.targets {
		rc, size, err := t.Get(ctx, name)
		if errors.HasCode(err, errors.CodeNotFound) {
			lastErr = err
			continue
		}
		if err != nil {
			return errors.WithContext(err, "target", t.String())
		}
		defer rc.Close()

		if size != img.Size() {
			return errors.WithContextMap(
				errors.New(errors.CodeInvalidArgument, "backup size does not match volume capacity"),
				map[string]interface{}{"backup": name, "size": size, "capacity": img.Size(), "target": t.String()},
			)
		}

		n, err := io.Copy(io.NewOffsetWriter(img, 0), io.LimitReader(rc, size))
		if err != nil {
			return errors.WrapWithContext(err, errors.CodeIO, "failed to restore backup",
				map[string]interface{}{"backup": name, "target": t.String(), "copied": n})
		}
		if n != size {
			return errors.WithContextMap(
				errors.New(errors.CodeIO, "backup ended early"),
				map[string]interface{}{"backup": name, "target": t.String(), "copied": n, "size": size},
			)
		}
		if syncer, ok := img.(interface{ Sync() error }); ok {
			return syncer.Sync()
		}
		return nil
	}
	return lastErr
}

func (s *Service) notify(operation string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(operation); err != nil {
		s.logger.Warn("failed to record operation", "operation", operation, "error", err)
	}
}
