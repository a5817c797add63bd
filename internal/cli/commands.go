package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/jmgilman/simplefs/errors"
	"github.com/jmgilman/simplefs/inspect"
	"github.com/jmgilman/simplefs/volume"
)

func (s *session) commands() []*cli.Command {
	jsonFlag := func() cli.Flag { return &cli.BoolFlag{Name: "json", Usage: "print JSON"} }

	return []*cli.Command{
		{
			Name:   "format",
			Usage:  "create or wipe the disk image",
			Action: s.observe("format", s.formatAction),
		},
		{
			Name:      "create",
			Usage:     "create an empty file",
			ArgsUsage: "NAME",
			Action:    s.observe("create", s.createAction),
		},
		{
			Name:      "rm",
			Usage:     "delete a file",
			ArgsUsage: "NAME",
			Action:    s.observe("delete", s.deleteAction),
		},
		{
			Name:      "write",
			Usage:     "replace the content of a file",
			ArgsUsage: "NAME [DATA]",
			Description: "DATA is written as given. Without DATA, or when DATA is \"-\", " +
				"the content is read from standard input.",
			Action: s.observe("write", s.writeAction),
		},
		{
			Name:      "read",
			Usage:     "print part of a file",
			ArgsUsage: "NAME",
			Flags: []cli.Flag{
				&cli.UintFlag{Name: "offset", Usage: "first byte to read"},
				&cli.UintFlag{Name: "length", Usage: "bytes to read (default: to end of file)"},
			},
			Action: s.observe("read", s.readAction),
		},
		{
			Name:   "ls",
			Usage:  "list files",
			Flags:  []cli.Flag{jsonFlag()},
			Action: s.observe("list", s.listAction),
		},
		{
			Name:      "rename",
			Usage:     "rename a file",
			ArgsUsage: "OLD NEW",
			Action:    s.observe("rename", s.renameAction(false)),
		},
		{
			Name:      "mv",
			Usage:     "move a file (same as rename)",
			ArgsUsage: "OLD NEW",
			Action:    s.observe("move", s.renameAction(true)),
		},
		{
			Name:      "exists",
			Usage:     "report whether a file exists",
			ArgsUsage: "NAME",
			Action:    s.observe("exists", s.existsAction),
		},
		{
			Name:      "size",
			Usage:     "print the size of a file in bytes",
			ArgsUsage: "NAME",
			Action:    s.observe("size", s.sizeAction),
		},
		{
			Name:      "append",
			Usage:     "append data to a file",
			ArgsUsage: "NAME [DATA]",
			Description: "Without DATA, or when DATA is \"-\", the data is read from " +
				"standard input.",
			Action: s.observe("append", s.appendAction),
		},
		{
			Name:      "truncate",
			Usage:     "shrink a file",
			ArgsUsage: "NAME SIZE",
			Action:    s.observe("truncate", s.truncateAction),
		},
		{
			Name:      "cp",
			Usage:     "copy a file",
			ArgsUsage: "SRC DST",
			Action:    s.observe("copy", s.copyAction),
		},
		{
			Name:   "defrag",
			Usage:  "compact live files to the start of the data region",
			Action: s.observe("defragment", s.defragAction),
		},
		{
			Name:   "check",
			Usage:  "verify that every file lies inside the data region",
			Flags:  []cli.Flag{jsonFlag()},
			Action: s.observe("check", s.checkAction),
		},
		{
			Name:      "backup",
			Usage:     "copy the whole disk image to the backup targets",
			ArgsUsage: "NAME",
			Action:    s.observe("backup", s.backupAction),
		},
		{
			Name:      "restore",
			Usage:     "overwrite the disk image with a backup",
			ArgsUsage: "NAME",
			Action:    s.observe("restore", s.restoreAction),
		},
		{
			Name:      "cat",
			Usage:     "print a file",
			ArgsUsage: "NAME",
			Action:    s.observe("cat", s.catAction),
		},
		{
			Name:      "diff",
			Usage:     "compare two files",
			ArgsUsage: "A B",
			Flags:     []cli.Flag{jsonFlag()},
			Action:    s.observe("diff", s.diffAction),
		},
		{
			Name:   "df",
			Usage:  "show space usage",
			Flags:  []cli.Flag{jsonFlag()},
			Action: s.observe("usage", s.usageAction),
		},
		{
			Name:      "stat",
			Usage:     "show the metadata record of a file",
			ArgsUsage: "NAME",
			Flags:     []cli.Flag{jsonFlag()},
			Action:    s.observe("stat", s.statAction),
		},
		{
			Name:   "config",
			Usage:  "print the effective configuration as YAML",
			Action: s.configAction,
		},
	}
}

func (s *session) formatAction(c *cli.Context) error {
	if err := expectArgs(c, 0); err != nil {
		return err
	}
	if _, err := s.format(); err != nil {
		return err
	}
	return s.printf(c, "formatted %s\n", s.cfg.Disk.Path)
}

func (s *session) createAction(c *cli.Context) error {
	return s.withName(c, func(vol *volume.Volume, name string) error {
		if err := vol.Create(name); err != nil {
			return err
		}
		return s.printf(c, "created %s\n", name)
	})
}

func (s *session) deleteAction(c *cli.Context) error {
	return s.withName(c, func(vol *volume.Volume, name string) error {
		if err := vol.Delete(name); err != nil {
			return err
		}
		return s.printf(c, "deleted %s\n", name)
	})
}

func (s *session) writeAction(c *cli.Context) error {
	name, data, err := s.nameAndData(c)
	if err != nil {
		return err
	}
	vol, err := s.volume()
	if err != nil {
		return err
	}
	if err := vol.Write(name, data); err != nil {
		return err
	}
	return s.printf(c, "wrote %d bytes to %s\n", len(data), name)
}

func (s *session) appendAction(c *cli.Context) error {
	name, data, err := s.nameAndData(c)
	if err != nil {
		return err
	}
	vol, err := s.volume()
	if err != nil {
		return err
	}
	if err := vol.Append(name, data); err != nil {
		return err
	}
	return s.printf(c, "appended %d bytes to %s\n", len(data), name)
}

func (s *session) readAction(c *cli.Context) error {
	return s.withName(c, func(vol *volume.Volume, name string) error {
		offset, err := toUint32(c.Uint("offset"), "offset")
		if err != nil {
			return err
		}
		length, err := toUint32(c.Uint("length"), "length")
		if err != nil {
			return err
		}
		if !c.IsSet("length") {
			size, err := vol.Size(name)
			if err != nil {
				return err
			}
			if offset > size {
				return errors.WithContextMap(
					errors.New(errors.CodeOutOfRange, "offset past end of file"),
					map[string]interface{}{"file": name, "offset": offset, "size": size},
				)
			}
			length = size - offset
		}

		data, err := vol.Read(name, offset, length)
		if err != nil {
			return err
		}
		return s.write(c, append(data, '\n'))
	})
}

func (s *session) listAction(c *cli.Context) error {
	if err := expectArgs(c, 0); err != nil {
		return err
	}
	vol, err := s.volume()
	if err != nil {
		return err
	}
	files, err := vol.List()
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return s.printJSON(c, files)
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tCREATED")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%d\t%s\n", f.Name, f.Size, f.CreatedAt.Format(time.DateTime))
	}
	return flush(w)
}

func (s *session) renameAction(move bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := expectArgs(c, 2); err != nil {
			return err
		}
		oldName, newName := c.Args().Get(0), c.Args().Get(1)
		vol, err := s.volume()
		if err != nil {
			return err
		}
		if move {
			err = vol.Move(oldName, newName)
		} else {
			err = vol.Rename(oldName, newName)
		}
		if err != nil {
			return err
		}
		return s.printf(c, "renamed %s to %s\n", oldName, newName)
	}
}

func (s *session) existsAction(c *cli.Context) error {
	return s.withName(c, func(vol *volume.Volume, name string) error {
		ok, err := vol.Exists(name)
		if err != nil {
			return err
		}
		if ok {
			return s.printf(c, "%s exists\n", name)
		}
		return s.printf(c, "%s does not exist\n", name)
	})
}

func (s *session) sizeAction(c *cli.Context) error {
	return s.withName(c, func(vol *volume.Volume, name string) error {
		size, err := vol.Size(name)
		if err != nil {
			return err
		}
		return s.printf(c, "%d\n", size)
	})
}

func (s *session) truncateAction(c *cli.Context) error {
	if err := expectArgs(c, 2); err != nil {
		return err
	}
	name := c.Args().Get(0)
	size, err := strconv.ParseUint(c.Args().Get(1), 10, 32)
	if err != nil {
		return errors.WrapWithContext(err, errors.CodeInvalidArgument, "invalid size",
			map[string]interface{}{"size": c.Args().Get(1)})
	}
	vol, err := s.volume()
	if err != nil {
		return err
	}
	if err := vol.Truncate(name, uint32(size)); err != nil {
		return err
	}
	return s.printf(c, "truncated %s to %d bytes\n", name, size)
}

func (s *session) copyAction(c *cli.Context) error {
	if err := expectArgs(c, 2); err != nil {
		return err
	}
	src, dst := c.Args().Get(0), c.Args().Get(1)
	vol, err := s.volume()
	if err != nil {
		return err
	}
	if err := vol.Copy(src, dst); err != nil {
		return err
	}
	return s.printf(c, "copied %s to %s\n", src, dst)
}

func (s *session) defragAction(c *cli.Context) error {
	if err := expectArgs(c, 0); err != nil {
		return err
	}
	vol, err := s.volume()
	if err != nil {
		return err
	}
	stats, err := vol.Defragment()
	if err != nil {
		return err
	}
	return s.printf(c, "moved %d files (%s), reclaimed %s\n",
		stats.Moved, humanize.IBytes(stats.BytesMoved), humanize.IBytes(stats.Reclaimed))
}

func (s *session) checkAction(c *cli.Context) error {
	if err := expectArgs(c, 0); err != nil {
		return err
	}
	vol, err := s.volume()
	if err != nil {
		return err
	}
	report, checkErr := vol.Check()
	if checkErr != nil && !errors.HasCode(checkErr, errors.CodeViolation) {
		return checkErr
	}

	if c.Bool("json") {
		if err := s.printJSON(c, report); err != nil {
			return err
		}
		return checkErr
	}

	for _, v := range report.Violations {
		if err := s.printf(c, "slot %d: %s: %s (start %d, size %d)\n", v.Slot, v.Name, v.Reason, v.Start, v.Size); err != nil {
			return err
		}
	}
	if checkErr != nil {
		return checkErr
	}
	return s.printf(c, "checked %d files: ok\n", report.Checked)
}

func (s *session) backupAction(c *cli.Context) error {
	return s.withName(c, func(vol *volume.Volume, name string) error {
		svc, err := s.backups()
		if err != nil {
			return err
		}
		if err := svc.Backup(c.Context, vol.Extent(), name); err != nil {
			return err
		}
		return s.printf(c, "backed up %s to %s\n", s.cfg.Disk.Path, name)
	})
}

// restoreAction works on a missing or damaged disk too: the image is created
// or resized before the backup is copied over it.
func (s *session) restoreAction(c *cli.Context) error {
	if err := expectArgs(c, 1); err != nil {
		return err
	}
	name := c.Args().First()
	svc, err := s.backups()
	if err != nil {
		return err
	}

	_, statErr := s.env.FS.Stat(s.cfg.Disk.Path)
	vol, err := s.image()
	if err != nil {
		return err
	}
	if err := svc.Restore(c.Context, vol.Extent(), name); err != nil {
		if os.IsNotExist(statErr) {
			s.discardImage()
		}
		return err
	}
	return s.printf(c, "restored %s from %s\n", s.cfg.Disk.Path, name)
}

func (s *session) catAction(c *cli.Context) error {
	return s.withName(c, func(vol *volume.Volume, name string) error {
		return inspect.New(vol, s.notifier, inspect.WithLogger(s.logger)).Cat(c.App.Writer, name)
	})
}

func (s *session) diffAction(c *cli.Context) error {
	if err := expectArgs(c, 2); err != nil {
		return err
	}
	a, b := c.Args().Get(0), c.Args().Get(1)
	vol, err := s.volume()
	if err != nil {
		return err
	}
	res, err := inspect.New(vol, s.notifier, inspect.WithLogger(s.logger)).Diff(a, b)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return s.printJSON(c, res)
	}

	switch res.Outcome {
	case inspect.SizeMismatch:
		return s.printf(c, "sizes differ: %s is %d bytes, %s is %d bytes\n", a, res.SizeA, b, res.SizeB)
	case inspect.ContentMismatch:
		return s.printf(c, "%s and %s differ at byte %d\n", a, b, res.Offset)
	default:
		return s.printf(c, "%s and %s are identical\n", a, b)
	}
}

func (s *session) usageAction(c *cli.Context) error {
	if err := expectArgs(c, 0); err != nil {
		return err
	}
	vol, err := s.volume()
	if err != nil {
		return err
	}
	u, err := vol.Usage()
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return s.printJSON(c, u)
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "capacity\t%s\n", humanize.IBytes(u.Capacity))
	fmt.Fprintf(w, "metadata\t%s\n", humanize.IBytes(u.MetadataSize))
	fmt.Fprintf(w, "live\t%s\n", humanize.IBytes(u.LiveBytes))
	fmt.Fprintf(w, "garbage\t%s\n", humanize.IBytes(u.Garbage))
	fmt.Fprintf(w, "free\t%s\n", humanize.IBytes(u.Free))
	fmt.Fprintf(w, "files\t%d/%d\n", u.Files, u.Slots)
	return flush(w)
}

func (s *session) statAction(c *cli.Context) error {
	return s.withName(c, func(vol *volume.Volume, name string) error {
		r, err := vol.Stat(name)
		if err != nil {
			return err
		}
		if c.Bool("json") {
			return s.printJSON(c, struct {
				Name      string    `json:"name"`
				Size      uint32    `json:"size"`
				Start     uint32    `json:"start"`
				CreatedAt time.Time `json:"created_at"`
			}{r.Name, r.Size, r.Start, r.CreatedAt})
		}

		w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "name\t%s\n", r.Name)
		fmt.Fprintf(w, "size\t%d\n", r.Size)
		fmt.Fprintf(w, "start\t%d\n", r.Start)
		fmt.Fprintf(w, "created\t%s\n", r.CreatedAt.Format(time.DateTime))
		return flush(w)
	})
}

func (s *session) configAction(c *cli.Context) error {
	if err := expectArgs(c, 0); err != nil {
		return err
	}
	out, err := s.cfg.EncodeYAML()
	if err != nil {
		return err
	}
	return s.write(c, out)
}

// withName runs fn with the opened volume and the single NAME argument.
func (s *session) withName(c *cli.Context, fn func(*volume.Volume, string) error) error {
	if err := expectArgs(c, 1); err != nil {
		return err
	}
	vol, err := s.volume()
	if err != nil {
		return err
	}
	return fn(vol, c.Args().First())
}

// nameAndData returns NAME and the data argument, reading standard input
// when the data argument is absent or "-".
func (s *session) nameAndData(c *cli.Context) (string, []byte, error) {
	switch c.NArg() {
	case 1:
	case 2:
		if arg := c.Args().Get(1); arg != "-" {
			return c.Args().First(), []byte(arg), nil
		}
	default:
		return "", nil, usageError(c)
	}

	data, err := io.ReadAll(c.App.Reader)
	if err != nil {
		return "", nil, errors.Wrap(err, errors.CodeIO, "failed to read standard input")
	}
	return c.Args().First(), data, nil
}

func expectArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return usageError(c)
	}
	return nil
}

func usageError(c *cli.Context) error {
	usage := "usage: simplefs " + c.Command.Name
	if c.Command.ArgsUsage != "" {
		usage += " " + c.Command.ArgsUsage
	}
	return errors.New(errors.CodeInvalidArgument, usage)
}

func toUint32(v uint, flag string) (uint32, error) {
	if uint64(v) > uint64(^uint32(0)) {
		return 0, errors.WithContext(errors.New(errors.CodeInvalidArgument, "value does not fit in 32 bits"), "flag", flag)
	}
	return uint32(v), nil
}

func (s *session) printf(c *cli.Context, format string, args ...any) error {
	if _, err := fmt.Fprintf(c.App.Writer, format, args...); err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to write output")
	}
	return nil
}

func (s *session) write(c *cli.Context, p []byte) error {
	if _, err := c.App.Writer.Write(p); err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to write output")
	}
	return nil
}

func (s *session) printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to write output")
	}
	return nil
}

func flush(w *tabwriter.Writer) error {
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to write output")
	}
	return nil
}
