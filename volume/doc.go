// Package volume implements a single-volume flat file store on one
// pre-allocated backing extent.
//
// The extent is split into a fixed metadata region and a data region. The
// metadata region holds a 32-bit record count followed by a fixed number of
// file records; every file occupies one contiguous range of the data region.
//
// Layout (little-endian, packed):
//
//	[0, 4)            record count (int32)
//	[4, 4+N*117)      N records:
//	                    valid      1 byte
//	                    name       100 bytes, NUL padded
//	                    size       uint32
//	                    start      uint32, absolute offset
//	                    created_at int64 Unix seconds
//	[M, C)            data region
//
// Every operation reloads the table from the extent, validates, performs its
// data I/O and writes the whole table back. Nothing is cached between calls,
// so a Volume reflects whatever is on disk at the start of each call.
//
// Space is handed out by a bump allocator by default. Deleting or rewriting a
// file abandons its old range; Defragment compacts live files to the start of
// the data region to reclaim it.
//
// A Volume is not safe for concurrent use.
//
// Basic usage:
//
//	vol, err := volume.Format("disk.sim")
//	if err != nil {
//	    return err
//	}
//	defer vol.Close()
//
//	if err := vol.Create("notes.txt"); err != nil {
//	    return err
//	}
//	if err := vol.Write("notes.txt", []byte("hello")); err != nil {
//	    return err
//	}
//
// Testing with an in-memory filesystem:
//
//	vol, err := volume.Format("disk.sim", volume.WithFilesystem(memfs.New()))
package volume
