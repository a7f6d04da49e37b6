// Package segment stores one opaque payload per file behind a fixed header
// so a torn or foreign file is detected before its contents are parsed.
//
// Layout (little endian):
//
//	0:4    magic 0x4E534958 ("NSIX")
//	4:8    format version
//	8:16   payload length
//	16:20  CRC32 (IEEE) of the payload
//	20:28  written-at, unix nanoseconds
//	28:64  reserved
//	64:    payload
package segment

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"
)

const (
	MagicBytes    uint32 = 0x4E534958
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
)

// Header is the decoded fixed-size prefix of a segment file.
type Header struct {
	Magic     uint32
	Version   uint32
	Length    uint64
	Checksum  uint32
	WrittenAt time.Time
}

func encodeHeader(h Header) []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint64(b[8:16], h.Length)
	binary.LittleEndian.PutUint32(b[16:20], h.Checksum)
	binary.LittleEndian.PutUint64(b[20:28], uint64(h.WrittenAt.UnixNano()))
	return b
}

// Write atomically replaces path with payload. It writes to path+".tmp",
// fsyncs, then renames, so readers see either the old file or the new one.
func Write(path string, payload []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating segment directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp segment file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	header := encodeHeader(Header{
		Magic:     MagicBytes,
		Version:   FormatVersion,
		Length:    uint64(len(payload)),
		Checksum:  crc32.ChecksumIEEE(payload),
		WrittenAt: time.Now(),
	})
	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		return fmt.Errorf("writing payload: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing segment file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing segment file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming segment file: %w", err)
	}
	committed = true
	return nil
}
