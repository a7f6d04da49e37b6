package segment

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"time"
)

var (
	// ErrCorrupt means the file exists but is not a valid segment.
	ErrCorrupt = errors.New("corrupt segment file")
)

// Read returns the payload stored at path. A missing file returns an error
// satisfying errors.Is(err, os.ErrNotExist); a bad header, truncated payload
// or checksum mismatch returns ErrCorrupt.
func Read(path string) ([]byte, Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Header{}, fmt.Errorf("reading segment file: %w", err)
	}
	if len(data) < HeaderSize {
		return nil, Header{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorrupt, len(data))
	}
	h := Header{
		Magic:     binary.LittleEndian.Uint32(data[0:4]),
		Version:   binary.LittleEndian.Uint32(data[4:8]),
		Length:    binary.LittleEndian.Uint64(data[8:16]),
		Checksum:  binary.LittleEndian.Uint32(data[16:20]),
		WrittenAt: time.Unix(0, int64(binary.LittleEndian.Uint64(data[20:28]))),
	}
	if h.Magic != MagicBytes {
		return nil, h, fmt.Errorf("%w: bad magic bytes %x", ErrCorrupt, h.Magic)
	}
	if h.Version != FormatVersion {
		return nil, h, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, h.Version)
	}
	payload := data[HeaderSize:]
	if uint64(len(payload)) != h.Length {
		return nil, h, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrCorrupt, len(payload), h.Length)
	}
	if sum := crc32.ChecksumIEEE(payload); sum != h.Checksum {
		return nil, h, fmt.Errorf("%w: checksum %08x, want %08x", ErrCorrupt, sum, h.Checksum)
	}
	return payload, h, nil
}
