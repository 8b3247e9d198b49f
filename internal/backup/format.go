package backup

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FormatVersion is the version written into new snapshot headers.
const FormatVersion = 1

// MaxDecompressedSize bounds the decompressed payload of a snapshot (1GB).
const MaxDecompressedSize = 1 << 30

const (
	filePrefix = "inflood-runs-"
	fileExt    = ".backup"
)

// Header is the plain JSON first line of a snapshot. The rest of the file
// is the gzip-compressed JSONL export of the runs.
type Header struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Checksum  string    `json:"checksum"` // sha256 of the compressed payload
	Runs      int       `json:"runs"`
}

func checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// write stores header and payload at path, creating its directory.
func write(path string, payload []byte, runs int, createdAt time.Time) (*Header, error) {
	header := &Header{
		Version:   FormatVersion,
		CreatedAt: createdAt,
		Checksum:  checksum(payload),
		Runs:      runs,
	}
	line, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	w := bufio.NewWriter(f)
	w.Write(line)
	w.WriteByte('\n')
	w.Write(payload)
	if err := w.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing backup: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("writing backup: %w", err)
	}
	return header, nil
}

// readHeader parses the first line of a snapshot.
func readHeader(r *bufio.Reader) (*Header, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading header line: %w", err)
	}
	var header Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &header); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported backup version %d", header.Version)
	}
	if !strings.HasPrefix(header.Checksum, "sha256:") {
		return nil, fmt.Errorf("unsupported checksum %q", header.Checksum)
	}
	return &header, nil
}

// ReadHeader reads the header of the snapshot at path without touching its
// payload.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return readHeader(bufio.NewReader(f))
}

// Verify checks the payload of the snapshot at path against its checksum.
func Verify(path string) (*Header, error) {
	header, _, err := verified(path)
	return header, err
}

func load(path string) (*Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header, err := readHeader(r)
	if err != nil {
		return nil, nil, err
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading payload: %w", err)
	}
	return header, payload, nil
}

// verified loads the snapshot at path and checks its checksum.
func verified(path string) (*Header, []byte, error) {
	header, payload, err := load(path)
	if err != nil {
		return nil, nil, err
	}
	if actual := checksum(payload); actual != header.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, actual)
	}
	return header, payload, nil
}

// read verifies the snapshot at path and returns its decompressed payload.
func read(path string) (*Header, io.ReadCloser, error) {
	header, payload, err := verified(path)
	if err != nil {
		return nil, nil, err
	}
	gz, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("opening payload: %w", err)
	}
	return header, &limitedReadCloser{r: io.LimitReader(gz, MaxDecompressedSize), c: gz}, nil
}

type limitedReadCloser struct {
	r io.Reader
	c io.Closer
}

func (l *limitedReadCloser) Read(p []byte) (int, error) { return l.r.Read(p) }
func (l *limitedReadCloser) Close() error               { return l.c.Close() }
