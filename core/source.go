package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ByteSource provides random access to a container.
//
// Implementations exist for local files, in-memory buffers, range views
// and HTTP range requests. SourceID must return a stable identifier for the
// underlying content.
type ByteSource interface {
	io.ReaderAt
	Size() int64
	SourceID() string
}

// FileSource is a ByteSource backed by an open file.
// The caller owns the file handle and must Close it.
type FileSource struct {
	f    *os.File
	size int64
	id   string
}

// OpenFile opens the container at path.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path) //nolint:gosec // container paths come from the caller
	if err != nil {
		return nil, err
	}
	src, err := NewFileSource(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

// NewFileSource wraps an already open file. path names the file in the
// source identifier; it is made absolute when possible. The FileSource
// takes ownership of f.
func NewFileSource(f *os.File, path string) (*FileSource, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &FileSource{
		f:    f,
		size: info.Size(),
		id:   fmt.Sprintf("file:%s|size:%d|mod:%d", path, info.Size(), info.ModTime().UnixNano()),
	}, nil
}

// ReadAt implements io.ReaderAt.
func (s *FileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

// Size returns the file size at open time.
func (s *FileSource) Size() int64 {
	return s.size
}

// SourceID identifies the file by path, size and modification time.
func (s *FileSource) SourceID() string {
	return s.id
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}

// BytesSource is a ByteSource over an in-memory buffer.
type BytesSource struct {
	data []byte
	id   string
}

// NewBytesSource returns a ByteSource reading from data.
// The slice is retained; callers must not modify it afterwards.
func NewBytesSource(data []byte, id string) *BytesSource {
	return &BytesSource{data: data, id: id}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (s *BytesSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("read at %d: negative offset", off)
	}
	if off >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the length of the buffer.
func (s *BytesSource) Size() int64 {
	return int64(len(s.data))
}

// SourceID returns the identifier given at construction.
func (s *BytesSource) SourceID() string {
	return s.id
}

// Bytes returns the backing slice.
func (s *BytesSource) Bytes() []byte {
	return s.data
}

// readRegion reads exactly length bytes at off from src.
func readRegion(src ByteSource, off, length int64) ([]byte, error) {
	buf := make([]byte, length)
	n, err := src.ReadAt(buf, off)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("read %d bytes at %d: %w", length, off, err)
}
