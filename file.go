package s3channel

import (
	"io"
	"io/fs"
	"path"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/errors"
)

// File adapts a WriteChannel to a write-only file handle. It adds no upload
// behavior of its own; every call is delegated to the channel and failures
// are reported as *fs.PathError.
type File struct {
	ch   WriteChannel
	name string
}

// NewFile wraps ch. The file name is "bucket/key".
func NewFile(ch WriteChannel) *File {
	s := ch.Session()
	return &File{ch: ch, name: path.Join(s.Bucket, s.Key)}
}

// Channel returns the wrapped channel.
func (f *File) Channel() WriteChannel { return f.ch }

// Name returns the name of the file as "bucket/key".
func (f *File) Name() string { return f.name }

// Read is not supported; the file is write-only.
func (f *File) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: f.name, Err: errors.ErrWriteOnly}
}

// ReadAt is not supported; the file is write-only.
func (f *File) ReadAt([]byte, int64) (int, error) {
	return 0, &fs.PathError{Op: "readat", Path: f.name, Err: errors.ErrWriteOnly}
}

// Write writes p at the current position.
func (f *File) Write(p []byte) (int, error) {
	n, err := f.ch.Write(p)
	return n, f.wrap("write", err)
}

// WriteAt writes p at off. Only channels with a delayed header support it,
// and only inside the header region.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	n, err := f.ch.WriteAt(p, off)
	return n, f.wrap("writeat", err)
}

// Seek sets the offset for the next Write.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	pos, err := f.ch.Seek(offset, whence)
	return pos, f.wrap("seek", err)
}

// Truncate extends the file with zeros up to size.
func (f *File) Truncate(size int64) error {
	return f.wrap("truncate", f.ch.Truncate(size))
}

// Sync is a no-op while the file is open. Data is only durable after Close.
func (f *File) Sync() error {
	if !f.ch.IsOpen() {
		return &fs.PathError{Op: "sync", Path: f.name, Err: fs.ErrClosed}
	}
	return nil
}

// Stat returns the current size of the file.
func (f *File) Stat() (fs.FileInfo, error) {
	return &fileInfo{
		name:    path.Base(f.name),
		size:    f.ch.Size(),
		modTime: time.Now(),
		mode:    0200,
	}, nil
}

// Close completes the upload.
func (f *File) Close() error {
	return f.wrap("close", f.ch.Close())
}

// Cancel aborts the upload without waiting.
func (f *File) Cancel() *Cancellation {
	return f.ch.Cancel()
}

func (f *File) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &fs.PathError{Op: op, Path: f.name, Err: err}
}

// fileInfo implements fs.FileInfo for an object being written.
type fileInfo struct {
	name    string
	size    int64
	modTime time.Time
	mode    fs.FileMode
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return fi.size }
func (fi *fileInfo) Mode() fs.FileMode  { return fi.mode }
func (fi *fileInfo) ModTime() time.Time { return fi.modTime }
func (fi *fileInfo) IsDir() bool        { return false }
func (fi *fileInfo) Sys() interface{}   { return nil }

// Compile-time interface checks.
var (
	_ io.WriteSeeker = (*File)(nil)
	_ io.WriterAt    = (*File)(nil)
	_ io.ReaderAt    = (*File)(nil)
	_ io.Closer      = (*File)(nil)
)
