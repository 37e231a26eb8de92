// Package memstore provides an in-memory s3types.Store.
//
// It enforces the multipart rules an S3 backend applies at completion time:
// parts listed in ascending order, matching ETags, and a minimum size for
// every part but the last. It is intended for tests and local tooling.
package memstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
)

// Stats counts the requests a Store has served.
type Stats struct {
	CreateMultipartUpload   int
	UploadPart              int
	CompleteMultipartUpload int
	AbortMultipartUpload    int
	HeadObject              int
	GetObjectRange          int
}

type object struct {
	data        []byte
	etag        string
	contentType string
	modified    time.Time
}

type storedPart struct {
	data []byte
	etag string
}

type multipartUpload struct {
	bucket string
	key    string
	opts   s3types.CreateOptions
	parts  map[int32]storedPart
}

// Store is an in-memory object store. It is safe for concurrent use.
type Store struct {
	// UploadPartHook, when set, runs before a part is stored. A non-nil
	// error fails the request.
	UploadPartHook func(session s3types.Session, partNumber int32, data []byte) error

	// CompleteHook, when set, runs before an upload is completed.
	CompleteHook func(session s3types.Session, parts []s3types.CompletedPart) error

	// AbortHook, when set, runs before an upload is aborted.
	AbortHook func(session s3types.Session) error

	minPartSize int

	mu      sync.Mutex
	objects map[string]object
	uploads map[string]*multipartUpload
	stats   Stats
}

// Option configures a Store.
type Option func(*Store)

// WithMinPartSize sets the minimum size of non-final parts. Default is 5 MiB.
func WithMinPartSize(size int) Option {
	return func(s *Store) {
		s.minPartSize = size
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		minPartSize: s3types.MinPartSize,
		objects:     make(map[string]object),
		uploads:     make(map[string]*multipartUpload),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func objectKey(bucket, key string) string {
	return bucket + "/" + key
}

func etagOf(data []byte) string {
	return fmt.Sprintf(`"%x"`, md5.Sum(data))
}

// PutObject stores data as a complete object.
func (s *Store) PutObject(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectKey(bucket, key)] = object{
		data:     bytes.Clone(data),
		etag:     etagOf(data),
		modified: time.Now(),
	}
}

// Object returns a copy of a stored object.
func (s *Store) Object(bucket, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[objectKey(bucket, key)]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}

// InProgress returns the number of uploads neither completed nor aborted.
func (s *Store) InProgress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

// PartNumbers returns the numbers of the parts stored for an in-progress upload.
func (s *Store) PartNumbers(uploadID string) []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uploads[uploadID]
	if !ok {
		return nil
	}
	numbers := make([]int32, 0, len(u.parts))
	for n := range u.parts {
		numbers = append(numbers, n)
	}
	return numbers
}

// Stats returns the request counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// CreateMultipartUpload initiates an upload with a random id.
func (s *Store) CreateMultipartUpload(
	ctx context.Context,
	bucket, key string,
	opts s3types.CreateOptions,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.CreateMultipartUpload++

	id := uuid.NewString()
	s.uploads[id] = &multipartUpload{
		bucket: bucket,
		key:    key,
		opts:   opts,
		parts:  make(map[int32]storedPart),
	}
	return id, nil
}

// UploadPart stores a copy of data as part partNumber.
func (s *Store) UploadPart(
	ctx context.Context,
	session s3types.Session,
	partNumber int32,
	data []byte,
) (string, error) {
	s.mu.Lock()
	s.stats.UploadPart++
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.UploadPartHook != nil {
		if err := s.UploadPartHook(session, partNumber, data); err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.lookup(session)
	if err != nil {
		return "", err
	}
	if partNumber < 1 || partNumber > s3types.MaxParts {
		return "", fmt.Errorf("%w: part number %d out of range", errors.ErrInvalidPart, partNumber)
	}

	etag := etagOf(data)
	u.parts[partNumber] = storedPart{data: bytes.Clone(data), etag: etag}
	return etag, nil
}

// CompleteMultipartUpload assembles the object from parts.
func (s *Store) CompleteMultipartUpload(
	ctx context.Context,
	session s3types.Session,
	parts []s3types.CompletedPart,
) error {
	s.mu.Lock()
	s.stats.CompleteMultipartUpload++
	s.mu.Unlock()

	if s.CompleteHook != nil {
		if err := s.CompleteHook(session, parts); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.lookup(session)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		return fmt.Errorf("%w: no parts", errors.ErrInvalidPart)
	}

	var buf bytes.Buffer
	for i, p := range parts {
		if i > 0 && p.PartNumber <= parts[i-1].PartNumber {
			return fmt.Errorf("%w: parts not in ascending order", errors.ErrInvalidPart)
		}
		stored, ok := u.parts[p.PartNumber]
		if !ok || stored.etag != p.ETag {
			return fmt.Errorf("%w: part %d not found", errors.ErrInvalidPart, p.PartNumber)
		}
		if i < len(parts)-1 && len(stored.data) < s.minPartSize {
			return fmt.Errorf("%w: part %d is smaller than the minimum allowed size", errors.ErrInvalidPart, p.PartNumber)
		}
		buf.Write(stored.data)
	}

	data := buf.Bytes()
	s.objects[objectKey(u.bucket, u.key)] = object{
		data:        data,
		etag:        fmt.Sprintf(`"%x-%d"`, md5.Sum(data), len(parts)),
		contentType: u.opts.ContentType,
		modified:    time.Now(),
	}
	delete(s.uploads, session.UploadID)
	return nil
}

// AbortMultipartUpload discards the upload and its parts.
func (s *Store) AbortMultipartUpload(ctx context.Context, session s3types.Session) error {
	s.mu.Lock()
	s.stats.AbortMultipartUpload++
	s.mu.Unlock()

	if s.AbortHook != nil {
		if err := s.AbortHook(session); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(session); err != nil {
		return err
	}
	delete(s.uploads, session.UploadID)
	return nil
}

// HeadObject returns the size and metadata of an object.
func (s *Store) HeadObject(ctx context.Context, bucket, key string) (s3types.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.HeadObject++

	obj, ok := s.objects[objectKey(bucket, key)]
	if !ok {
		return s3types.ObjectInfo{}, errors.ErrObjectNotFound
	}
	return s3types.ObjectInfo{
		Size:         int64(len(obj.data)),
		ETag:         obj.etag,
		ContentType:  obj.contentType,
		LastModified: obj.modified,
	}, nil
}

// GetObjectRange returns bytes [start, end] of an object, clipped at its end.
func (s *Store) GetObjectRange(
	ctx context.Context,
	bucket, key string,
	start, end int64,
) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.GetObjectRange++

	obj, ok := s.objects[objectKey(bucket, key)]
	if !ok {
		return nil, errors.ErrObjectNotFound
	}
	size := int64(len(obj.data))
	if start < 0 || start >= size || end < start {
		return nil, fmt.Errorf("%w: bytes=%d-%d of %d", errors.ErrInvalidRange, start, end, size)
	}
	end = min(end, size-1)
	return io.NopCloser(bytes.NewReader(bytes.Clone(obj.data[start : end+1]))), nil
}

func (s *Store) lookup(session s3types.Session) (*multipartUpload, error) {
	u, ok := s.uploads[session.UploadID]
	if !ok || u.bucket != session.Bucket || u.key != session.Key {
		return nil, fmt.Errorf("%w: %s", errors.ErrUploadNotFound, session.UploadID)
	}
	return u, nil
}

var _ s3types.Store = (*Store)(nil)
