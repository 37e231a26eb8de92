package testutil

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// GenerateRandomData returns size pseudo-random bytes.
func GenerateRandomData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(rand.Intn(256))
	}
	return data
}

// GenerateSequentialData returns size bytes where byte i is i mod 251, so a
// misplaced part shows up as a content mismatch.
func GenerateSequentialData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

// GenerateTestKey returns a unique object key under prefix.
func GenerateTestKey(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return fmt.Sprintf("%sobject-%d-%d", prefix, time.Now().UnixNano(), rand.Int63n(100000))
}

// GenerateTestBucketName returns a DNS-compliant bucket name starting with prefix.
func GenerateTestBucketName(prefix string) string {
	name := strings.ReplaceAll(strings.ToLower(prefix), "_", "-")
	name = fmt.Sprintf("%s-%d-%d", name, time.Now().Unix(), rand.Int31n(10000))
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}

// CalculateETag returns the quoted MD5 ETag S3 assigns to a single part.
func CalculateETag(data []byte) string {
	return fmt.Sprintf(`"%x"`, md5.Sum(data))
}

// CreateHeadObjectOutput builds a HeadObject response for an object of size bytes.
func CreateHeadObjectOutput(size int64, lastModified time.Time, contentType string) *s3.HeadObjectOutput {
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(size),
		LastModified:  aws.Time(lastModified),
		ContentType:   aws.String(contentType),
		ETag:          aws.String(CalculateETag([]byte("head"))),
	}
}

// CreateGetObjectOutput builds a GetObject response streaming data.
func CreateGetObjectOutput(data []byte, contentType string) *s3.GetObjectOutput {
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		ETag:          aws.String(CalculateETag(data)),
	}
}

// RangeReader returns data[start:end+1] clipped to data, matching an
// inclusive HTTP range request.
func RangeReader(data []byte, start, end int64) io.ReadCloser {
	size := int64(len(data))
	start = min(start, size)
	end = min(end, size-1)
	if end < start {
		return io.NopCloser(bytes.NewReader(nil))
	}
	return io.NopCloser(bytes.NewReader(data[start : end+1]))
}
