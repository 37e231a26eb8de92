// Package s3channel exposes S3 multipart uploads and ranged downloads as
// byte-stream channels with file-like position, size and truncate semantics.
//
// Writers turn arbitrary Write calls into ordered parts of at least 5 MiB,
// upload them concurrently on a bounded executor with per-part retries, and
// complete the upload on Close. Any failure aborts the upload exactly once.
// A HeaderWriter additionally holds back part 1 so a header can be written
// after the body.
//
// Readers serve arbitrary-offset reads with one ranged request per read, or
// through a sliding cache window with BufferedReader.
//
// The object store is pluggable through s3types.Store. The store/awss3,
// store/miniostore and store/memstore packages provide implementations for
// the AWS SDK, MinIO and tests.
//
// Example usage:
//
//	store, err := awss3.New(ctx)
//	if err != nil {
//	    return err
//	}
//
//	w, err := s3channel.Create(ctx, store, "my-bucket", "path/file.bin",
//	    s3channel.WithConcurrency(4),
//	    s3channel.WithRetries(3),
//	)
//	if err != nil {
//	    return err
//	}
//	if _, err := io.Copy(w, src); err != nil {
//	    w.Cancel()
//	    return err
//	}
//	return w.Close()
package s3channel
