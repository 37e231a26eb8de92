package errors

import "errors"

// Kind classifies an error by how a caller is expected to react to it.
// Kinds are string-based for debuggability and natural log output.
type Kind string

const (
	// KindConfiguration indicates a missing or invalid setting detected at construction.
	KindConfiguration Kind = "CONFIGURATION"

	// KindCapacity indicates a local, synchronous usage error such as a header
	// overflow or the part limit. The channel stays usable.
	KindCapacity Kind = "CAPACITY"

	// KindUpload indicates a part upload exhausted its retries. The error is
	// latched and the upload is aborted.
	KindUpload Kind = "UPLOAD"

	// KindCompletion indicates the completion call failed. The upload is aborted.
	KindCompletion Kind = "COMPLETION"

	// KindCancellation indicates the abort call failed.
	KindCancellation Kind = "CANCELLATION"

	// KindState indicates an operation on a closed or cancelled channel, or an
	// operation the channel does not support.
	KindState Kind = "STATE"

	// KindStore indicates an error reported by the object store.
	KindStore Kind = "STORE"

	// KindUnknown indicates an unclassified error.
	KindUnknown Kind = "UNKNOWN"
)

var kindTable = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidConfig, KindConfiguration},
	{ErrInvalidBucketName, KindConfiguration},
	{ErrInvalidObjectKey, KindConfiguration},
	{ErrHeaderOverflow, KindCapacity},
	{ErrTooManyParts, KindCapacity},
	{ErrInvalidPosition, KindCapacity},
	{ErrTruncate, KindCapacity},
	{ErrUploadFailed, KindUpload},
	{ErrCompleteFailed, KindCompletion},
	{ErrAbortFailed, KindCancellation},
	{ErrClosed, KindState},
	{ErrCancelled, KindState},
	{ErrAlreadyCompleted, KindState},
	{ErrReadOnly, KindState},
	{ErrWriteOnly, KindState},
	{ErrNotSupported, KindState},
	{ErrObjectNotFound, KindStore},
	{ErrUploadNotFound, KindStore},
	{ErrAccessDenied, KindStore},
	{ErrInvalidRange, KindStore},
	{ErrInvalidPart, KindStore},
}

// KindOf returns the Kind of err. Wrapped errors are matched with errors.Is,
// and the outermost match in declaration order wins.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, entry := range kindTable {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindUnknown
}

// IsFatal reports whether err terminates the upload session.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindUpload, KindCompletion:
		return true
	default:
		return false
	}
}
