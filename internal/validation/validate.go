// Package validation provides input validation for initiating multipart uploads.
//
// Writers opened on an existing session only check that names are present;
// these rules apply when the module itself starts a new upload.
package validation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/s3channel/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3channel/s3types"
)

var (
	bucketPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)
	ipPattern     = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)
	mimePattern   = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-+.]*\/[a-zA-Z0-9][a-zA-Z0-9\-+.]*(\s*;.*)?$`)
)

// ValidateBucketName validates that a bucket name is DNS-compliant according to S3 rules.
// Returns ErrInvalidBucketName if the bucket name is invalid.
func ValidateBucketName(bucket string) error {
	var msg string
	switch {
	case bucket == "":
		msg = "bucket name cannot be empty"
	case len(bucket) < 3 || len(bucket) > 63:
		msg = "bucket name must be between 3 and 63 characters long"
	case !bucketPattern.MatchString(bucket):
		msg = "bucket name can only contain lowercase letters, numbers, dots, and hyphens, and must start and end with a letter or number"
	case ipPattern.MatchString(bucket):
		msg = "bucket name cannot be formatted as an IP address"
	case strings.Contains(bucket, ".."), strings.Contains(bucket, ".-"), strings.Contains(bucket, "-."):
		msg = "bucket name cannot contain adjacent periods or a period next to a hyphen"
	default:
		return nil
	}

	return errors.NewError("validateBucketName", errors.ErrInvalidBucketName).
		WithBucket(bucket).
		WithMessage(msg)
}

// ValidateObjectKey validates that an object key is valid according to S3 rules.
func ValidateObjectKey(key string) error {
	var msg string
	switch {
	case key == "":
		msg = "object key cannot be empty"
	case len(key) > 1024:
		msg = "object key cannot exceed 1024 bytes"
	case strings.IndexFunc(key, unicode.IsControl) >= 0:
		msg = "object key cannot contain control characters"
	default:
		return nil
	}

	return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
		WithKey(key).
		WithMessage(msg)
}

// ValidateCreateOptions validates the content type and user metadata sent
// when an upload is initiated.
func ValidateCreateOptions(opts s3types.CreateOptions) error {
	if opts.ContentType != "" && !mimePattern.MatchString(opts.ContentType) {
		return errors.NewError("validateCreateOptions", errors.ErrInvalidConfig).
			WithMessage("content type must be a valid MIME type")
	}

	for key, value := range opts.Metadata {
		if key == "" || len(key) > 128 {
			return errors.NewError("validateCreateOptions", errors.ErrInvalidConfig).
				WithMessage("metadata key must be between 1 and 128 characters")
		}
		if strings.HasPrefix(strings.ToLower(key), "x-amz-") {
			return errors.NewError("validateCreateOptions", errors.ErrInvalidConfig).
				WithMessage("metadata key cannot start with reserved prefix: x-amz-")
		}
		for _, char := range key {
			if char <= 32 || char > 126 {
				return errors.NewError("validateCreateOptions", errors.ErrInvalidConfig).
					WithMessage("metadata key can only contain printable ASCII characters")
			}
		}
		if len(value) > 2048 {
			return errors.NewError("validateCreateOptions", errors.ErrInvalidConfig).
				WithMessage("metadata value cannot exceed 2048 characters")
		}
	}

	return nil
}
