// Package internal contains private implementation details for the s3channel module.
// These packages are not intended for external use and may change without notice.
//
// The internal packages are organized as follows:
//   - part: Fixed-capacity part buffers
//   - upload: Concurrent part uploads with retries and a sticky first error
//   - pool: Part buffer reuse
//   - validation: Input validation logic
//   - s3api: AWS SDK interface used for mocking
//   - testutil: Mocks, generators and LocalStack helpers
package internal
