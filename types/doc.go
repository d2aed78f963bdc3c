/*
Package types provides the shared type contracts of the AgentLink
substrate.

types is the lowest-level public package and depends on no internal
package. It defines the structured error system used across the
registry, resolver, invocation client, and topology drivers.

  - Error / ErrorCode — structured errors with HTTP status, Retryable
    flag, and optional agent attribution
  - helpers: GetErrorCode / IsErrorCode / IsRetryable / HTTPStatusOf

The four substrate error codes mirror the failure taxonomy of the
discovery-and-invocation core: ErrRegistration, ErrNotFound,
ErrResolution, ErrInvocation. Transport and storage codes cover the
service surface and the run-history store.
*/
package types
