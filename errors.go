package courier

import (
	. "github.com/warpfork/go-errcat"
)

/*
	ErrorCategory is the category attached to every error courier raises
	(see `github.com/warpfork/go-errcat`).

	Categories split into three families, and callers are expected to
	switch on the family rather than the message:

	  - fatal job errors: the unit of work cannot succeed, don't retry;
	  - transient data errors: a replica may be down, try another or retry later;
	  - caller misuse: the arguments were wrong.
*/
type ErrorCategory string

const (
	ErrUsage            ErrorCategory = "courier-usage-error"       // Caller misuse.  Bad flags, bad arguments.
	ErrMalformedLocator ErrorCategory = "courier-malformed-locator" // Fatal.  A locator that fits no known scheme's shape.
	ErrResolveLoop      ErrorCategory = "courier-resolve-loop"      // Fatal.  `dir://`/`tag://` rewrites that never settle.
	ErrEncoding         ErrorCategory = "courier-encoding-error"    // Fatal.  Value can't be packed (e.g. a procedure with captured state).
	ErrCorrupt          ErrorCategory = "courier-corrupt-payload"   // Fatal.  Packed bytes that can't be unpacked.
	ErrCall             ErrorCategory = "courier-call-error"        // Fatal.  Procedure invoked with arguments it can't bind.
	ErrIndexCorrupt     ErrorCategory = "courier-index-corrupt"     // Fatal.  A directory index that doesn't parse.
	ErrReplicaMismatch  ErrorCategory = "courier-replica-mismatch"  // Caller misuse.  Replica indexes disagree on their partitions.
	ErrDataUnavailable  ErrorCategory = "courier-data-unavailable"  // Transient.  Couldn't reach the data.
	ErrDataNotFound     ErrorCategory = "courier-data-not-found"    // Transient.  The host answered but didn't have it.
	ErrCancelled        ErrorCategory = "courier-cancelled"         // Transient.  Context deadline or cancel.
	ErrRPCBreakdown     ErrorCategory = "courier-rpc-breakdown"     // Fatal.  A child courier process couldn't be run, or answered nonsense.
	ErrInternal         ErrorCategory = "courier-internal-error"    // Bugs.
)

/*
	IsTransient reports whether the error is one a caller may answer by
	picking another replica or retrying later.

	Errors that carry no courier category (for example, raw errors from a
	caller-supplied transport) are treated as transient: this layer never
	knows enough to call someone else's I/O failure fatal.
*/
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch Category(err) {
	case ErrDataUnavailable, ErrDataNotFound, ErrCancelled:
		return true
	case ErrUsage, ErrMalformedLocator, ErrResolveLoop, ErrEncoding, ErrCorrupt,
		ErrCall, ErrIndexCorrupt, ErrReplicaMismatch, ErrRPCBreakdown, ErrInternal:
		return false
	default:
		return true
	}
}

// ExitCode is the process exit status the courier CLI uses for each category.
type ExitCode int

const (
	ExitSuccess          ExitCode = 0
	ExitUsage            ExitCode = 2
	ExitMalformedLocator ExitCode = 10
	ExitResolveLoop      ExitCode = 11
	ExitEncoding         ExitCode = 12
	ExitCorrupt          ExitCode = 13
	ExitCall             ExitCode = 14
	ExitIndexCorrupt     ExitCode = 15
	ExitReplicaMismatch  ExitCode = 16
	ExitDataUnavailable  ExitCode = 20
	ExitDataNotFound     ExitCode = 21
	ExitCancelled        ExitCode = 22
	ExitInternal         ExitCode = 99
)

func ExitCodeForCategory(category interface{}) ExitCode {
	switch category {
	case nil:
		return ExitSuccess
	case ErrUsage:
		return ExitUsage
	case ErrMalformedLocator:
		return ExitMalformedLocator
	case ErrResolveLoop:
		return ExitResolveLoop
	case ErrEncoding:
		return ExitEncoding
	case ErrCorrupt:
		return ExitCorrupt
	case ErrCall:
		return ExitCall
	case ErrIndexCorrupt:
		return ExitIndexCorrupt
	case ErrReplicaMismatch:
		return ExitReplicaMismatch
	case ErrDataUnavailable:
		return ExitDataUnavailable
	case ErrDataNotFound:
		return ExitDataNotFound
	case ErrCancelled:
		return ExitCancelled
	default:
		return ExitInternal
	}
}

func CategoryForExitCode(code ExitCode) ErrorCategory {
	switch code {
	case ExitSuccess:
		return ""
	case ExitUsage:
		return ErrUsage
	case ExitMalformedLocator:
		return ErrMalformedLocator
	case ExitResolveLoop:
		return ErrResolveLoop
	case ExitEncoding:
		return ErrEncoding
	case ExitCorrupt:
		return ErrCorrupt
	case ExitCall:
		return ErrCall
	case ExitIndexCorrupt:
		return ErrIndexCorrupt
	case ExitReplicaMismatch:
		return ErrReplicaMismatch
	case ExitDataUnavailable:
		return ErrDataUnavailable
	case ExitDataNotFound:
		return ErrDataNotFound
	case ExitCancelled:
		return ErrCancelled
	default:
		return ErrInternal
	}
}
