/*
Package core runs the rxcovid pipeline: resolve the newest data file, download
it, normalize its rows and write the reference set artifact.
*/
package core

import (
	"context"
	"errors"

	"github.com/x-stp/rxcovid/internal/feed"
	"github.com/x-stp/rxcovid/internal/output"
)

// Kind classifies a run failure for logs, metrics and exit codes.
type Kind string

const (
	KindNone       Kind = ""
	KindNotFound   Kind = "not_found"
	KindTransport  Kind = "transport"
	KindParse      Kind = "parse"
	KindFilesystem Kind = "filesystem"
	KindCanceled   Kind = "canceled"
	KindUnknown    Kind = "unknown"
)

// KindOf returns the Kind of err. A nil error is KindNone.
// Cancellation is checked first because it also surfaces wrapped in a *feed.TransportError.
func KindOf(err error) Kind {
	var (
		terr *feed.TransportError
		perr *feed.ParseError
		oerr *output.Error
	)
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, feed.ErrNotFound):
		return KindNotFound
	case errors.As(err, &terr):
		return KindTransport
	case errors.As(err, &perr):
		return KindParse
	case errors.As(err, &oerr):
		return KindFilesystem
	default:
		return KindUnknown
	}
}

// ExitCode maps a failure to the process exit status. Every failure is non-zero.
func ExitCode(err error) int {
	switch KindOf(err) {
	case KindNone:
		return 0
	case KindNotFound:
		return 2
	case KindTransport:
		return 3
	case KindParse:
		return 4
	case KindFilesystem:
		return 5
	case KindCanceled:
		return 130
	default:
		return 1
	}
}
