package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

var (
	ErrNotFound        = fmt.Errorf("not found")
	ErrDuplicateEntity = fmt.Errorf("duplicate entity")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrTransient       = fmt.Errorf("transient failure")
	ErrUnknownCommand  = fmt.Errorf("unknown command type")
	ErrScrapeFailed    = fmt.Errorf("upstream scrape failed")
)

// Kind is the coarse failure class used by batch call sites to choose
// between skipping an item and aborting the command.
type Kind string

const (
	KindNone       Kind = ""
	KindNotFound   Kind = "not_found"
	KindDuplicate  Kind = "duplicate"
	KindValidation Kind = "validation"
	KindTransient  Kind = "transient"
	KindUnknown    Kind = "unknown"
)

// KindOf classifies err. Context deadlines count as transient.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case stderrors.Is(err, ErrNotFound):
		return KindNotFound
	case stderrors.Is(err, ErrDuplicateEntity):
		return KindDuplicate
	case stderrors.Is(err, ErrInvalidInput), stderrors.Is(err, ErrUnknownCommand):
		return KindValidation
	case stderrors.Is(err, ErrTransient), stderrors.Is(err, context.DeadlineExceeded):
		return KindTransient
	default:
		return KindUnknown
	}
}

// IsSkippable reports whether a per-item failure in a listing batch is
// downgraded to a skip.
func IsSkippable(err error) bool {
	k := KindOf(err)
	return k == KindDuplicate || k == KindValidation
}
