/*
DESCRIPTION
  errors.go provides the error classes and session status codes returned by
  the decoder.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package av1dec

import (
	"github.com/pkg/errors"
)

// Error classes. Errors returned from parsing wrap one of these, and the class
// may be recovered using errors.Cause.
var (
	// ErrInvalidData indicates malformed input.
	ErrInvalidData = errors.New("invalid data")

	// ErrUnsupported indicates a valid stream that uses a feature this
	// decoder does not implement.
	ErrUnsupported = errors.New("not supported")
)

func invalidf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidData, format, args...)
}

func unsupported(what string) error {
	return errors.Wrap(ErrUnsupported, what)
}

// IsUnsupported returns true if err was caused by an unimplemented feature.
func IsUnsupported(err error) bool {
	return errors.Cause(err) == ErrUnsupported
}

// IsInvalidData returns true if err was caused by malformed input.
func IsInvalidData(err error) bool {
	return errors.Cause(err) == ErrInvalidData
}

// CodecStatus is a flow control status returned by the Decoder session
// methods. It implements error so it may be returned in place of one.
type CodecStatus int

const (
	// StatusNeedMoreData means the decoder needs another packet before it can
	// produce a frame.
	StatusNeedMoreData CodecStatus = iota

	// StatusEnoughData means a packet is already buffered and must be drained
	// with ReceiveFrame before another is sent.
	StatusEnoughData

	// StatusLimitReached means the decoder has been flushed.
	StatusLimitReached

	// StatusFailure means the stream could not be decoded.
	StatusFailure
)

func (s CodecStatus) Error() string {
	switch s {
	case StatusNeedMoreData:
		return "need more data"
	case StatusEnoughData:
		return "enough data"
	case StatusLimitReached:
		return "limit reached"
	case StatusFailure:
		return "failure"
	default:
		return "unknown codec status"
	}
}
