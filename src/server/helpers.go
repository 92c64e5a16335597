package server

import (
	"errors"

	"p2p-observer/src/helpers"
)

// -----------------------------------------------------------------------------
// Error classification for HTTP status mapping
// -----------------------------------------------------------------------------

func isValidation(err error) bool {
	var v *helpers.ValidationError
	var p *helpers.InvalidPairError
	return errors.As(err, &v) || errors.As(err, &p)
}

// -----------------------------------------------------------------------------

func isUpstream(err error) bool {
	var f *helpers.FetchFailureError
	var b *helpers.BackendRejectedError
	return errors.As(err, &f) || errors.As(err, &b)
}
