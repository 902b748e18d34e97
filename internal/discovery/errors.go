package discovery

import "errors"

// Announcement rejection reasons. None of these abort a discovery session.
var (
	// ErrNotReceiver means the announcement has no "fn" key. Other services
	// share the browse domain, so this is the normal filtering outcome.
	ErrNotReceiver = errors.New("announcement has no friendly name")

	// ErrMalformedTXT means a TXT entry had no '=' separator.
	ErrMalformedTXT = errors.New("malformed TXT entry")

	// ErrNoAddress means the announcement carried no addresses.
	ErrNoAddress = errors.New("announcement has no address")

	// ErrInvalidAddress means the first address could not form a receiver URL.
	ErrInvalidAddress = errors.New("invalid receiver address")
)

// Transport errors. These terminate a discovery session.
var (
	// ErrBrowseFailed wraps a failure to start browsing.
	ErrBrowseFailed = errors.New("failed to start browsing")

	// ErrStopFailed wraps a failure to stop browsing.
	ErrStopFailed = errors.New("failed to stop browsing")
)

// IsFiltered reports whether err is an announcement-level rejection that
// should be dropped rather than surfaced.
func IsFiltered(err error) bool {
	return errors.Is(err, ErrNotReceiver) ||
		errors.Is(err, ErrMalformedTXT) ||
		errors.Is(err, ErrNoAddress) ||
		errors.Is(err, ErrInvalidAddress)
}
