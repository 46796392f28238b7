package kyc

import "errors"

// Sentinel errors returned by the workflow engine. Callers branch on these
// with errors.Is; everything else is an internal failure.
var (
	// ErrUserNotFound means the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrRecordNotFound means no KYC record exists for the reference given.
	ErrRecordNotFound = errors.New("KYC record not found")

	// ErrInvalidArgument means the input was malformed: empty blob,
	// unknown document kind, or an unrecognized decision.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUpstream means the document store or the record store failed or
	// timed out. Never returned for notification failures; those degrade
	// to an unconfirmed send.
	ErrUpstream = errors.New("upstream failure")

	// ErrAlreadyDecided means the record has already been approved and
	// cannot be decided again.
	ErrAlreadyDecided = errors.New("KYC record already decided")
)
