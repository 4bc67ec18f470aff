package mediaproxy

import "errors"

var (
	// ErrNotMatrixContent is returned for descriptors carrying neither an
	// encrypted file nor an mxc:// URL.
	ErrNotMatrixContent = errors.New("not a matrix content")
	// ErrKeyUnavailable is returned when a sealed submission is required but
	// the proxy does not publish a usable public key.
	ErrKeyUnavailable = errors.New("media proxy public key unavailable")
	// ErrTransportFailure covers network, status and decoding failures.
	ErrTransportFailure = errors.New("media proxy transport failure")
	// ErrProxyRejected is returned when the proxy judged the content unclean.
	ErrProxyRejected = errors.New("content rejected by media proxy")
	// ErrBindingMismatch is returned when downloaded bytes do not match the
	// bytes that were scanned.
	ErrBindingMismatch = errors.New("downloaded content does not match scanned content")
)

// Messages placed in synthetic verdicts. They are shown to end users, so the
// wording is kept stable.
const (
	MsgMCSUnreachable   = "Error: Unable to join the MCS server"
	MsgCannotFetch      = "Error: Cannot fetch the file"
	MsgNotMatrixContent = "Error: This is not a matrix content"
	MsgKeyUnavailable   = "Error: The media proxy public key is unavailable"
	MsgContentNotClean  = "Error: The file is not clean"
)
