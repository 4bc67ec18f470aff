package mediaproxy

import (
	"fmt"
	"strings"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

const mxcScheme = "mxc://"

// Attachment is a media descriptor to scan or resolve. It is either an
// *EncryptedAttachment or a *PlainAttachment.
type Attachment interface {
	// ContentURI is the mxc:// URI the attachment points to.
	ContentURI() id.ContentURIString
	isAttachment()
}

// EncryptedAttachment describes end-to-end encrypted media. The decryption
// metadata (key, iv, hashes) travels with the file.
type EncryptedAttachment struct {
	File              *event.EncryptedFileInfo
	ThumbnailFile     *event.EncryptedFileInfo
	MimeType          string
	ThumbnailMimeType string
}

func (a *EncryptedAttachment) ContentURI() id.ContentURIString {
	if a == nil || a.File == nil {
		return ""
	}
	return a.File.URL
}

func (*EncryptedAttachment) isAttachment() {}

// selectFile returns the thumbnail when requested and present, the main
// file otherwise, along with the matching media type.
func (a *EncryptedAttachment) selectFile(thumbnail bool) (*event.EncryptedFileInfo, string) {
	if thumbnail && a.ThumbnailFile != nil {
		return a.ThumbnailFile, a.ThumbnailMimeType
	}
	return a.File, a.MimeType
}

// PlainAttachment describes unencrypted media stored on a homeserver.
type PlainAttachment struct {
	URL id.ContentURIString
}

func (a *PlainAttachment) ContentURI() id.ContentURIString {
	if a == nil {
		return ""
	}
	return a.URL
}

func (*PlainAttachment) isAttachment() {}

// ResourcePath returns the part of an mxc:// URI after the scheme
// separator, e.g. "example.org/abc123" for "mxc://example.org/abc123".
func ResourcePath(uri id.ContentURIString) (string, error) {
	s := string(uri)
	if !strings.HasPrefix(s, mxcScheme) {
		return "", fmt.Errorf("%w: %q", ErrNotMatrixContent, s)
	}
	if _, err := id.ParseContentURI(s); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotMatrixContent, err)
	}
	return s[len(mxcScheme):], nil
}
