package mediaproxy

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/mediagate/internal/common"
	"github.com/dmitrijs2005/mediagate/internal/cryptox"
	"github.com/dmitrijs2005/mediagate/internal/netx"
)

// Blob is decrypted (or downloaded) media held in memory.
type Blob struct {
	Data     []byte
	MimeType string
}

// Resolution is the retrievable form of a clean attachment: a Blob for
// encrypted media, a proxy URL for unencrypted media.
type Resolution struct {
	URL  string
	Blob *Blob
}

// Resolve turns a scanned attachment into retrievable content. An unclean
// verdict returns its error and nothing is downloaded or decrypted.
// thumbnail selects the thumbnail variant when the attachment has one.
func (c *Client) Resolve(ctx context.Context, a Attachment, v Verdict, thumbnail bool) (*Resolution, error) {
	if !v.Clean {
		return nil, v.Err()
	}

	switch att := a.(type) {
	case *PlainAttachment:
		u, err := c.DownloadURL(att, thumbnail)
		if err != nil {
			return nil, err
		}
		return &Resolution{URL: u}, nil
	case *EncryptedAttachment:
		if att == nil {
			return nil, ErrNotMatrixContent
		}
		file, mimeType := att.selectFile(thumbnail)
		if file == nil {
			return nil, ErrNotMatrixContent
		}
		data, err := c.decryptor.Decrypt(ctx, file)
		if err != nil {
			c.log.Warn(ctx, "unable to decrypt attachment", "uri", file.URL, "error", err)
			return nil, err
		}
		if len(data) == 0 {
			return &Resolution{Blob: &Blob{Data: []byte{}, MimeType: common.MimeOctetStream}}, nil
		}
		if mimeType == "" {
			mimeType = common.MimeOctetStream
		}
		return &Resolution{Blob: &Blob{Data: data, MimeType: mimeType}}, nil
	}
	return nil, ErrNotMatrixContent
}

// DownloadURL returns the proxy download (or thumbnail) URL of an
// unencrypted attachment. It performs no I/O.
func (c *Client) DownloadURL(att *PlainAttachment, thumbnail bool) (string, error) {
	if att == nil {
		return "", ErrNotMatrixContent
	}
	path, err := ResourcePath(att.URL)
	if err != nil {
		return "", err
	}
	if thumbnail {
		return c.gateway.ThumbnailURL(path), nil
	}
	return c.gateway.DownloadURL(path), nil
}

// FetchPlain downloads the bytes behind a plain Resolution. When the
// verdict carries a content digest, the bytes must match it.
func (c *Client) FetchPlain(ctx context.Context, res *Resolution, v Verdict) (*Blob, error) {
	if !v.Clean {
		return nil, v.Err()
	}
	if res == nil || res.URL == "" {
		return nil, fmt.Errorf("%w: no download URL", ErrNotMatrixContent)
	}

	data, contentType, err := netx.Fetch(ctx, c.http, http.MethodGet, res.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}

	if want := v.BoundSHA256(); want != "" {
		if got := cryptox.SHA256Base64(data); got != want {
			return nil, fmt.Errorf("%w: sha256 %s, expected %s", ErrBindingMismatch, got, want)
		}
	}

	if contentType == "" {
		contentType = common.MimeOctetStream
	}
	return &Blob{Data: data, MimeType: contentType}, nil
}
