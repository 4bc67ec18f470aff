package mediaproxy

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/mediagate/internal/netx"
)

// Scan asks the proxy whether a is safe. It never returns an error: every
// failure is folded into an unclean Verdict whose Cause classifies it.
// Descriptors that are not matrix content cause no network traffic.
func (c *Client) Scan(ctx context.Context, a Attachment) Verdict {
	switch att := a.(type) {
	case *EncryptedAttachment:
		if att != nil && att.File != nil {
			return c.scanEncrypted(ctx, att)
		}
	case *PlainAttachment:
		if att != nil && att.URL != "" {
			return c.scanPlain(ctx, att)
		}
	}
	return syntheticVerdict(ModeNone, ErrNotMatrixContent, MsgNotMatrixContent)
}

func (c *Client) scanEncrypted(ctx context.Context, att *EncryptedAttachment) Verdict {
	body, mode, err := c.encryptedFileBody(ctx, att.File)
	if err != nil {
		if errors.Is(err, ErrKeyUnavailable) {
			c.log.Warn(ctx, "refusing unsealed submission", "uri", att.ContentURI())
			return syntheticVerdict(ModeNone, ErrKeyUnavailable, MsgKeyUnavailable)
		}
		c.log.Error(ctx, "unable to seal scan request", "uri", att.ContentURI(), "error", err)
		return syntheticVerdict(ModeNone, ErrTransportFailure, MsgMCSUnreachable)
	}

	var resp scanResponse
	if _, err := netx.DoJSON(ctx, c.http, http.MethodPost, c.gateway.ScanEncryptedURL(), body, &resp); err != nil {
		c.log.Warn(ctx, "encrypted scan failed", "uri", att.ContentURI(), "mode", mode, "error", err)
		return syntheticVerdict(mode, ErrTransportFailure, MsgMCSUnreachable)
	}

	v := resp.verdict(mode, MsgMCSUnreachable)
	c.log.Debug(ctx, "encrypted scan finished", "uri", att.ContentURI(), "mode", mode, "clean", v.Clean)
	return v
}

func (c *Client) scanPlain(ctx context.Context, att *PlainAttachment) Verdict {
	path, err := ResourcePath(att.URL)
	if err != nil {
		return syntheticVerdict(ModeNone, ErrNotMatrixContent, MsgNotMatrixContent)
	}

	var resp scanResponse
	if _, err := netx.DoJSON(ctx, c.http, http.MethodGet, c.gateway.ScanURL(path), nil, &resp); err != nil {
		c.log.Warn(ctx, "scan failed", "uri", att.URL, "error", err)
		return syntheticVerdict(ModePlain, ErrTransportFailure, MsgCannotFetch)
	}

	v := resp.verdict(ModePlain, MsgCannotFetch)
	c.log.Debug(ctx, "scan finished", "uri", att.URL, "clean", v.Clean)
	return v
}
