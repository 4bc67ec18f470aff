package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/mediagate/internal/client/mediaproxy"
	"github.com/dmitrijs2005/mediagate/internal/common"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// envelope matches a full room event; only its content matters here.
type envelope struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// ParseEventContent decodes message content. data may be either the
// content object itself or a whole event wrapping it.
func ParseEventContent(data []byte) (*event.MessageEventContent, error) {
	raw := bytes.TrimSpace(data)

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: parse event: %v", common.ErrorInvalidInput, err)
	}
	if env.Type != "" && len(env.Content) > 0 {
		raw = env.Content
	}

	var content event.MessageEventContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, fmt.Errorf("%w: parse event content: %v", common.ErrorInvalidInput, err)
	}
	return &content, nil
}

// ParseEventBatch decodes a JSON array of events or contents.
func ParseEventBatch(data []byte) ([]*event.MessageEventContent, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: parse event batch: %v", common.ErrorInvalidInput, err)
	}

	out := make([]*event.MessageEventContent, 0, len(items))
	for i, item := range items {
		c, err := ParseEventContent(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// AttachmentFromContent builds the descriptor of a message. An encrypted
// file wins over a plain url when both are present.
func AttachmentFromContent(c *event.MessageEventContent) (mediaproxy.Attachment, error) {
	if c == nil {
		return nil, mediaproxy.ErrNotMatrixContent
	}

	if c.File != nil {
		a := &mediaproxy.EncryptedAttachment{File: c.File}
		if info := c.Info; info != nil {
			a.MimeType = info.MimeType
			a.ThumbnailFile = info.ThumbnailFile
			if info.ThumbnailInfo != nil {
				a.ThumbnailMimeType = info.ThumbnailInfo.MimeType
			}
		}
		return a, nil
	}

	if c.URL != "" {
		return &mediaproxy.PlainAttachment{URL: c.URL}, nil
	}
	return nil, mediaproxy.ErrNotMatrixContent
}

// AttachmentFromURI wraps a bare mxc:// URI as a plain attachment.
func AttachmentFromURI(uri string) (mediaproxy.Attachment, error) {
	if _, err := mediaproxy.ResourcePath(id.ContentURIString(uri)); err != nil {
		return nil, err
	}
	return &mediaproxy.PlainAttachment{URL: id.ContentURIString(uri)}, nil
}
