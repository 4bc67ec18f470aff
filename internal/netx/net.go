// Package netx holds the HTTP plumbing shared by the media proxy client and
// the export sinks.
package netx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/mediagate/internal/common"
)

// ErrUnexpectedStatus is returned when a raw download does not answer 200.
var ErrUnexpectedStatus = errors.New("unexpected status")

func newRequest(ctx context.Context, method, url string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", common.MimeJSON)
	}
	return req, nil
}

// DoJSON sends in (when non-nil) as a JSON body and decodes the response
// body into out whatever the status code: the media proxy reports verdicts
// on 4xx responses too. The status code is returned alongside.
func DoJSON(ctx context.Context, client *http.Client, method, url string, in, out any) (int, error) {
	req, err := newRequest(ctx, method, url, in)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", common.MimeJSON)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response (%s): %w", resp.Status, err)
	}
	return resp.StatusCode, nil
}

// Fetch performs the request and returns the raw body and its content type.
// Any status other than 200 is an error wrapping ErrUnexpectedStatus.
func Fetch(ctx context.Context, client *http.Client, method, url string, in any) ([]byte, string, error) {
	req, err := newRequest(ctx, method, url, in)
	if err != nil {
		return nil, "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("%w: %s; body: %s", ErrUnexpectedStatus, resp.Status, string(b))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// UploadPresigned PUTs data to a presigned object storage URL.
func UploadPresigned(ctx context.Context, client *http.Client, url, contentType string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = common.MimeOctetStream
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upload failed: %w: %s; body: %s", ErrUnexpectedStatus, resp.Status, string(b))
	}
	return nil
}
