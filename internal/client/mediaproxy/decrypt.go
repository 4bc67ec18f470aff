package mediaproxy

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/mediagate/internal/cryptox"
	"github.com/dmitrijs2005/mediagate/internal/netx"
	"maunium.net/go/mautrix/crypto/attachment"
	"maunium.net/go/mautrix/event"
)

// Decryptor downloads an encrypted file and returns its plaintext.
type Decryptor interface {
	Decrypt(ctx context.Context, file *event.EncryptedFileInfo) ([]byte, error)
}

// DecryptorFunc adapts a function to Decryptor.
type DecryptorFunc func(ctx context.Context, file *event.EncryptedFileInfo) ([]byte, error)

func (f DecryptorFunc) Decrypt(ctx context.Context, file *event.EncryptedFileInfo) ([]byte, error) {
	return f(ctx, file)
}

// downloadAndDecrypt fetches the ciphertext through download_encrypted and
// decrypts it with the key material carried by file. The ciphertext must
// hash to file.Hashes.SHA256, which ties it to the scanned metadata.
func (c *Client) downloadAndDecrypt(ctx context.Context, file *event.EncryptedFileInfo) ([]byte, error) {
	body, mode, err := c.encryptedFileBody(ctx, file)
	if err != nil {
		return nil, err
	}

	data, _, err := netx.Fetch(ctx, c.http, http.MethodPost, c.gateway.DownloadEncryptedURL(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}
	c.log.Debug(ctx, "downloaded encrypted content", "uri", file.URL, "mode", mode, "size", len(data))

	if len(data) == 0 {
		return data, nil
	}

	want := strings.TrimRight(file.Hashes.SHA256, "=")
	if got := cryptox.SHA256Base64(data); want == "" || got != want {
		return nil, fmt.Errorf("%w: ciphertext hash %s, expected %s", ErrBindingMismatch, got, want)
	}

	// A struct copy would share the decoded key cache of file, so only the
	// exported fields are carried over.
	f := attachment.EncryptedFile{
		Key:        file.Key,
		InitVector: file.InitVector,
		Hashes:     file.Hashes,
		Version:    file.Version,
	}
	if err := f.DecryptInPlace(data); err != nil {
		return nil, fmt.Errorf("decrypt attachment: %w", err)
	}
	return data, nil
}
