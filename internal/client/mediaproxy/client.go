package mediaproxy

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/mediagate/internal/client/session"
	"github.com/dmitrijs2005/mediagate/internal/cryptox"
	"github.com/dmitrijs2005/mediagate/internal/logging"
	"github.com/dmitrijs2005/mediagate/internal/netx"
)

// Client talks to the media proxy of one homeserver session. It keeps no
// per-request state: the proxy key is fetched again for every operation and
// concurrent calls are independent.
type Client struct {
	gateway    GatewayConfig
	http       *http.Client
	log        logging.Logger
	decryptor  Decryptor
	sealPolicy SealPolicy
}

// Option customizes a Client.
type Option func(*Client)

func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithDecryptor replaces the download-and-decrypt step used by Resolve.
func WithDecryptor(d Decryptor) Option {
	return func(c *Client) {
		if d != nil {
			c.decryptor = d
		}
	}
}

func WithSealPolicy(p SealPolicy) Option {
	return func(c *Client) {
		c.sealPolicy = p
	}
}

// New returns a Client bound to sess.
func New(sess *session.Session, opts ...Option) *Client {
	c := &Client{
		gateway:    GatewayFromSession(sess),
		http:       sess.HTTPClient(),
		log:        logging.Discard(),
		sealPolicy: SealPermissive,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.decryptor == nil {
		c.decryptor = DecryptorFunc(c.downloadAndDecrypt)
	}
	c.log = c.log.With("component", "mediaproxy")
	return c
}

// Gateway returns the endpoint resolver of the client.
func (c *Client) Gateway() GatewayConfig {
	return c.gateway
}

type publicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// FetchPublicKey retrieves the proxy's Curve25519 public key. Absence,
// malformed keys and transport failures all report ok=false; they are
// logged, never returned.
func (c *Client) FetchPublicKey(ctx context.Context) (key string, ok bool) {
	var resp publicKeyResponse
	if _, err := netx.DoJSON(ctx, c.http, http.MethodGet, c.gateway.PublicKeyURL(), nil, &resp); err != nil {
		c.log.Warn(ctx, "unable to retrieve the media proxy public key", "error", err)
		return "", false
	}
	if resp.PublicKey == "" {
		c.log.Warn(ctx, "media proxy did not publish a public key")
		return "", false
	}
	if err := cryptox.ValidatePublicKey(resp.PublicKey); err != nil {
		c.log.Warn(ctx, "media proxy published an unusable public key", "error", err)
		return "", false
	}
	return resp.PublicKey, true
}

type fileBody struct {
	File any `json:"file"`
}

type sealedBody struct {
	EncryptedBody *cryptox.PkMessage `json:"encrypted_body"`
}

// encryptedFileBody builds the request body carrying file metadata: sealed
// when the proxy key is available, in clear when policy allows it.
func (c *Client) encryptedFileBody(ctx context.Context, file any) (any, SubmissionMode, error) {
	key, ok := c.FetchPublicKey(ctx)
	if !ok {
		if c.sealPolicy == SealRequired {
			return nil, ModeNone, ErrKeyUnavailable
		}
		c.log.Warn(ctx, "submitting file metadata unsealed", "mode", ModeUnsealed)
		return fileBody{File: file}, ModeUnsealed, nil
	}

	msg, err := cryptox.SealJSON(key, fileBody{File: file})
	if err != nil {
		return nil, ModeNone, err
	}
	return sealedBody{EncryptedBody: msg}, ModeSealed, nil
}
