package mediaproxy

import (
	"github.com/dmitrijs2005/mediagate/internal/client/session"
	"github.com/dmitrijs2005/mediagate/internal/common"
)

// GatewayConfig resolves media proxy endpoint URLs against a homeserver.
type GatewayConfig struct {
	baseURL string
}

// NewGatewayConfig builds a GatewayConfig from a base URL without a trailing
// slash.
func NewGatewayConfig(baseURL string) GatewayConfig {
	return GatewayConfig{baseURL: baseURL}
}

// GatewayFromSession builds the GatewayConfig of sess.
func GatewayFromSession(sess *session.Session) GatewayConfig {
	return NewGatewayConfig(sess.BaseURL())
}

func (g GatewayConfig) PublicKeyURL() string {
	return g.baseURL + common.PublicKeyPath
}

func (g GatewayConfig) ScanEncryptedURL() string {
	return g.baseURL + common.ScanEncryptedPath
}

func (g GatewayConfig) DownloadEncryptedURL() string {
	return g.baseURL + common.DownloadEncryptedPath
}

// ScanURL is the scan target of an unencrypted resource path.
func (g GatewayConfig) ScanURL(resourcePath string) string {
	return g.baseURL + common.ScanPath + resourcePath
}

// DownloadURL is the download target of an unencrypted resource path.
func (g GatewayConfig) DownloadURL(resourcePath string) string {
	return g.baseURL + common.DownloadPath + resourcePath
}

// ThumbnailURL is the thumbnail target of an unencrypted resource path. The
// size and method are fixed.
func (g GatewayConfig) ThumbnailURL(resourcePath string) string {
	return g.baseURL + common.ThumbnailPath + resourcePath + common.ThumbnailParams
}
