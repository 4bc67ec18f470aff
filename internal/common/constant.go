// Package common contains shared constants and sentinel errors used across
// mediagate components.
package common

// MediaProxyPrefix is the path prefix of every media proxy endpoint,
// relative to the homeserver base URL.
const MediaProxyPrefix = "/_matrix/media_proxy/unstable"

// Media proxy endpoint paths. Paths ending with a slash expect the content
// resource path (authority/id) to be appended.
const (
	PublicKeyPath         = MediaProxyPrefix + "/public_key"
	ScanEncryptedPath     = MediaProxyPrefix + "/scan_encrypted"
	ScanPath              = MediaProxyPrefix + "/scan/"
	DownloadPath          = MediaProxyPrefix + "/download/"
	ThumbnailPath         = MediaProxyPrefix + "/thumbnail/"
	DownloadEncryptedPath = MediaProxyPrefix + "/download_encrypted"
)

// ThumbnailParams is the fixed query string used for thumbnail downloads.
const ThumbnailParams = "?width=800&height=600&method=scale"

// MimeOctetStream is the generic binary media type.
const MimeOctetStream = "application/octet-stream"

// MimeJSON is the content type of every JSON exchange with the proxy.
const MimeJSON = "application/json"
