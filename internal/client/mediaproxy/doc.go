// Package mediaproxy is a client for the Matrix content-scanner media proxy
// ("/_matrix/media_proxy/unstable").
//
// Every attachment is scanned before it may be retrieved. Encrypted
// attachments are submitted with their decryption metadata, sealed to the
// proxy's public key when one is published, and are downloaded through the
// proxy and decrypted locally. Unencrypted attachments are scanned by
// resource path and resolve to a proxy download URL.
//
// A typical flow:
//
//	c := mediaproxy.New(sess, mediaproxy.WithLogger(log))
//	v := c.Scan(ctx, att)
//	res, err := c.Resolve(ctx, att, v, false)
package mediaproxy
