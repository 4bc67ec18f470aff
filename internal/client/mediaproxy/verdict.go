package mediaproxy

import (
	"fmt"
)

// SubmissionMode records how a descriptor was submitted for scanning.
type SubmissionMode string

const (
	// ModeNone means nothing was sent to the proxy.
	ModeNone SubmissionMode = "none"
	// ModeSealed means the encrypted file metadata was sealed to the proxy key.
	ModeSealed SubmissionMode = "sealed"
	// ModeUnsealed means the encrypted file metadata was sent in clear.
	ModeUnsealed SubmissionMode = "unsealed"
	// ModePlain means an unencrypted resource was scanned by path.
	ModePlain SubmissionMode = "plain"
)

// SealPolicy controls what happens to encrypted submissions when the proxy
// publishes no usable public key.
type SealPolicy string

const (
	// SealPermissive falls back to sending the file metadata unsealed.
	SealPermissive SealPolicy = "permissive"
	// SealRequired refuses to send file metadata unsealed.
	SealRequired SealPolicy = "sealed-only"
)

// ParseSealPolicy maps a configuration value to a SealPolicy.
func ParseSealPolicy(s string) (SealPolicy, error) {
	switch SealPolicy(s) {
	case SealPermissive, "":
		return SealPermissive, nil
	case SealRequired:
		return SealRequired, nil
	}
	return "", fmt.Errorf("unknown seal policy %q", s)
}

// Verdict is the outcome of a scan. Clean is only ever true when the proxy
// explicitly answered clean=true.
type Verdict struct {
	Clean bool           `json:"clean"`
	Info  any            `json:"info,omitempty"`
	Error string         `json:"error,omitempty"`
	Mode  SubmissionMode `json:"mode"`
	// Cause classifies an unclean verdict. It is nil for clean verdicts.
	Cause error `json:"-"`
}

func syntheticVerdict(mode SubmissionMode, cause error, msg string) Verdict {
	return Verdict{Clean: false, Error: msg, Mode: mode, Cause: cause}
}

// Err returns nil for clean verdicts and an error wrapping Cause otherwise.
func (v Verdict) Err() error {
	if v.Clean {
		return nil
	}
	cause := v.Cause
	if cause == nil {
		cause = ErrProxyRejected
	}
	if v.Error == "" {
		return cause
	}
	return fmt.Errorf("%w: %s", cause, v.Error)
}

// BoundSHA256 returns the content digest the proxy reported for the scanned
// bytes, when it reports one in info.
func (v Verdict) BoundSHA256() string {
	info, ok := v.Info.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := info["sha256"].(string)
	return s
}

// scanResponse is the proxy's answer to a scan request. Error responses
// carry a reason instead of clean.
type scanResponse struct {
	Clean  *bool  `json:"clean"`
	Info   any    `json:"info,omitempty"`
	Error  string `json:"error,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (r *scanResponse) verdict(mode SubmissionMode, fallbackMsg string) Verdict {
	if r.Clean == nil {
		msg := fallbackMsg
		switch {
		case r.Error != "":
			msg = r.Error
		case r.Reason != "":
			msg = r.Reason
		}
		v := syntheticVerdict(mode, ErrTransportFailure, msg)
		v.Info = r.Info
		return v
	}

	v := Verdict{Clean: *r.Clean, Info: r.Info, Error: r.Error, Mode: mode}
	if !v.Clean {
		v.Cause = ErrProxyRejected
		if v.Error == "" {
			if s, ok := r.Info.(string); ok && s != "" {
				v.Error = s
			} else {
				v.Error = MsgContentNotClean
			}
		}
	}
	return v
}
