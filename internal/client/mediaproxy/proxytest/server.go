// Package proxytest provides an in-process media proxy for tests.
package proxytest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/mediagate/internal/common"
	"github.com/dmitrijs2005/mediagate/internal/cryptox"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"maunium.net/go/mautrix/crypto/attachment"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Request is a request the server received. For the encrypted endpoints
// FileURL is the url of the submitted file, after unsealing.
type Request struct {
	Method  string
	Path    string
	Query   string
	Body    []byte
	Sealed  bool
	FileURL id.ContentURIString
}

type response struct {
	status int
	body   any
}

type media struct {
	data        []byte
	contentType string
}

// Server is a fake media proxy. Unknown content answers 404.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	publicKey  string
	privateKey []byte
	responses  map[string]response
	plain      map[string]media
	encrypted  map[string][]byte
	requests   []Request
}

// NewServer starts a Server that is closed when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		responses: make(map[string]response),
		plain:     make(map[string]media),
		encrypted: make(map[string][]byte),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Route(common.MediaProxyPrefix, func(r chi.Router) {
		r.Get("/public_key", s.handlePublicKey)
		r.Post("/scan_encrypted", s.handleScanEncrypted)
		r.Post("/download_encrypted", s.handleDownloadEncrypted)
		r.Get("/scan/*", s.handleScan)
		r.Get("/download/*", s.handleDownload)
		r.Get("/thumbnail/*", s.handleDownload)
	})
	return r
}

// EnableKey generates a key pair and publishes its public half.
func (s *Server) EnableKey() string {
	pub, priv, err := cryptox.GeneratePkKeyPair()
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publicKey, s.privateKey = pub, priv
	return pub
}

// SetPublicKey publishes key as is, without a matching private key.
func (s *Server) SetPublicKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publicKey, s.privateKey = key, nil
}

// SetVerdict makes scans of uri answer 200 with body.
func (s *Server) SetVerdict(uri id.ContentURIString, body map[string]any) {
	s.SetResponse(uri, http.StatusOK, body)
}

// SetClean is SetVerdict with a bare clean flag.
func (s *Server) SetClean(uri id.ContentURIString, clean bool) {
	s.SetVerdict(uri, map[string]any{"clean": clean})
}

// SetResponse makes scans of uri answer status with body. A []byte body is
// written verbatim; anything else is encoded as JSON.
func (s *Server) SetResponse(uri id.ContentURIString, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[string(uri)] = response{status: status, body: body}
}

// AddPlain stores unencrypted content served by download and thumbnail.
func (s *Server) AddPlain(uri id.ContentURIString, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plain[string(uri)] = media{data: data, contentType: contentType}
}

// AddEncrypted encrypts plaintext the way Matrix clients do, stores the
// ciphertext under uri and returns the file metadata a sender would attach.
func (s *Server) AddEncrypted(uri id.ContentURIString, plaintext []byte) *event.EncryptedFileInfo {
	data := append([]byte(nil), plaintext...)
	ef := attachment.NewEncryptedFile()
	ef.EncryptInPlace(data)

	s.SetCiphertext(uri, data)

	// Round-trip through JSON so callers get what a received event carries.
	raw, err := json.Marshal(&event.EncryptedFileInfo{EncryptedFile: *ef, URL: uri})
	if err != nil {
		panic(err)
	}
	var info event.EncryptedFileInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		panic(err)
	}
	return &info
}

// SetCiphertext replaces the bytes served by download_encrypted for uri.
func (s *Server) SetCiphertext(uri id.ContentURIString, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.encrypted[string(uri)] = data
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo returns the recorded requests whose path starts with prefix.
func (s *Server) RequestsTo(prefix string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if strings.HasPrefix(r.Path, prefix) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		req := Request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body}
		if r.Method == http.MethodPost {
			if uri, sealed, err := s.submittedFile(body); err == nil {
				req.FileURL, req.Sealed = uri, sealed
			}
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePublicKey(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	key := s.publicKey
	s.mu.Unlock()

	if key == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"errcode": "M_NOT_FOUND", "error": "no public key"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": key})
}

type fileRequest struct {
	EncryptedBody *cryptox.PkMessage       `json:"encrypted_body"`
	File          *event.EncryptedFileInfo `json:"file"`
}

// submittedFile extracts the file url of an encrypted endpoint body,
// unsealing it with the server key when needed.
func (s *Server) submittedFile(body []byte) (id.ContentURIString, bool, error) {
	var req fileRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", false, err
	}

	sealed := req.EncryptedBody != nil
	if sealed {
		s.mu.Lock()
		priv := s.privateKey
		s.mu.Unlock()

		var inner fileRequest
		if err := cryptox.OpenJSON(priv, req.EncryptedBody, &inner); err != nil {
			return "", true, err
		}
		req.File = inner.File
	}
	if req.File == nil {
		return "", sealed, errMalformed
	}
	return req.File.URL, sealed, nil
}

var errMalformed = errors.New("missing file")

func (s *Server) handleScanEncrypted(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	uri, _, err := s.submittedFile(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"reason": "MCS_MALFORMED_JSON", "info": err.Error()})
		return
	}
	s.writeVerdict(w, uri)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	s.writeVerdict(w, id.ContentURIString("mxc://"+chi.URLParam(r, "*")))
}

func (s *Server) writeVerdict(w http.ResponseWriter, uri id.ContentURIString) {
	s.mu.Lock()
	resp, ok := s.responses[string(uri)]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"reason": "M_NOT_FOUND", "info": "unknown media"})
		return
	}
	if raw, isRaw := resp.body.([]byte); isRaw {
		w.Header().Set("Content-Type", common.MimeJSON)
		w.WriteHeader(resp.status)
		_, _ = w.Write(raw)
		return
	}
	writeJSON(w, resp.status, resp.body)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	m, ok := s.plain["mxc://"+chi.URLParam(r, "*")]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"errcode": "M_NOT_FOUND"})
		return
	}
	w.Header().Set("Content-Type", m.contentType)
	_, _ = w.Write(m.data)
}

func (s *Server) handleDownloadEncrypted(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	uri, _, err := s.submittedFile(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"reason": "MCS_MALFORMED_JSON", "info": err.Error()})
		return
	}

	s.mu.Lock()
	data, ok := s.encrypted[string(uri)]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"errcode": "M_NOT_FOUND"})
		return
	}
	w.Header().Set("Content-Type", common.MimeOctetStream)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", common.MimeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
