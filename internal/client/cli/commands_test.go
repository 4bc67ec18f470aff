package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/mediagate/internal/client/client"
	"github.com/dmitrijs2005/mediagate/internal/client/config"
	"github.com/dmitrijs2005/mediagate/internal/client/mediaproxy"
	"github.com/dmitrijs2005/mediagate/internal/client/mediaproxy/proxytest"
	"github.com/dmitrijs2005/mediagate/internal/client/models"
	"github.com/dmitrijs2005/mediagate/internal/client/services"
	"github.com/dmitrijs2005/mediagate/internal/client/session"
	"github.com/dmitrijs2005/mediagate/internal/client/sink"
	"github.com/dmitrijs2005/mediagate/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/id"
)

const testURI id.ContentURIString = "mxc://example.org/abc123"

type testApp struct {
	*App
	srv    *proxytest.Server
	out    *[]string
	stdout *bytes.Buffer
	outDir string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	srv := proxytest.NewServer(t)
	sess, err := session.New(srv.URL)
	require.NoError(t, err)

	repos, err := client.InitDatabase(ctx, filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	outDir := filepath.Join(t.TempDir(), "downloads")
	media := services.NewMediaService(mediaproxy.New(sess), repos, sink.NewFileSink(outDir), logging.Discard(), 2)

	stdout := &bytes.Buffer{}
	app := &App{
		media:      media,
		repos:      repos,
		log:        logging.Discard(),
		stdout:     stdout,
		isTerminal: func() bool { return false },
	}
	return &testApp{App: app, srv: srv, out: captureOutput(t), stdout: stdout, outDir: outDir}
}

func (a *testApp) output() string {
	return strings.Join(*a.out, "\n")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestScanCommand(t *testing.T) {
	a := newTestApp(t)
	a.srv.SetClean(testURI, true)

	require.NoError(t, a.Scan(context.Background(), []string{string(testURI)}))
	assert.Contains(t, a.output(), "mxc://example.org/abc123: clean [plain]")

	err := a.Scan(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUsage)
}

func TestScanCommand_EventFileWithUnsealedWarning(t *testing.T) {
	a := newTestApp(t)
	file := a.srv.AddEncrypted(testURI, []byte("x"))
	a.srv.SetClean(testURI, true)

	content := map[string]any{"msgtype": "m.file", "body": "x.bin", "file": file}
	path := writeFile(t, "event.json", mustJSON(t, content))

	require.NoError(t, a.Scan(context.Background(), []string{path}))
	assert.Contains(t, a.output(), "clean [unsealed]")
	assert.Contains(t, a.output(), "attachment keys were sent unsealed")
}

func TestScanCommand_Rejected(t *testing.T) {
	a := newTestApp(t)
	a.srv.SetVerdict(testURI, map[string]any{"clean": false, "info": "***VIRUS DETECTED***"})

	err := a.Scan(context.Background(), []string{string(testURI)})
	assert.ErrorIs(t, err, mediaproxy.ErrProxyRejected)
	assert.Contains(t, a.output(), "rejected")
	assert.Contains(t, a.output(), "***VIRUS DETECTED***")
}

func TestScanCommand_EventWithoutMedia(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	path := writeFile(t, "text.json", `{"msgtype": "m.text", "body": "hello"}`)

	err := a.Scan(ctx, []string{path})
	assert.ErrorIs(t, err, mediaproxy.ErrNotMatrixContent)
	assert.Contains(t, a.output(), "(no content): failed")
	assert.Contains(t, a.output(), mediaproxy.MsgNotMatrixContent)
	assert.Empty(t, a.srv.Requests())

	records, err := a.media.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.StateFailed, records[0].State)
}

func TestGetCommand_ExportsToDir(t *testing.T) {
	a := newTestApp(t)
	a.srv.SetClean(testURI, true)
	a.srv.AddPlain(testURI, []byte("pdf bytes"), "application/pdf")

	require.NoError(t, a.Get(context.Background(), []string{string(testURI)}))
	assert.Contains(t, a.output(), "Saved 9 bytes (application/pdf)")

	b, err := os.ReadFile(filepath.Join(a.outDir, "abc123"))
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), b)
}

func TestGetCommand_Stdout(t *testing.T) {
	a := newTestApp(t)
	a.srv.SetClean(testURI, true)
	a.srv.AddPlain(testURI, []byte("raw"), "application/octet-stream")

	require.NoError(t, a.Get(context.Background(), []string{string(testURI), "-"}))
	assert.Equal(t, "raw", a.stdout.String())
}

func TestGetCommand_RefusesTerminal(t *testing.T) {
	a := newTestApp(t)
	a.isTerminal = func() bool { return true }

	err := a.Get(context.Background(), []string{string(testURI), "-"})
	assert.ErrorIs(t, err, ErrBinaryToTerminal)
	assert.Empty(t, a.srv.Requests(), "nothing is scanned")
}

func TestGetCommand_BadOption(t *testing.T) {
	a := newTestApp(t)
	assert.ErrorIs(t, a.Get(context.Background(), []string{string(testURI), "big"}), ErrUsage)
}

func TestURLCommand(t *testing.T) {
	a := newTestApp(t)
	a.srv.SetClean(testURI, true)

	require.NoError(t, a.URL(context.Background(), []string{string(testURI)}))
	assert.Contains(t, a.output(), a.srv.URL+"/_matrix/media_proxy/unstable/download/example.org/abc123")

	assert.ErrorIs(t, a.URL(context.Background(), []string{string(testURI), "x"}), ErrUsage)
}

func TestBatchCommand(t *testing.T) {
	a := newTestApp(t)
	a.srv.SetClean(testURI, true)
	path := writeFile(t, "events.json", `[
		{"url": "mxc://example.org/abc123"},
		{"msgtype": "m.text", "body": "no media"},
		{"type": "m.room.message", "content": {"url": "mxc://example.org/abc123"}}
	]`)

	require.NoError(t, a.Batch(context.Background(), []string{path}))
	assert.Contains(t, a.output(), "(no content): failed")
	assert.Contains(t, a.output(), "2/3 clean")
}

func TestHistoryAndStats(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.History(ctx, nil))
	assert.Contains(t, a.output(), "No records")

	a.srv.SetClean(testURI, true)
	require.NoError(t, a.Scan(ctx, []string{string(testURI)}))
	require.NoError(t, a.Scan(ctx, []string{string(testURI)}))

	*a.out = nil
	require.NoError(t, a.History(ctx, []string{"1"}))
	require.Len(t, *a.out, 1)
	assert.Contains(t, (*a.out)[0], "mxc://example.org/abc123")

	assert.ErrorIs(t, a.History(ctx, []string{"zero"}), ErrUsage)

	*a.out = nil
	require.NoError(t, a.Stats(ctx, nil))
	assert.Equal(t, []string{"clean          2"}, *a.out)
}

func TestKeyCommand(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.Key(ctx, nil))
	assert.Contains(t, a.output(), "publishes no public key")

	pub := a.srv.EnableKey()
	require.NoError(t, a.Key(ctx, nil))
	assert.Contains(t, a.output(), "Public key: "+pub)

	a.srv.EnableKey()
	require.NoError(t, a.Key(ctx, nil))
	assert.Contains(t, a.output(), "WARNING: the media proxy key changed")

	require.NoError(t, a.Key(ctx, []string{"forget"}))
	assert.Contains(t, a.output(), "Pinned key forgotten")
	assert.ErrorIs(t, a.Key(ctx, []string{"rotate"}), ErrUsage)
}

func TestRun_OneShot(t *testing.T) {
	a := newTestApp(t)
	a.srv.SetClean(testURI, true)

	require.NoError(t, a.Run(context.Background(), []string{"scan", string(testURI)}))
	assert.ErrorIs(t, a.Run(context.Background(), []string{"bogus"}), ErrUnknownCommand)
}

func TestNewApp_WiresFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.JournalPath = filepath.Join(t.TempDir(), "j.db")
	cfg.ExportDir = t.TempDir()

	app, err := NewApp(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.NotNil(t, app.media)
	assert.IsType(t, &sink.FileSink{}, newSink(cfg, nil))

	cfg.S3Bucket = "media"
	sess, err := session.New("https://matrix.example.org")
	require.NoError(t, err)
	assert.IsType(t, &sink.S3Sink{}, newSink(cfg, sess))
}

func TestNewApp_BadSealPolicy(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.JournalPath = filepath.Join(t.TempDir(), "j.db")
	cfg.SealPolicy = "sometimes"

	_, err := NewApp(context.Background(), cfg, logging.Discard())
	assert.Error(t, err)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
