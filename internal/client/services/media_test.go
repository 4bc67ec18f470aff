package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/mediagate/internal/client/client"
	"github.com/dmitrijs2005/mediagate/internal/client/mediaproxy"
	"github.com/dmitrijs2005/mediagate/internal/client/mediaproxy/proxytest"
	"github.com/dmitrijs2005/mediagate/internal/client/models"
	"github.com/dmitrijs2005/mediagate/internal/client/repositories/journal"
	"github.com/dmitrijs2005/mediagate/internal/client/session"
	"github.com/dmitrijs2005/mediagate/internal/client/sink"
	"github.com/dmitrijs2005/mediagate/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

const testURI id.ContentURIString = "mxc://example.org/abc123"

type fixture struct {
	srv    *proxytest.Server
	repos  *client.Repositories
	outDir string
	svc    MediaService
}

func newFixture(t *testing.T, opts ...mediaproxy.Option) *fixture {
	t.Helper()
	ctx := context.Background()

	srv := proxytest.NewServer(t)
	sess, err := session.New(srv.URL)
	require.NoError(t, err)

	repos, err := client.InitDatabase(ctx, filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	outDir := filepath.Join(t.TempDir(), "out")
	svc := NewMediaService(mediaproxy.New(sess, opts...), repos, sink.NewFileSink(outDir), nil, 3)
	return &fixture{srv: srv, repos: repos, outDir: outDir, svc: svc}
}

func (f *fixture) history(t *testing.T) []models.JournalRecord {
	t.Helper()
	records, err := f.svc.History(context.Background(), 0)
	require.NoError(t, err)
	return records
}

func states(s ...models.ScanState) []models.ScanState { return s }

func TestScan_StateTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("plain clean", func(t *testing.T) {
		f := newFixture(t)
		f.srv.SetClean(testURI, true)

		o := f.svc.Scan(ctx, &mediaproxy.PlainAttachment{URL: testURI})
		assert.Equal(t, states(models.StateInit, models.StateSubmitted, models.StateClean), o.States)
		assert.NoError(t, o.Err)

		records := f.history(t)
		require.Len(t, records, 1)
		assert.Equal(t, models.StateClean, records[0].State)
		assert.Equal(t, string(testURI), records[0].ContentURI)
		assert.Equal(t, "plain", records[0].Mode)
		assert.True(t, records[0].Clean)
	})

	t.Run("encrypted sealed", func(t *testing.T) {
		f := newFixture(t)
		f.srv.EnableKey()
		file := f.srv.AddEncrypted(testURI, []byte("x"))
		f.srv.SetClean(testURI, true)

		o := f.svc.Scan(ctx, &mediaproxy.EncryptedAttachment{File: file})
		assert.Equal(t, states(models.StateInit, models.StateKeyDiscovered, models.StateSubmitted, models.StateClean), o.States)
		assert.True(t, o.Encrypted)
	})

	t.Run("encrypted unsealed rejected", func(t *testing.T) {
		f := newFixture(t)
		file := f.srv.AddEncrypted(testURI, []byte("x"))
		f.srv.SetVerdict(testURI, map[string]any{"clean": false, "info": "virus"})

		o := f.svc.Scan(ctx, &mediaproxy.EncryptedAttachment{File: file})
		assert.Equal(t, states(models.StateInit, models.StateKeyAbsent, models.StateSubmitted, models.StateUnclean, models.StateRejected), o.States)
		assert.ErrorIs(t, o.Err, mediaproxy.ErrProxyRejected)

		records := f.history(t)
		require.Len(t, records, 1)
		assert.Equal(t, "unsealed", records[0].Mode)
		assert.Contains(t, records[0].Error, "virus")
	})

	t.Run("transport failure", func(t *testing.T) {
		f := newFixture(t)

		o := f.svc.Scan(ctx, &mediaproxy.PlainAttachment{URL: testURI})
		assert.Equal(t, states(models.StateInit, models.StateSubmitted, models.StateUnclean, models.StateFailed), o.States)
		assert.ErrorIs(t, o.Err, mediaproxy.ErrTransportFailure)
	})

	t.Run("not matrix content", func(t *testing.T) {
		f := newFixture(t)

		o := f.svc.Scan(ctx, &mediaproxy.PlainAttachment{})
		assert.Equal(t, states(models.StateInit, models.StateFailed), o.States)
		assert.ErrorIs(t, o.Err, mediaproxy.ErrNotMatrixContent)
		assert.Empty(t, f.srv.Requests())
	})

	t.Run("sealed only without key", func(t *testing.T) {
		f := newFixture(t, mediaproxy.WithSealPolicy(mediaproxy.SealRequired))
		file := f.srv.AddEncrypted(testURI, []byte("x"))

		o := f.svc.Scan(ctx, &mediaproxy.EncryptedAttachment{File: file})
		assert.Equal(t, states(models.StateInit, models.StateKeyAbsent, models.StateFailed), o.States)
		assert.ErrorIs(t, o.Err, mediaproxy.ErrKeyUnavailable)
	})
}

func TestFetch_EncryptedExportsPlaintext(t *testing.T) {
	f := newFixture(t)
	f.srv.EnableKey()
	file := f.srv.AddEncrypted(testURI, []byte("secret picture"))
	f.srv.SetClean(testURI, true)

	o, err := f.svc.Fetch(context.Background(), &mediaproxy.EncryptedAttachment{File: file, MimeType: "image/png"}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StateResolved, o.State())
	assert.Equal(t, []byte("secret picture"), o.Blob.Data)

	require.NotEmpty(t, o.Location)
	assert.Equal(t, "abc123", filepath.Base(o.Location))
	b, err := os.ReadFile(o.Location)
	require.NoError(t, err)
	assert.Equal(t, []byte("secret picture"), b)

	records := f.history(t)
	require.Len(t, records, 1)
	assert.Equal(t, models.StateResolved, records[0].State)
	assert.Equal(t, o.Location, records[0].Location)
}

func TestFetch_PlainDownloadsThroughProxy(t *testing.T) {
	f := newFixture(t)
	f.srv.SetClean(testURI, true)
	f.srv.AddPlain(testURI, []byte("report"), "application/pdf")

	o, err := f.svc.Fetch(context.Background(), &mediaproxy.PlainAttachment{URL: testURI}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, states(models.StateInit, models.StateSubmitted, models.StateClean, models.StateFetching, models.StateResolved), o.States)
	assert.Equal(t, "application/pdf", o.Blob.MimeType)
	assert.Len(t, f.srv.RequestsTo(common.DownloadPath), 1)
}

func TestFetch_UncleanDownloadsNothing(t *testing.T) {
	f := newFixture(t)
	file := f.srv.AddEncrypted(testURI, []byte("malware"))
	f.srv.SetClean(testURI, false)

	o, err := f.svc.Fetch(context.Background(), &mediaproxy.EncryptedAttachment{File: file}, false, nil)
	require.ErrorIs(t, err, mediaproxy.ErrProxyRejected)
	assert.Equal(t, models.StateRejected, o.State())
	assert.Nil(t, o.Blob)
	assert.Empty(t, f.srv.RequestsTo(common.DownloadEncryptedPath))

	_, statErr := os.Stat(f.outDir)
	assert.True(t, os.IsNotExist(statErr), "nothing exported")
}

func TestFetch_SubstitutedCiphertextFails(t *testing.T) {
	f := newFixture(t)
	file := f.srv.AddEncrypted(testURI, []byte("scanned"))
	f.srv.SetClean(testURI, true)
	f.srv.SetCiphertext(testURI, []byte("something else entirely"))

	o, err := f.svc.Fetch(context.Background(), &mediaproxy.EncryptedAttachment{File: file}, false, nil)
	require.ErrorIs(t, err, mediaproxy.ErrBindingMismatch)
	assert.Equal(t, states(models.StateInit, models.StateKeyAbsent, models.StateSubmitted, models.StateClean, models.StateFetching, models.StateFailed), o.States)
}

func TestLocate(t *testing.T) {
	f := newFixture(t)
	f.srv.SetClean(testURI, true)
	ctx := context.Background()

	o, err := f.svc.Locate(ctx, &mediaproxy.PlainAttachment{URL: testURI}, true)
	require.NoError(t, err)
	assert.Equal(t, f.srv.URL+common.ThumbnailPath+"example.org/abc123"+common.ThumbnailParams, o.Location)
	assert.Empty(t, f.srv.RequestsTo(common.ThumbnailPath), "locating downloads nothing")

	_, err = f.svc.Locate(ctx, &mediaproxy.EncryptedAttachment{File: &event.EncryptedFileInfo{URL: testURI}}, false)
	assert.ErrorIs(t, err, ErrNoDirectURL)
}

func TestScanBatch_NoDeduplication(t *testing.T) {
	f := newFixture(t)
	other := id.ContentURIString("mxc://example.org/other")
	f.srv.SetClean(testURI, true)
	f.srv.SetClean(other, false)

	items := []mediaproxy.Attachment{
		&mediaproxy.PlainAttachment{URL: testURI},
		&mediaproxy.PlainAttachment{URL: other},
		&mediaproxy.PlainAttachment{URL: testURI},
		&mediaproxy.PlainAttachment{},
		&mediaproxy.PlainAttachment{URL: testURI},
	}

	outcomes, err := f.svc.ScanBatch(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, outcomes, len(items))

	assert.Equal(t, models.StateClean, outcomes[0].State())
	assert.Equal(t, models.StateRejected, outcomes[1].State())
	assert.Equal(t, models.StateClean, outcomes[2].State())
	assert.Equal(t, models.StateFailed, outcomes[3].State())
	assert.Equal(t, models.StateClean, outcomes[4].State())

	assert.Len(t, f.srv.RequestsTo(common.ScanPath), 4)
	assert.Len(t, f.history(t), len(items))

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats[models.StateClean])
	assert.Equal(t, 1, stats[models.StateRejected])
	assert.Equal(t, 1, stats[models.StateFailed])
}

func TestProxyKey_PinsAndDetectsRotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.svc.ProxyKey(ctx)
	require.NoError(t, err)
	assert.False(t, st.Available)
	assert.Empty(t, st.Pinned)

	first := f.srv.EnableKey()
	st, err = f.svc.ProxyKey(ctx)
	require.NoError(t, err)
	assert.True(t, st.Available)
	assert.Equal(t, first, st.Current)
	assert.False(t, st.Rotated)

	st, err = f.svc.ProxyKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, st.Pinned)
	assert.False(t, st.Rotated)

	second := f.srv.EnableKey()
	st, err = f.svc.ProxyKey(ctx)
	require.NoError(t, err)
	assert.True(t, st.Rotated)
	assert.Equal(t, first, st.Pinned)
	assert.Equal(t, second, st.Current)

	require.NoError(t, f.svc.ForgetProxyKey(ctx))
	_, ok, err := f.repos.Metadata.Get(ctx, "proxy_public_key")
	require.NoError(t, err)
	assert.False(t, ok)
}

type failingSink struct{}

func (failingSink) Put(context.Context, string, string, []byte) (string, error) {
	return "", errors.New("disk full")
}

type cleanProxy struct{}

func (cleanProxy) FetchPublicKey(context.Context) (string, bool) { return "", false }

func (cleanProxy) Scan(context.Context, mediaproxy.Attachment) mediaproxy.Verdict {
	return mediaproxy.Verdict{Clean: true, Mode: mediaproxy.ModeUnsealed}
}

func (cleanProxy) Resolve(context.Context, mediaproxy.Attachment, mediaproxy.Verdict, bool) (*mediaproxy.Resolution, error) {
	return &mediaproxy.Resolution{Blob: &mediaproxy.Blob{Data: []byte("x"), MimeType: "text/plain"}}, nil
}

func (cleanProxy) FetchPlain(context.Context, *mediaproxy.Resolution, mediaproxy.Verdict) (*mediaproxy.Blob, error) {
	return nil, errors.New("unexpected")
}

func TestFetch_ExportFailure(t *testing.T) {
	repos, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "j.db"))
	require.NoError(t, err)
	defer repos.Close()

	svc := NewMediaService(cleanProxy{}, repos, failingSink{}, nil, 1)
	o, err := svc.Fetch(context.Background(), &mediaproxy.EncryptedAttachment{File: &event.EncryptedFileInfo{URL: testURI}}, false, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, models.StateFailed, o.State())
}

func TestExportName(t *testing.T) {
	assert.Equal(t, "abc123", exportName("mxc://example.org/abc123", false))
	assert.Equal(t, "abc123-thumbnail", exportName("mxc://example.org/abc123", true))
	assert.Equal(t, "attachment", exportName("", false))
}

func TestFetch_ExplicitDestination(t *testing.T) {
	f := newFixture(t)
	file := f.srv.AddEncrypted(testURI, []byte("to stdout"))
	f.srv.SetClean(testURI, true)

	var buf bytes.Buffer
	o, err := f.svc.Fetch(context.Background(), &mediaproxy.EncryptedAttachment{File: file}, false, sink.NewWriterSink(&buf))
	require.NoError(t, err)
	assert.Equal(t, "-", o.Location)
	assert.Equal(t, "to stdout", buf.String())

	_, statErr := os.Stat(f.outDir)
	assert.True(t, os.IsNotExist(statErr), "default sink untouched")
}

type countingJournal struct {
	journal.Repository
	inserts int
}

func (c *countingJournal) Insert(ctx context.Context, rec *models.JournalRecord) error {
	c.inserts++
	return c.Repository.Insert(ctx, rec)
}

func TestNewMediaService_UsesInjectedRepositories(t *testing.T) {
	repos, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "j.db"))
	require.NoError(t, err)
	defer repos.Close()

	spy := &countingJournal{Repository: repos.Journal}
	repos.Journal = spy

	svc := NewMediaService(cleanProxy{}, repos, nil, nil, 1)
	o := svc.Scan(context.Background(), &mediaproxy.EncryptedAttachment{File: &event.EncryptedFileInfo{URL: testURI}})
	assert.Equal(t, models.StateClean, o.State())
	assert.Equal(t, 1, spy.inserts)

	records, err := svc.History(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
