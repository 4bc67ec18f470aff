package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"

	"github.com/dmitrijs2005/mediagate/internal/client/client"
	"github.com/dmitrijs2005/mediagate/internal/client/mediaproxy"
	"github.com/dmitrijs2005/mediagate/internal/client/models"
	"github.com/dmitrijs2005/mediagate/internal/client/repositories/journal"
	"github.com/dmitrijs2005/mediagate/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/mediagate/internal/client/sink"
	"github.com/dmitrijs2005/mediagate/internal/dbx"
	"github.com/dmitrijs2005/mediagate/internal/logging"
	"golang.org/x/sync/errgroup"
)

// ErrNoDirectURL is returned when a URL is asked for encrypted media, which
// is only ever delivered decrypted.
var ErrNoDirectURL = errors.New("encrypted media has no direct download URL")

// Proxy is the subset of the media proxy client the service drives.
type Proxy interface {
	FetchPublicKey(ctx context.Context) (string, bool)
	Scan(ctx context.Context, a mediaproxy.Attachment) mediaproxy.Verdict
	Resolve(ctx context.Context, a mediaproxy.Attachment, v mediaproxy.Verdict, thumbnail bool) (*mediaproxy.Resolution, error)
	FetchPlain(ctx context.Context, res *mediaproxy.Resolution, v mediaproxy.Verdict) (*mediaproxy.Blob, error)
}

// KeyStatus compares the proxy's current key with the pinned one.
type KeyStatus struct {
	Current   string
	Available bool
	Pinned    string
	Rotated   bool
}

type MediaService interface {
	// Scan submits a for scanning and journals the outcome.
	Scan(ctx context.Context, a mediaproxy.Attachment) *Outcome
	// Fetch scans a and, when clean, retrieves its bytes and exports them
	// to dst, or to the service sink when dst is nil.
	Fetch(ctx context.Context, a mediaproxy.Attachment, thumbnail bool, dst sink.Sink) (*Outcome, error)
	// Locate scans a plain attachment and returns its proxy download URL
	// without downloading it.
	Locate(ctx context.Context, a mediaproxy.Attachment, thumbnail bool) (*Outcome, error)
	// ScanBatch scans every attachment with bounded parallelism. Outcomes
	// are returned in input order.
	ScanBatch(ctx context.Context, items []mediaproxy.Attachment) ([]*Outcome, error)
	History(ctx context.Context, limit int) ([]models.JournalRecord, error)
	Stats(ctx context.Context) (map[models.ScanState]int, error)
	// ProxyKey fetches the proxy key and pins it, reporting rotations.
	ProxyKey(ctx context.Context) (*KeyStatus, error)
	ForgetProxyKey(ctx context.Context) error
}

type mediaService struct {
	proxy       Proxy
	db          *sql.DB
	journal     journal.Repository
	settings    metadata.Repository
	sink        sink.Sink
	log         logging.Logger
	parallelism int
}

// NewMediaService wires a MediaService over repos. snk may be nil, in which
// case fetched media is kept in memory only.
func NewMediaService(proxy Proxy, repos *client.Repositories, snk sink.Sink, log logging.Logger, parallelism int) MediaService {
	if parallelism < 1 {
		parallelism = 1
	}
	if log == nil {
		log = logging.Discard()
	}
	return &mediaService{
		proxy:       proxy,
		db:          repos.DB,
		journal:     repos.Journal,
		settings:    repos.Metadata,
		sink:        snk,
		log:         log.With("component", "media"),
		parallelism: parallelism,
	}
}

func (s *mediaService) save(ctx context.Context, o *Outcome) {
	if err := s.journal.Insert(ctx, o.record()); err != nil {
		s.log.Error(ctx, "unable to journal outcome", "uri", o.ContentURI, "error", err)
	}
}

func (s *mediaService) scan(ctx context.Context, a mediaproxy.Attachment) *Outcome {
	o := newOutcome(a)
	o.applyVerdict(s.proxy.Scan(ctx, a))
	s.log.Info(ctx, "scanned", "uri", o.ContentURI, "mode", o.Verdict.Mode, "state", o.State())
	return o
}

func (s *mediaService) Scan(ctx context.Context, a mediaproxy.Attachment) *Outcome {
	o := s.scan(ctx, a)
	s.save(ctx, o)
	return o
}

func (s *mediaService) Fetch(ctx context.Context, a mediaproxy.Attachment, thumbnail bool, dst sink.Sink) (*Outcome, error) {
	if dst == nil {
		dst = s.sink
	}

	o := s.scan(ctx, a)
	defer s.save(ctx, o)

	if !o.Verdict.Clean {
		return o, o.Err
	}

	o.enter(models.StateFetching)
	res, err := s.proxy.Resolve(ctx, a, o.Verdict, thumbnail)
	if err != nil {
		o.fail(err)
		return o, err
	}
	o.Resolution = res

	blob := res.Blob
	if blob == nil {
		if blob, err = s.proxy.FetchPlain(ctx, res, o.Verdict); err != nil {
			o.fail(err)
			return o, err
		}
	}
	o.Blob = blob

	if dst != nil {
		loc, err := dst.Put(ctx, exportName(o.ContentURI, thumbnail), blob.MimeType, blob.Data)
		if err != nil {
			err = fmt.Errorf("export: %w", err)
			o.fail(err)
			return o, err
		}
		o.Location = loc
	}

	o.enter(models.StateResolved)
	s.log.Info(ctx, "fetched", "uri", o.ContentURI, "size", len(blob.Data), "location", o.Location)
	return o, nil
}

func (s *mediaService) Locate(ctx context.Context, a mediaproxy.Attachment, thumbnail bool) (*Outcome, error) {
	if _, ok := a.(*mediaproxy.PlainAttachment); !ok && a != nil {
		return nil, ErrNoDirectURL
	}

	o := s.scan(ctx, a)
	defer s.save(ctx, o)

	if !o.Verdict.Clean {
		return o, o.Err
	}

	o.enter(models.StateFetching)
	res, err := s.proxy.Resolve(ctx, a, o.Verdict, thumbnail)
	if err != nil {
		o.fail(err)
		return o, err
	}
	o.Resolution = res
	o.Location = res.URL
	o.enter(models.StateResolved)
	return o, nil
}

func (s *mediaService) ScanBatch(ctx context.Context, items []mediaproxy.Attachment) ([]*Outcome, error) {
	outcomes := make([]*Outcome, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, a := range items {
		g.Go(func() error {
			outcomes[i] = s.scan(gctx, a)
			return nil
		})
	}
	_ = g.Wait()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := journal.NewSQLiteRepository(tx)
		for _, o := range outcomes {
			if err := repo.Insert(ctx, o.record()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return outcomes, fmt.Errorf("journal batch: %w", err)
	}
	return outcomes, nil
}

func (s *mediaService) History(ctx context.Context, limit int) ([]models.JournalRecord, error) {
	return s.journal.List(ctx, limit)
}

func (s *mediaService) Stats(ctx context.Context) (map[models.ScanState]int, error) {
	return s.journal.CountByState(ctx)
}

func (s *mediaService) ProxyKey(ctx context.Context) (*KeyStatus, error) {
	pinned, _, err := s.settings.Get(ctx, metadata.KeyProxyPublicKey)
	if err != nil {
		return nil, err
	}

	st := &KeyStatus{Pinned: pinned}
	st.Current, st.Available = s.proxy.FetchPublicKey(ctx)
	if !st.Available {
		return st, nil
	}

	if pinned != "" && pinned != st.Current {
		st.Rotated = true
		s.log.Warn(ctx, "media proxy public key changed", "pinned", pinned, "current", st.Current)
	}
	if pinned != st.Current {
		if err := s.settings.Set(ctx, metadata.KeyProxyPublicKey, st.Current); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (s *mediaService) ForgetProxyKey(ctx context.Context) error {
	return s.settings.Delete(ctx, metadata.KeyProxyPublicKey)
}

// exportName derives a file name from the media id of uri.
func exportName(uri string, thumbnail bool) string {
	name := path.Base(uri)
	if name == "." || name == "/" || name == "" {
		name = "attachment"
	}
	if thumbnail {
		name += "-thumbnail"
	}
	return name
}
