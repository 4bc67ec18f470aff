package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/mediagate/internal/client/client"
	"github.com/dmitrijs2005/mediagate/internal/client/config"
	"github.com/dmitrijs2005/mediagate/internal/client/mediaproxy"
	"github.com/dmitrijs2005/mediagate/internal/client/services"
	"github.com/dmitrijs2005/mediagate/internal/client/session"
	"github.com/dmitrijs2005/mediagate/internal/client/sink"
	"github.com/dmitrijs2005/mediagate/internal/logging"
	"golang.org/x/term"
)

type App struct {
	config *config.Config
	media  services.MediaService
	repos  *client.Repositories
	log    logging.Logger
	stdout io.Writer
	// isTerminal reports whether stdout is an interactive terminal.
	isTerminal func() bool
}

// NewApp opens the journal and wires the media service described by c.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	repos, err := client.InitDatabase(ctx, c.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing journal: %w", err)
	}

	sess, err := session.New(c.HomeserverURL, session.WithTimeout(c.RequestTimeout))
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	policy, err := mediaproxy.ParseSealPolicy(c.SealPolicy)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	proxy := mediaproxy.New(sess, mediaproxy.WithLogger(log), mediaproxy.WithSealPolicy(policy))
	media := services.NewMediaService(proxy, repos, newSink(c, sess), log, c.BatchParallelism)

	return &App{
		config: c,
		media:  media,
		repos:  repos,
		log:    log,
		stdout: os.Stdout,
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdout.Fd()))
		},
	}, nil
}

func newSink(c *config.Config, sess *session.Session) sink.Sink {
	if c.S3Bucket != "" {
		return sink.NewS3Sink(sink.S3Config{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			Prefix:       c.S3Prefix,
		}, sess.HTTPClient())
	}
	return sink.NewFileSink(c.ExportDir)
}

// Close releases the journal database.
func (a *App) Close() error {
	return a.repos.Close()
}
