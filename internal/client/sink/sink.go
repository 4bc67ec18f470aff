// Package sink exports resolved media: to a local directory or to an
// S3-compatible bucket through a presigned upload.
package sink

import (
	"context"
	"io"
	"path"
	"time"

	"github.com/dmitrijs2005/mediagate/internal/filex"
	"github.com/google/uuid"
)

// Sink stores media bytes and returns where they ended up.
type Sink interface {
	Put(ctx context.Context, name, contentType string, data []byte) (location string, err error)
}

// ObjectKey derives a unique, date-partitioned storage key for name.
func ObjectKey(prefix, name string) string {
	d := time.Now().UTC()
	return path.Join(prefix, d.Format("2006/01/02"), uuid.NewString()+"-"+filex.SafeName(name))
}

// FileSink writes media under a local directory created on demand.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (s *FileSink) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	dir, err := filex.EnsureDir(s.dir)
	if err != nil {
		return "", err
	}
	return filex.WriteFileAtomic(dir, name, data)
}

// WriterSink streams media to a writer, typically standard output.
type WriterSink struct {
	w io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Put(_ context.Context, _, _ string, data []byte) (string, error) {
	if _, err := s.w.Write(data); err != nil {
		return "", err
	}
	return "-", nil
}
