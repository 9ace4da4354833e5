package storage

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"

	"github.com/profefe/jsprof/pkg/profile"
	"golang.org/x/xerrors"
)

// MultiWriter writes every profile to all of its writers. The first writer issues the
// profile meta; the rest store the profile under the same id and creation time.
type MultiWriter struct {
	writers []Writer
}

var _ Writer = (*MultiWriter)(nil)

func NewMultiWriter(writers ...Writer) *MultiWriter {
	if len(writers) == 0 {
		panic("storage multiwriter with zero writer")
	}
	return &MultiWriter{
		writers: writers,
	}
}

func (mw *MultiWriter) WriteProfile(ctx context.Context, params *WriteProfileParams, r io.Reader) (profile.Meta, error) {
	// fast path for a case of a single writer in the chain
	if len(mw.writers) == 1 {
		return mw.writers[0].WriteProfile(ctx, params, r)
	}

	data, err := ioutil.ReadAll(r)
	if err != nil {
		return profile.Meta{}, err
	}

	meta, err := mw.writers[0].WriteProfile(ctx, params, bytes.NewReader(data))
	if err != nil {
		return profile.Meta{}, err
	}

	p := *params
	p.ExternalID = meta.ProfileID
	p.CreatedAt = meta.CreatedAt

	for n, w := range mw.writers[1:] {
		if _, err := w.WriteProfile(ctx, &p, bytes.NewReader(data)); err != nil {
			return profile.Meta{}, xerrors.Errorf("could not write profile %s to writer %d: %w", meta.ProfileID, n+1, err)
		}
	}
	return meta, nil
}
