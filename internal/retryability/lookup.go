package retryability

import (
	"context"
	"sync"

	"github.com/roach88/retrywrites/internal/ir"
	"github.com/roach88/retrywrites/internal/oplog"
)

// ImageLookup fetches the document image stored at a log position.
//
// The image is the o payload of the record at exactly that position.
// found is false when no record exists there (for example after the log was
// truncated); err is reserved for failures to consult the log at all.
type ImageLookup interface {
	FetchImage(ctx context.Context, at oplog.OpTime) (doc ir.Document, found bool, err error)
}

// ImageLookupFunc adapts a function to ImageLookup.
type ImageLookupFunc func(ctx context.Context, at oplog.OpTime) (ir.Document, bool, error)

// FetchImage calls f.
func (f ImageLookupFunc) FetchImage(ctx context.Context, at oplog.OpTime) (ir.Document, bool, error) {
	return f(ctx, at)
}

// MapLookup is an in-memory ImageLookup keyed by position.
// It is safe for concurrent use.
type MapLookup struct {
	mu     sync.RWMutex
	images map[oplog.OpTime]ir.Document
}

// NewMapLookup returns a lookup pre-populated with the o payload of each record.
func NewMapLookup(recs ...oplog.Record) *MapLookup {
	m := &MapLookup{images: make(map[oplog.OpTime]ir.Document, len(recs))}
	for _, r := range recs {
		m.images[r.OpTime] = r.Object
	}
	return m
}

// Put stores doc as the image at position at.
func (m *MapLookup) Put(at oplog.OpTime, doc ir.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.images == nil {
		m.images = make(map[oplog.OpTime]ir.Document)
	}
	m.images[at] = doc
}

// Delete removes the image at position at.
func (m *MapLookup) Delete(at oplog.OpTime) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.images, at)
}

// FetchImage implements ImageLookup. The returned document is a copy.
func (m *MapLookup) FetchImage(ctx context.Context, at oplog.OpTime) (ir.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.images[at]
	if !ok {
		return nil, false, nil
	}
	return doc.Clone(), true, nil
}
