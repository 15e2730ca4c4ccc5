package retryability

import (
	"context"
	"fmt"

	"github.com/roach88/retrywrites/internal/ir"
	"github.com/roach88/retrywrites/internal/oplog"
)

// FindAndModifyIntent is what the retried find-and-modify asked for.
type FindAndModifyIntent struct {
	Remove    bool
	Upsert    bool
	ReturnNew bool

	// Namespace, when set, must match the record's namespace.
	Namespace string
}

// FindAndModifyResult is the reply state of a retried find-and-modify.
type FindAndModifyResult struct {
	N int

	// UpdatedExisting is nil for a remove, true when an existing document
	// was updated, false when the command upserted.
	UpdatedExisting *bool

	// UpsertedID is {_id: <value>} when the command upserted a document
	// that has an _id.
	UpsertedID ir.Document

	// Value is the document returned to the client.
	Value ir.Document
}

type imageKind string

const (
	preImage  imageKind = "pre"
	postImage imageKind = "post"
)

// imageLinks are the pre/post links a find-and-modify is answered from.
type imageLinks struct {
	pre, post *oplog.OpTime
}

// linksFor returns the carrier's links when it has any, otherwise the inner
// record's. A relayed find-and-modify keeps its links on the outer record.
func linksFor(rec, inner oplog.Record) imageLinks {
	if rec.HasImageLink() {
		return imageLinks{pre: rec.PreImageOpTime, post: rec.PostImageOpTime}
	}
	return imageLinks{pre: inner.PreImageOpTime, post: inner.PostImageOpTime}
}

// ReconstructFindAndModify answers a retried find-and-modify from the record
// it produced, fetching the pre- or post-image through lookup when the
// returned document is not in the record itself.
//
// Lookup failures other than a missing image are returned wrapped, never as
// a document.
func ReconstructFindAndModify(ctx context.Context, intent FindAndModifyIntent, rec oplog.Record, lookup ImageLookup) (FindAndModifyResult, error) {
	inner, err := unwrap(rec)
	if err != nil {
		return FindAndModifyResult{}, err
	}

	if intent.Namespace != "" && intent.Namespace != inner.Namespace {
		return FindAndModifyResult{}, newIntentMismatchError(rec.OpTime, inner,
			"retry targets %q but the record is for %q", intent.Namespace, inner.Namespace)
	}

	links := linksFor(rec, inner)

	switch inner.Op {
	case oplog.OpInsert:
		return reconstructUpsert(intent, rec.OpTime, inner)
	case oplog.OpDelete:
		return reconstructRemove(ctx, intent, rec.OpTime, inner, links, lookup)
	case oplog.OpUpdate:
		return reconstructModify(ctx, intent, rec.OpTime, inner, links, lookup)
	default:
		return FindAndModifyResult{}, newKindMismatchError(CommandFindAndModify, rec.OpTime, inner)
	}
}

func reconstructUpsert(intent FindAndModifyIntent, at oplog.OpTime, inner oplog.Record) (FindAndModifyResult, error) {
	if !intent.Upsert || intent.Remove {
		return FindAndModifyResult{}, newIntentMismatchError(at, inner,
			"record is an insert but the retry is not an upsert (upsert=%t, remove=%t)", intent.Upsert, intent.Remove)
	}

	updated := false
	result := FindAndModifyResult{
		N:               1,
		UpdatedExisting: &updated,
		Value:           inner.Object.Clone(),
	}
	if id, ok := inner.DocumentID(); ok {
		result.UpsertedID = ir.Doc(ir.E(oplog.IDField, id)).Clone()
	}
	return result, nil
}

func reconstructRemove(ctx context.Context, intent FindAndModifyIntent, at oplog.OpTime, inner oplog.Record, links imageLinks, lookup ImageLookup) (FindAndModifyResult, error) {
	if !intent.Remove {
		return FindAndModifyResult{}, newIntentMismatchError(at, inner, "record is a delete but the retry is not a remove")
	}
	if links.pre == nil {
		return FindAndModifyResult{}, newImageNotFoundError(at, "delete record has no pre-image link")
	}

	doc, err := fetchImage(ctx, lookup, preImage, *links.pre)
	if err != nil {
		return FindAndModifyResult{}, err
	}
	return FindAndModifyResult{N: 1, Value: doc}, nil
}

func reconstructModify(ctx context.Context, intent FindAndModifyIntent, at oplog.OpTime, inner oplog.Record, links imageLinks, lookup ImageLookup) (FindAndModifyResult, error) {
	if intent.Remove {
		return FindAndModifyResult{}, newIntentMismatchError(at, inner, "record is an update but the retry is a remove")
	}
	if links.pre != nil && links.post != nil {
		return FindAndModifyResult{}, newIntentMismatchError(at, inner, "record links both a pre-image and a post-image")
	}

	kind, link := preImage, links.pre
	if intent.ReturnNew {
		kind, link = postImage, links.post
	}
	if link == nil {
		return FindAndModifyResult{}, newIntentMismatchError(at, inner,
			"retry asks for the %s-image (new=%t) but the record has no %s-image link", kind, intent.ReturnNew, kind)
	}

	doc, err := fetchImage(ctx, lookup, kind, *link)
	if err != nil {
		return FindAndModifyResult{}, err
	}
	updated := true
	return FindAndModifyResult{N: 1, UpdatedExisting: &updated, Value: doc}, nil
}

func fetchImage(ctx context.Context, lookup ImageLookup, kind imageKind, at oplog.OpTime) (ir.Document, error) {
	if lookup == nil {
		return nil, fmt.Errorf("fetch %s-image at %s: no image lookup configured", kind, at)
	}
	doc, found, err := lookup.FetchImage(ctx, at)
	if err != nil {
		return nil, fmt.Errorf("fetch %s-image at %s: %w", kind, at, err)
	}
	if !found {
		return nil, newImageNotFoundError(at, "%s-image is no longer in the log", kind)
	}
	return doc, nil
}
