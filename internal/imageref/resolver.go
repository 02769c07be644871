// Package imageref replaces client-side blob placeholders in document
// content with URLs of images uploaded to the object store.
package imageref

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"smartdocs/internal/model"
	"smartdocs/internal/storage"
)

var tracer = otel.Tracer("smartdocs/imageref")

// Result is the outcome of one Resolve call.
type Result struct {
	Content string
	// Paths are the object paths that were uploaded, in input order.
	Paths []string
	// Unresolved counts references whose placeholder could not be replaced.
	Unresolved int
}

// Resolver uploads referenced images and rewrites their placeholders.
type Resolver struct {
	store storage.ObjectStore
	newID func() string
	log   *zap.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithIDGenerator replaces the random id source used for object names.
func WithIDGenerator(fn func() string) Option {
	return func(r *Resolver) {
		r.newID = fn
	}
}

// NewResolver creates a Resolver writing to store.
func NewResolver(store storage.ObjectStore, log *zap.Logger, opts ...Option) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Resolver{
		store: store,
		newID: func() string { return uuid.New().String() },
		log:   log.With(zap.String("component", "imageref")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DocumentPrefix is the object prefix holding a document's images.
func DocumentPrefix(documentID uint) string {
	return strconv.FormatUint(uint64(documentID), 10) + "/"
}

// Resolve walks refs in order. For each reference with a blob key still
// present in content it uploads the image under owner (or a fresh temp_
// prefix when owner is empty) and replaces every occurrence of the key with
// the public URL. A later reference repeating an already replaced key finds
// nothing to replace and is skipped. Failed decodes or uploads leave the
// placeholder untouched.
func (r *Resolver) Resolve(ctx context.Context, content string, refs []model.ImageReference, owner string) Result {
	ctx, span := tracer.Start(ctx, "imageref.Resolve")
	defer span.End()
	span.SetAttributes(attribute.Int("imageref.count", len(refs)))

	if owner == "" {
		owner = "temp_" + r.newID()
	}
	owner = strings.TrimSuffix(owner, "/")

	res := Result{Content: content}
	for i, ref := range refs {
		key, ok := ExtractKey(ref.Refer)
		if !ok {
			continue
		}
		if !strings.Contains(res.Content, key) {
			r.log.Debug("placeholder not in content", zap.Int("index", i), zap.String("key", key))
			continue
		}

		data, typ, err := DecodePayload(ref.ImgByte)
		if err != nil {
			res.Unresolved++
			r.log.Warn("image payload rejected", zap.Int("index", i), zap.String("key", key), zap.Error(err))
			continue
		}

		hint := fmt.Sprintf("image_%d.%s", len(res.Paths), typ.Ext)
		path := fmt.Sprintf("%s/%s_%s", owner, r.newID(), hint)
		if err := r.store.Upload(ctx, path, data, typ.ContentType); err != nil {
			res.Unresolved++
			r.log.Warn("image upload failed", zap.String("path", path), zap.String("key", key), zap.Error(err))
			continue
		}

		res.Content = strings.ReplaceAll(res.Content, key, r.store.PublicURL(path))
		res.Paths = append(res.Paths, path)
	}

	span.SetAttributes(
		attribute.Int("imageref.uploaded", len(res.Paths)),
		attribute.Int("imageref.unresolved", res.Unresolved),
	)
	return res
}

// Purge removes every object stored under prefix. Callers treat failures as best effort.
func (r *Resolver) Purge(ctx context.Context, prefix string) error {
	paths, err := r.store.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list images %q: %w", prefix, err)
	}
	if len(paths) == 0 {
		return nil
	}
	if err := r.store.Remove(ctx, paths); err != nil {
		return fmt.Errorf("remove images %q: %w", prefix, err)
	}
	r.log.Info("images removed", zap.String("prefix", prefix), zap.Int("count", len(paths)))
	return nil
}

// PurgeDocument removes every image stored for a document.
func (r *Resolver) PurgeDocument(ctx context.Context, documentID uint) error {
	return r.Purge(ctx, DocumentPrefix(documentID))
}
