package storage

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ClientOptions configures the shared GCS client.
type ClientOptions struct {
	// Credentials is either a JSON key or a path to a key file.
	Credentials  string
	EmulatorHost string
}

// NewClient creates a GCS client, talking to an emulator when one is configured.
func NewClient(ctx context.Context, opts ClientOptions) (*storage.Client, error) {
	if host := strings.TrimRight(strings.TrimSpace(opts.EmulatorHost), "/"); host != "" {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}

	var clientOpts []option.ClientOption
	creds := strings.TrimSpace(opts.Credentials)
	switch {
	case strings.HasPrefix(creds, "{"):
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(creds)))
	case creds != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(creds))
	}
	clientOpts = append(clientOpts, option.WithScopes(storage.ScopeReadWrite))

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return client, nil
}

type gcsStore struct {
	client     *storage.Client
	bucket     string
	publicBase string
	emulator   string
	log        *zap.Logger
}

// NewGCSStore returns an ObjectStore backed by one GCS bucket.
// publicBase overrides the default https://storage.googleapis.com host for URLs.
func NewGCSStore(client *storage.Client, bucket, publicBase, emulatorHost string, log *zap.Logger) ObjectStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &gcsStore{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(strings.TrimSpace(publicBase), "/"),
		emulator:   strings.TrimRight(strings.TrimSpace(emulatorHost), "/"),
		log:        log.With(zap.String("component", "gcs"), zap.String("bucket", bucket)),
	}
}

func (s *gcsStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object writer %q: %w", key, err)
	}
	s.log.Debug("object uploaded", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

func (s *gcsStore) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	switch {
	case s.publicBase != "":
		return fmt.Sprintf("%s/%s/%s", s.publicBase, s.bucket, key)
	case s.emulator != "":
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", s.emulator, url.PathEscape(s.bucket), url.PathEscape(key))
	default:
		return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
	}
}

func (s *gcsStore) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	out := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects %q: %w", prefix, err)
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

// Remove deletes every path and reports all failures together.
// Objects that are already gone count as removed.
func (s *gcsStore) Remove(ctx context.Context, paths []string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var errs []error
	for _, p := range paths {
		err := s.client.Bucket(s.bucket).Object(p).Delete(ctx)
		if err != nil && !stderrors.Is(err, storage.ErrObjectNotExist) {
			errs = append(errs, fmt.Errorf("delete object %q: %w", p, err))
		}
	}
	return stderrors.Join(errs...)
}
