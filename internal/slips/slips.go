// Package slips prepares and stores proof photos: fuel slips, purchase slips and
// mortality photos.
package slips

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// JPEGQuality matches the compression the capture screen applies.
const JPEGQuality = 50

// ErrUploadDisabled is returned when no bucket is configured.
var ErrUploadDisabled = errors.New("slip upload is not configured")

// Uploader stores a local photo and returns its public URL
type Uploader interface {
	Upload(ctx context.Context, folder, filePath string) (string, error)
}

// Prepare decodes an image, scales it down to maxWidth (keeping aspect ratio) and
// re-encodes it as JPEG. maxWidth <= 0 keeps the original size.
func Prepare(r io.Reader, maxWidth int) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// ObjectName is where a slip is stored inside the bucket
func ObjectName(folder string) string {
	folder = strings.Trim(folder, "/")
	return path.Join(folder, uuid.NewString()+".jpg")
}

// PublicURL of an object in a public bucket
func PublicURL(bucket, object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, object)
}

// GCSUploader writes slips to Google Cloud Storage
type GCSUploader struct {
	client   *storage.Client
	bucket   string
	maxWidth int
	log      *logrus.Logger
}

// NewGCSUploader uses credentialsJSON when given, Application Default Credentials otherwise
func NewGCSUploader(ctx context.Context, bucket, credentialsJSON string, maxWidth int, log *logrus.Logger) (*GCSUploader, error) {
	var opts []option.ClientOption
	if strings.TrimSpace(credentialsJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSUploader{client: client, bucket: bucket, maxWidth: maxWidth, log: log}, nil
}

// Close releases the storage client
func (u *GCSUploader) Close() error {
	return u.client.Close()
}

// Upload prepares the photo at filePath and stores it under folder
func (u *GCSUploader) Upload(ctx context.Context, folder, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open %q: %w", filePath, err)
	}
	defer f.Close()

	data, err := Prepare(f, u.maxWidth)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	object := ObjectName(folder)
	w := u.client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "image/jpeg"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload of %s: %w", object, err)
	}

	u.log.WithFields(logrus.Fields{"object": object, "bytes": len(data)}).Info("Slip uploaded")
	return PublicURL(u.bucket, object), nil
}

// Disabled is the Uploader used when GCS_BUCKET is empty
type Disabled struct{}

func (Disabled) Upload(ctx context.Context, folder, filePath string) (string, error) {
	return "", ErrUploadDisabled
}
