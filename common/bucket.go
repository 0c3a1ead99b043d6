package common

/*

Staging buckets are opened as one-offs by whoever needs them and closed by that
same code. Don't be tempted to keep a shared pool of them: calling Close() on a
pooled bucket stops it working for every other caller holding it.

*/

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aaronland/go-string/random"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"gocloud.dev/blob"
)

// The filename extension assigned to staged GeoJSON files.
const STAGING_EXTENSION string = ".geojson"

// DefaultStagingURI returns a gocloud.dev/blob URI for the operating system's temporary directory.
func DefaultStagingURI() string {
	return fmt.Sprintf("file://%s", filepath.ToSlash(os.TempDir()))
}

// OpenStagingBucket opens the gocloud.dev/blob Bucket where GeoJSON payloads are staged before
// being added to a content store. If `uri` is empty DefaultStagingURI is used.
func OpenStagingBucket(ctx context.Context, uri string) (*blob.Bucket, error) {

	if uri == "" {
		uri = DefaultStagingURI()
	}

	bucket, err := blob.OpenBucket(ctx, uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to open staging bucket '%s', %w", uri, err)
	}

	return bucket, nil
}

// StageGeoJSON writes `body` to a new, randomly named key in `bucket` and returns that key.
// Callers are responsible for deleting the key when they are done with it.
func StageGeoJSON(ctx context.Context, bucket *blob.Bucket, body []byte) (string, error) {

	rand_opts := random.DefaultOptions()
	rand_opts.AlphaNumeric = true

	name, err := random.String(rand_opts)

	if err != nil {
		return "", fmt.Errorf("Failed to generate staging key, %w", err)
	}

	key := name + STAGING_EXTENSION

	// staged data is never meant to be public

	before := func(asFunc func(interface{}) bool) error {

		s3_req := &s3manager.UploadInput{}
		ok := asFunc(&s3_req)

		if ok {
			s3_req.ACL = aws.String("private")
		}

		return nil
	}

	wr_opts := &blob.WriterOptions{
		ContentType: "application/geo+json",
		BeforeWrite: before,
	}

	wr, err := bucket.NewWriter(ctx, key, wr_opts)

	if err != nil {
		return "", fmt.Errorf("Failed to create writer for %s, %w", key, err)
	}

	_, err = wr.Write(body)

	if err != nil {
		wr.Close()
		bucket.Delete(ctx, key)
		return "", fmt.Errorf("Failed to write %s, %w", key, err)
	}

	err = wr.Close()

	if err != nil {
		bucket.Delete(ctx, key)
		return "", fmt.Errorf("Failed to close writer for %s, %w", key, err)
	}

	return key, nil
}
