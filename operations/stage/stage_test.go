package stage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sfomuseum/go-arcgis-layers/content"
	"github.com/sfomuseum/go-arcgis-layers/content/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"
)

const testGeoJSON = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"uid":"a"},"geometry":null}]}`

var errTest = errors.New("test error")

type failingStore struct {
	content.Store
}

func (s *failingStore) AddItem(ctx context.Context, props *content.ItemProperties, filename string, r io.Reader) (content.Item, error) {
	return nil, errTest
}

type undeletableItem struct {
	content.Item
}

func (i *undeletableItem) Delete(ctx context.Context) error {
	return errTest
}

type undeletableStore struct {
	content.Store
}

func (s *undeletableStore) AddItem(ctx context.Context, props *content.ItemProperties, filename string, r io.Reader) (content.Item, error) {

	item, err := s.Store.AddItem(ctx, props, filename, r)

	if err != nil {
		return nil, err
	}

	return &undeletableItem{item}, nil
}

func newTestStore(t *testing.T) (*blobstore.BlobStore, *blob.Bucket) {

	store_bucket := memblob.OpenBucket(nil)
	staging_bucket := memblob.OpenBucket(nil)

	t.Cleanup(func() {
		store_bucket.Close()
		staging_bucket.Close()
	})

	s, err := blobstore.NewBlobStoreWithBucket(context.Background(), store_bucket)
	require.NoError(t, err)

	return s, staging_bucket
}

func assertEmptyBucket(t *testing.T, bucket *blob.Bucket) {

	iter := bucket.List(nil)
	obj, err := iter.Next(context.Background())

	assert.Equal(t, io.EOF, err)
	assert.Nil(t, obj)
}

func TestResolveProperties(t *testing.T) {

	props := ResolveProperties(nil, nil)

	assert.Equal(t, DEFAULT_TITLE, props.Title)
	assert.Equal(t, []string{DEFAULT_TAG}, props.Tags)
	assert.Equal(t, content.GEOJSON_ITEM_TYPE, props.Type)

	custom := &content.ItemProperties{
		Title: "Flights",
		Type:  "CSV",
		Extra: map[string]any{"snippet": "hello"},
	}

	defaults := &Defaults{
		Title: "Other",
		Tag:   "other-tag",
	}

	props = ResolveProperties(custom, defaults)

	assert.Equal(t, "Flights", props.Title)
	assert.Equal(t, []string{"other-tag"}, props.Tags)
	assert.Equal(t, content.GEOJSON_ITEM_TYPE, props.Type)
	assert.Equal(t, "hello", props.Extra["snippet"])

	props.Extra["snippet"] = "changed"
	assert.Equal(t, "hello", custom.Extra["snippet"])
}

func TestResolveProperties_ReservedExtra(t *testing.T) {

	custom := &content.ItemProperties{
		Extra: map[string]any{
			"type":    "CSV",
			"title":   "Other title",
			"tags":    "other-tag",
			"snippet": "hello",
		},
	}

	props := ResolveProperties(custom, nil)

	assert.Equal(t, content.GEOJSON_ITEM_TYPE, props.Type)
	assert.Equal(t, DEFAULT_TITLE, props.Title)
	assert.Equal(t, []string{DEFAULT_TAG}, props.Tags)
	assert.Equal(t, map[string]any{"snippet": "hello"}, props.Extra)
}

func TestUpload(t *testing.T) {

	ctx := context.Background()
	s, staging := newTestStore(t)

	opts := &UploadOptions{
		Store:   s,
		Bucket:  staging,
		GeoJSON: []byte(testGeoJSON),
		Properties: &content.ItemProperties{
			Tags:  []string{"flights"},
			Extra: map[string]any{"snippet": "hello"},
		},
	}

	item, err := Upload(ctx, opts)
	require.NoError(t, err)

	assert.Equal(t, DEFAULT_TITLE, item.Title())
	assert.Equal(t, []string{"flights"}, item.Tags())
	assert.Equal(t, content.GEOJSON_ITEM_TYPE, item.Type())
	assert.Equal(t, "hello", item.(*blobstore.BlobItem).Extra()["snippet"])

	assertEmptyBucket(t, staging)
}

func TestUpload_Failure(t *testing.T) {

	ctx := context.Background()
	s, staging := newTestStore(t)

	opts := &UploadOptions{
		Store:   &failingStore{s},
		Bucket:  staging,
		GeoJSON: []byte(testGeoJSON),
	}

	_, err := Upload(ctx, opts)
	assert.ErrorIs(t, err, errTest)

	assertEmptyBucket(t, staging)

	opts.Bucket = nil
	_, err = Upload(ctx, opts)
	assert.Error(t, err)
}

func TestWithStagedItem(t *testing.T) {

	ctx := context.Background()
	s, staging := newTestStore(t)

	opts := &UploadOptions{
		Store:   s,
		Bucket:  staging,
		GeoJSON: []byte(testGeoJSON),
	}

	var staged_id string

	err := WithStagedItem(ctx, opts, func(ctx context.Context, item content.Item) error {
		staged_id = item.ID()
		return nil
	})

	require.NoError(t, err)

	exists, err := s.Exists(ctx, staged_id)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWithStagedItem_CallbackError(t *testing.T) {

	ctx := context.Background()
	s, staging := newTestStore(t)

	opts := &UploadOptions{
		Store:   s,
		Bucket:  staging,
		GeoJSON: []byte(testGeoJSON),
	}

	var staged_id string

	err := WithStagedItem(ctx, opts, func(ctx context.Context, item content.Item) error {
		staged_id = item.ID()
		return errTest
	})

	assert.ErrorIs(t, err, errTest)

	exists, err := s.Exists(ctx, staged_id)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWithStagedItem_Panic(t *testing.T) {

	ctx := context.Background()
	s, staging := newTestStore(t)

	opts := &UploadOptions{
		Store:   s,
		Bucket:  staging,
		GeoJSON: []byte(testGeoJSON),
	}

	var staged_id string

	assert.Panics(t, func() {
		WithStagedItem(ctx, opts, func(ctx context.Context, item content.Item) error {
			staged_id = item.ID()
			panic("boom")
		})
	})

	exists, err := s.Exists(ctx, staged_id)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWithStagedItem_DeleteError(t *testing.T) {

	ctx := context.Background()
	s, staging := newTestStore(t)

	opts := &UploadOptions{
		Store:   &undeletableStore{s},
		Bucket:  staging,
		GeoJSON: []byte(testGeoJSON),
	}

	err := WithStagedItem(ctx, opts, func(ctx context.Context, item content.Item) error {
		return nil
	})

	assert.ErrorIs(t, err, errTest)

	cb_err := errors.New("callback error")

	err = WithStagedItem(ctx, opts, func(ctx context.Context, item content.Item) error {
		return cb_err
	})

	assert.ErrorIs(t, err, cb_err)
	assert.ErrorIs(t, err, errTest)
}
