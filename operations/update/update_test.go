package update

import (
	"context"
	"errors"
	"testing"

	"github.com/sfomuseum/go-arcgis-layers/content"
	"github.com/sfomuseum/go-arcgis-layers/content/blobstore"
	"github.com/sfomuseum/go-arcgis-layers/operations/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"
)

const testGeoJSON = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"uid":"a"},"geometry":null},{"type":"Feature","properties":{"uid":"b"},"geometry":null}]}`

var errTest = errors.New("test error")

type failingLayer struct {
	content.Layer
}

func (l *failingLayer) Append(ctx context.Context, opts *content.AppendOptions) (*content.AppendResult, error) {
	return nil, errTest
}

type testEnv struct {
	store   *blobstore.BlobStore
	staging *blob.Bucket
	layer   *blobstore.BlobLayer
}

func newTestEnv(t *testing.T, uid_field string) *testEnv {

	ctx := context.Background()

	store_bucket := memblob.OpenBucket(nil)
	staging_bucket := memblob.OpenBucket(nil)

	t.Cleanup(func() {
		store_bucket.Close()
		staging_bucket.Close()
	})

	s, err := blobstore.NewBlobStoreWithBucket(ctx, store_bucket)
	require.NoError(t, err)

	upload_opts := &stage.UploadOptions{
		Store:   s,
		Bucket:  staging_bucket,
		GeoJSON: []byte(`{"type":"FeatureCollection","features":[]}`),
	}

	item, err := stage.Upload(ctx, upload_opts)
	require.NoError(t, err)

	lyr_item, err := item.Publish(ctx)
	require.NoError(t, err)

	require.NoError(t, item.Delete(ctx))

	layers, err := lyr_item.Layers(ctx)
	require.NoError(t, err)

	lyr := layers[0].(*blobstore.BlobLayer)

	if uid_field != "" {

		err := lyr.Manager().AddToDefinition(ctx, &content.DefinitionUpdate{
			Indexes: []*content.Index{
				{Name: "External UID", Fields: uid_field, IsUnique: true},
			},
		})

		require.NoError(t, err)
	}

	env := &testEnv{
		store:   s,
		staging: staging_bucket,
		layer:   lyr,
	}

	return env
}

func (env *testEnv) stagedItems(t *testing.T) []content.Item {

	q := content.SearchQuery(stage.DEFAULT_TAG, content.GEOJSON_ITEM_TYPE)

	results, err := env.store.Search(context.Background(), q)
	require.NoError(t, err)

	return results
}

func TestAppendToLayer_Upsert(t *testing.T) {

	ctx := context.Background()
	env := newTestEnv(t, "uid")

	opts := &AppendToLayerOptions{
		Store:    env.store,
		Bucket:   env.staging,
		Layer:    env.layer,
		GeoJSON:  []byte(testGeoJSON),
		UIDField: "uid",
	}

	rsp, err := AppendToLayer(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, rsp.Inserted)

	rsp, err = AppendToLayer(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, rsp.Inserted)
	assert.Equal(t, 2, rsp.Updated)

	features, err := env.layer.Features(ctx)
	require.NoError(t, err)
	assert.Len(t, features, 2)

	assert.Empty(t, env.stagedItems(t))
}

func TestAppendToLayer_Insert(t *testing.T) {

	ctx := context.Background()
	env := newTestEnv(t, "")

	opts := &AppendToLayerOptions{
		Store:   env.store,
		Bucket:  env.staging,
		Layer:   env.layer,
		GeoJSON: []byte(testGeoJSON),
	}

	for i := 0; i < 2; i++ {
		_, err := AppendToLayer(ctx, opts)
		require.NoError(t, err)
	}

	features, err := env.layer.Features(ctx)
	require.NoError(t, err)
	assert.Len(t, features, 4)
}

func TestAppendToLayer_UpdateTitle(t *testing.T) {

	ctx := context.Background()
	env := newTestEnv(t, "")

	var titles []string

	layer := &recordingLayer{
		Layer: env.layer,
		store: env.store,
		cb: func(item content.Item) {
			titles = append(titles, item.Title())
		},
	}

	opts := &AppendToLayerOptions{
		Store:   env.store,
		Bucket:  env.staging,
		Layer:   layer,
		GeoJSON: []byte(testGeoJSON),
		Defaults: &stage.Defaults{
			Title:       "title",
			Tag:         "tag",
			UpdateTitle: "update",
		},
	}

	_, err := AppendToLayer(ctx, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"update"}, titles)
}

func TestAppendToLayer_Failure(t *testing.T) {

	ctx := context.Background()
	env := newTestEnv(t, "uid")

	opts := &AppendToLayerOptions{
		Store:    env.store,
		Bucket:   env.staging,
		Layer:    &failingLayer{env.layer},
		GeoJSON:  []byte(testGeoJSON),
		UIDField: "uid",
	}

	_, err := AppendToLayer(ctx, opts)
	assert.ErrorIs(t, err, errTest)

	assert.Empty(t, env.stagedItems(t))

	// upsert on a field that isn't uniquely indexed is rejected by the layer
	opts.Layer = env.layer
	opts.UIDField = "other"

	_, err = AppendToLayer(ctx, opts)
	assert.Error(t, err)

	assert.Empty(t, env.stagedItems(t))
}

type recordingLayer struct {
	content.Layer
	store *blobstore.BlobStore
	cb    func(content.Item)
}

func (l *recordingLayer) Append(ctx context.Context, opts *content.AppendOptions) (*content.AppendResult, error) {

	item, err := l.store.Item(ctx, opts.ItemID)

	if err != nil {
		return nil, err
	}

	l.cb(item)
	return l.Layer.Append(ctx, opts)
}
