package layers

import (
	"context"
	"testing"

	"github.com/sfomuseum/go-arcgis-layers/content"
	"github.com/sfomuseum/go-arcgis-layers/content/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

const scenarioGeoJSON = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"uid":"a"},"geometry":null}]}`

func newTestPublisher(t *testing.T, defaults *Defaults) (*Publisher, *blobstore.BlobStore) {

	store_bucket := memblob.OpenBucket(nil)
	staging_bucket := memblob.OpenBucket(nil)

	t.Cleanup(func() {
		store_bucket.Close()
		staging_bucket.Close()
	})

	s, err := blobstore.NewBlobStoreWithBucket(context.Background(), store_bucket)
	require.NoError(t, err)

	return NewPublisher(s, staging_bucket, defaults), s
}

func TestPublisher_Scenario(t *testing.T) {

	ctx := context.Background()
	pub, s := newTestPublisher(t, nil)

	lyr_item, err := pub.CreateScratchLayer(ctx, []byte(scenarioGeoJSON), "uid", nil)
	require.NoError(t, err)

	found, ok, err := pub.FindLayerByTag(ctx, "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, lyr_item.ID(), found.ID())

	staged, err := s.Search(ctx, content.SearchQuery(pub.Defaults.Tag, content.GEOJSON_ITEM_TYPE))
	require.NoError(t, err)
	assert.Empty(t, staged)

	layers, err := found.Layers(ctx)
	require.NoError(t, err)
	require.Len(t, layers, 1)

	indexes, err := layers[0].(*blobstore.BlobLayer).Indexes(ctx)
	require.NoError(t, err)
	require.Len(t, indexes, 1)
	assert.Equal(t, "External UID", indexes[0].Name)
	assert.Equal(t, "uid", indexes[0].Fields)

	update := []byte(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"uid":"a","v":2},"geometry":null},{"type":"Feature","properties":{"uid":"b"},"geometry":null}]}`)

	for i := 0; i < 2; i++ {
		_, err = pub.AppendToLayer(ctx, layers[0], update, "uid")
		require.NoError(t, err)
	}

	features, err := layers[0].(*blobstore.BlobLayer).Features(ctx)
	require.NoError(t, err)
	assert.Len(t, features, 2)

	clone, err := pub.CreateLayer(ctx, update, found)
	require.NoError(t, err)
	assert.NotEqual(t, found.ID(), clone.ID())

	staged, err = s.Search(ctx, content.SearchQuery(pub.Defaults.Tag, content.GEOJSON_ITEM_TYPE))
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestPublisher_Defaults(t *testing.T) {

	ctx := context.Background()

	defaults := &Defaults{
		Title:       "Flights",
		Tag:         "flights",
		UpdateTitle: "Flights update",
	}

	pub, _ := newTestPublisher(t, defaults)

	item, err := pub.UploadTempItem(ctx, []byte(scenarioGeoJSON), nil)
	require.NoError(t, err)

	assert.Equal(t, "Flights", item.Title())
	assert.Equal(t, []string{"flights"}, item.Tags())

	require.NoError(t, item.Delete(ctx))

	_, ok, err := pub.FindLayerByTag(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	lyr_item, err := pub.CreateScratchLayer(ctx, []byte(scenarioGeoJSON), "", nil)
	require.NoError(t, err)

	found, ok, err := pub.FindLayerByTag(ctx, "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, lyr_item.ID(), found.ID())

	// the package level defaults are unchanged
	assert.Equal(t, "geojson-utils-poc", DefaultDefaults().Tag)
}

func TestNewPublisherWithURIs(t *testing.T) {

	ctx := context.Background()

	pub, err := NewPublisherWithURIs(ctx, "blob://?bucket=mem://", "mem://", nil)
	require.NoError(t, err)

	assert.IsType(t, &blobstore.BlobStore{}, pub.Store)
	assert.Equal(t, DefaultDefaults(), pub.Defaults)

	lyr_item, err := pub.CreateScratchLayer(ctx, []byte(scenarioGeoJSON), "uid", nil)
	require.NoError(t, err)
	assert.Equal(t, content.FEATURE_SERVICE_ITEM_TYPE, lyr_item.Type())

	require.NoError(t, pub.Close())

	_, err = NewPublisherWithURIs(ctx, "bogus://", "mem://", nil)
	assert.Error(t, err)

	_, err = NewPublisherWithURIs(ctx, "blob://?bucket=mem://", "bogus://", nil)
	assert.Error(t, err)
}
