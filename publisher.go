package layers

import (
	"context"
	"fmt"

	"github.com/sfomuseum/go-arcgis-layers/common"
	"github.com/sfomuseum/go-arcgis-layers/content"
	"github.com/sfomuseum/go-arcgis-layers/operations/create"
	"github.com/sfomuseum/go-arcgis-layers/operations/find"
	"github.com/sfomuseum/go-arcgis-layers/operations/scratch"
	"github.com/sfomuseum/go-arcgis-layers/operations/stage"
	"github.com/sfomuseum/go-arcgis-layers/operations/update"
	"gocloud.dev/blob"
)

// Defaults is an alias for stage.Defaults.
type Defaults = stage.Defaults

// DefaultDefaults returns the system default item title, tag and update title.
func DefaultDefaults() *Defaults {
	return stage.DefaultDefaults()
}

// Publisher bundles a content store, a staging bucket and a set of defaults.
type Publisher struct {
	Store    content.Store
	Bucket   *blob.Bucket
	Defaults *Defaults
}

// NewPublisher returns a new Publisher instance. If `defaults` is nil DefaultDefaults() is used.
func NewPublisher(store content.Store, bucket *blob.Bucket, defaults *Defaults) *Publisher {

	if defaults == nil {
		defaults = DefaultDefaults()
	}

	p := &Publisher{
		Store:    store,
		Bucket:   bucket,
		Defaults: defaults,
	}

	return p
}

// NewPublisherWithURIs returns a new Publisher for the content store defined by `store_uri` and the staging
// bucket defined by `staging_uri`. Callers should invoke Close when they are done with it.
func NewPublisherWithURIs(ctx context.Context, store_uri string, staging_uri string, defaults *Defaults) (*Publisher, error) {

	store, err := content.NewStore(ctx, store_uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to create content store, %w", err)
	}

	bucket, err := common.OpenStagingBucket(ctx, staging_uri)

	if err != nil {
		return nil, err
	}

	return NewPublisher(store, bucket, defaults), nil
}

// Close closes the Publisher's staging bucket.
func (p *Publisher) Close() error {

	if p.Bucket == nil {
		return nil
	}

	return p.Bucket.Close()
}

// UploadTempItem adds `geojson` to the content store as a "GeoJson" item. Callers are responsible for deleting it.
func (p *Publisher) UploadTempItem(ctx context.Context, geojson []byte, props *content.ItemProperties) (content.Item, error) {

	opts := &stage.UploadOptions{
		Store:      p.Store,
		Bucket:     p.Bucket,
		GeoJSON:    geojson,
		Properties: props,
		Defaults:   p.Defaults,
	}

	return stage.Upload(ctx, opts)
}

// AppendToLayer appends `geojson` to `layer`, upserting on `uid_field` if it is not empty.
func (p *Publisher) AppendToLayer(ctx context.Context, layer content.Layer, geojson []byte, uid_field string) (*content.AppendResult, error) {

	opts := &update.AppendToLayerOptions{
		Store:    p.Store,
		Bucket:   p.Bucket,
		Layer:    layer,
		GeoJSON:  geojson,
		UIDField: uid_field,
		Defaults: p.Defaults,
	}

	return update.AppendToLayer(ctx, opts)
}

// CreateLayer clones `template` and populates the first layer of the clone with `geojson`.
func (p *Publisher) CreateLayer(ctx context.Context, geojson []byte, template content.Item) (content.Item, error) {

	opts := &create.CreateLayerOptions{
		Store:    p.Store,
		Bucket:   p.Bucket,
		Template: template,
		GeoJSON:  geojson,
		Defaults: p.Defaults,
	}

	return create.CreateLayer(ctx, opts)
}

// CreateScratchLayer publishes `geojson` as a new hosted feature layer, adding a unique index on `uid_field` if it is not empty.
func (p *Publisher) CreateScratchLayer(ctx context.Context, geojson []byte, uid_field string, props *content.ItemProperties) (content.Item, error) {

	opts := &scratch.CreateScratchLayerOptions{
		Store:      p.Store,
		Bucket:     p.Bucket,
		GeoJSON:    geojson,
		UIDField:   uid_field,
		Properties: props,
		Defaults:   p.Defaults,
	}

	return scratch.CreateScratchLayer(ctx, opts)
}

// FindLayerByTag returns the first hosted feature layer item tagged `tag`. If `tag` is empty the default tag is used.
func (p *Publisher) FindLayerByTag(ctx context.Context, tag string) (content.Item, bool, error) {

	if tag == "" {
		tag = p.Defaults.Tag
	}

	return find.FindLayerByTag(ctx, p.Store, tag)
}
