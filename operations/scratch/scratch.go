// Package scratch publishes GeoJSON payloads as new hosted feature layers using system default properties.
package scratch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sfomuseum/go-arcgis-layers/content"
	"github.com/sfomuseum/go-arcgis-layers/operations/stage"
	"gocloud.dev/blob"
)

// The name of the unique index added to scratch layers created with a UID field.
const UID_INDEX_NAME string = "External UID"

// The description of the unique index added to scratch layers created with a UID field.
const UID_INDEX_DESCRIPTION string = "External UID for upsert operations"

// CreateScratchLayerOptions defines the inputs for publishing a new layer from scratch.
type CreateScratchLayerOptions struct {
	Store  content.Store
	Bucket *blob.Bucket
	// The initial GeoJSON FeatureCollection used to populate the new layer.
	GeoJSON []byte
	// An optional field to add a unique index for, so that later appends can upsert on it.
	UIDField string
	// Optional item properties for the staged (and published) item.
	Properties *content.ItemProperties
	Defaults   *stage.Defaults
}

// CreateScratchLayer stages the GeoJSON payload, publishes it as a new hosted feature layer and deletes the
// staged item. If UIDField is not empty a unique index on that field is added to the first layer of the
// published item. It returns the published item.
func CreateScratchLayer(ctx context.Context, opts *CreateScratchLayerOptions) (content.Item, error) {

	upload_opts := &stage.UploadOptions{
		Store:      opts.Store,
		Bucket:     opts.Bucket,
		GeoJSON:    opts.GeoJSON,
		Properties: opts.Properties,
		Defaults:   opts.Defaults,
	}

	var lyr_item content.Item

	publish_func := func(ctx context.Context, item content.Item) error {

		published, err := item.Publish(ctx)

		if err != nil {
			return err
		}

		lyr_item = published
		return nil
	}

	err := stage.WithStagedItem(ctx, upload_opts, publish_func)

	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	logger = logger.With("id", lyr_item.ID())

	logger.Debug("Published scratch layer")

	if opts.UIDField == "" {
		return lyr_item, nil
	}

	err = AddUIDIndex(ctx, lyr_item, opts.UIDField)

	if err != nil {
		return nil, err
	}

	logger.Debug("Added unique index", "field", opts.UIDField)
	return lyr_item, nil
}

// AddUIDIndex adds a unique index named UID_INDEX_NAME on `uid_field` to the first layer of `item`.
func AddUIDIndex(ctx context.Context, item content.Item, uid_field string) error {

	layers, err := item.Layers(ctx)

	if err != nil {
		return fmt.Errorf("Failed to retrieve layers for item %s, %w", item.ID(), err)
	}

	if len(layers) == 0 {
		return fmt.Errorf("Item %s has no layers", item.ID())
	}

	idx := &content.Index{
		Name:        UID_INDEX_NAME,
		Fields:      uid_field,
		IsUnique:    true,
		Description: UID_INDEX_DESCRIPTION,
	}

	update := &content.DefinitionUpdate{
		Indexes: []*content.Index{
			idx,
		},
	}

	return layers[0].Manager().AddToDefinition(ctx, update)
}
