// Package update appends GeoJSON payloads to existing hosted feature layers.
package update

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sfomuseum/go-arcgis-layers/content"
	"github.com/sfomuseum/go-arcgis-layers/operations/stage"
	"gocloud.dev/blob"
)

// AppendToLayerOptions defines the inputs for appending GeoJSON to a layer.
type AppendToLayerOptions struct {
	// The content store where the layer lives.
	Store content.Store
	// The gocloud.dev/blob Bucket used to stage the GeoJSON payload.
	Bucket *blob.Bucket
	// The (writable) layer to update.
	Layer content.Layer
	// The GeoJSON FeatureCollection whose features will be added to the layer.
	GeoJSON []byte
	// An optional, uniquely indexed, field used to update existing rows rather than inserting duplicates.
	UIDField string
	// Optional defaults. If nil stage.DefaultDefaults() is used.
	Defaults *stage.Defaults
}

// AppendToLayer stages the GeoJSON payload as a temporary item, appends that item's rows to the layer
// and then deletes the temporary item. If UIDField is not empty rows are upserted using that field.
// The temporary item is deleted whether or not the append succeeds.
func AppendToLayer(ctx context.Context, opts *AppendToLayerOptions) (*content.AppendResult, error) {

	if opts.Layer == nil {
		return nil, errors.New("Missing layer")
	}

	defaults := opts.Defaults

	if defaults == nil {
		defaults = stage.DefaultDefaults()
	}

	upload_opts := &stage.UploadOptions{
		Store:   opts.Store,
		Bucket:  opts.Bucket,
		GeoJSON: opts.GeoJSON,
		Properties: &content.ItemProperties{
			Title: defaults.UpdateTitle,
		},
		Defaults: defaults,
	}

	logger := slog.Default()
	logger = logger.With("layer", opts.Layer.URL())

	var result *content.AppendResult

	append_func := func(ctx context.Context, item content.Item) error {

		append_opts := &content.AppendOptions{
			ItemID:              item.ID(),
			UploadFormat:        content.GEOJSON_UPLOAD_FORMAT,
			Upsert:              opts.UIDField != "",
			UpsertMatchingField: opts.UIDField,
		}

		logger.Debug("Append staged item", "id", item.ID(), "upsert", append_opts.Upsert)

		rsp, err := opts.Layer.Append(ctx, append_opts)

		if err != nil {
			return err
		}

		result = rsp
		return nil
	}

	err := stage.WithStagedItem(ctx, upload_opts, append_func)

	if err != nil {
		return nil, err
	}

	return result, nil
}
