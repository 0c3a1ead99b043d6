// Package create creates new hosted feature layers by cloning a pre-configured template item.
package create

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sfomuseum/go-arcgis-layers/content"
	"github.com/sfomuseum/go-arcgis-layers/operations/stage"
	"github.com/sfomuseum/go-arcgis-layers/operations/update"
	"gocloud.dev/blob"
)

// CreateLayerOptions defines the inputs for creating a layer from a template item.
type CreateLayerOptions struct {
	Store  content.Store
	Bucket *blob.Bucket
	// An existing item whose configuration (styling, schema, sharing) is copied. It is never modified.
	Template content.Item
	// The initial GeoJSON FeatureCollection used to populate the new layer.
	GeoJSON  []byte
	Defaults *stage.Defaults
}

// CreateLayer clones the template item, without its data, and appends the initial GeoJSON to the first
// layer of the clone. It returns the new item.
func CreateLayer(ctx context.Context, opts *CreateLayerOptions) (content.Item, error) {

	if opts.Template == nil {
		return nil, errors.New("Missing template item")
	}

	clones, err := opts.Store.CloneItems(ctx, []content.Item{opts.Template}, false)

	if err != nil {
		return nil, err
	}

	if len(clones) == 0 {
		return nil, fmt.Errorf("Cloning template %s did not return any items", opts.Template.ID())
	}

	item := clones[0]

	logger := slog.Default()
	logger = logger.With("template", opts.Template.ID(), "id", item.ID())

	logger.Debug("Cloned template item")

	layers, err := item.Layers(ctx)

	if err != nil {
		return nil, fmt.Errorf("Failed to retrieve layers for item %s, %w", item.ID(), err)
	}

	if len(layers) == 0 {
		return nil, fmt.Errorf("Item %s (cloned from %s) has no layers", item.ID(), opts.Template.ID())
	}

	append_opts := &update.AppendToLayerOptions{
		Store:    opts.Store,
		Bucket:   opts.Bucket,
		Layer:    layers[0],
		GeoJSON:  opts.GeoJSON,
		Defaults: opts.Defaults,
	}

	_, err = update.AppendToLayer(ctx, append_opts)

	if err != nil {
		return nil, err
	}

	return item, nil
}
