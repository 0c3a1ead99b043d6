// Package stage uploads GeoJSON payloads as short-lived file items in a content store.
package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sfomuseum/go-arcgis-layers/common"
	"github.com/sfomuseum/go-arcgis-layers/content"
	"gocloud.dev/blob"
)

// The title assigned to staged items when none is specified.
const DEFAULT_TITLE string = "GeoJSON Utils POC"

// The tag assigned to staged (and published) items when none is specified.
const DEFAULT_TAG string = "geojson-utils-poc"

// The title assigned to items staged for appending to an existing layer.
const DEFAULT_UPDATE_TITLE string = "Dataminr update"

// Defaults defines the item properties used when callers don't provide their own.
type Defaults struct {
	Title       string
	Tag         string
	UpdateTitle string
}

// DefaultDefaults returns a Defaults instance populated with DEFAULT_TITLE, DEFAULT_TAG and DEFAULT_UPDATE_TITLE.
func DefaultDefaults() *Defaults {

	d := &Defaults{
		Title:       DEFAULT_TITLE,
		Tag:         DEFAULT_TAG,
		UpdateTitle: DEFAULT_UPDATE_TITLE,
	}

	return d
}

// UploadOptions defines the inputs for staging a GeoJSON payload.
type UploadOptions struct {
	// The content store where the staged item is created.
	Store content.Store
	// The gocloud.dev/blob Bucket where the payload is written before being added to Store.
	Bucket *blob.Bucket
	// The GeoJSON payload. It is passed through as-is.
	GeoJSON []byte
	// Optional item properties. Empty titles and tags are replaced using Defaults.
	Properties *content.ItemProperties
	// Optional defaults. If nil DefaultDefaults() is used.
	Defaults *Defaults
}

// StagedItemFunc is a function invoked with a staged item for the duration of WithStagedItem.
type StagedItemFunc func(context.Context, content.Item) error

// Upload writes the GeoJSON payload to the staging bucket, adds it to the content store as a "GeoJson" item
// and returns that item. The staging key is removed before Upload returns, whether or not the item was added.
func Upload(ctx context.Context, opts *UploadOptions) (content.Item, error) {

	if opts.Store == nil {
		return nil, errors.New("Missing content store")
	}

	if opts.Bucket == nil {
		return nil, errors.New("Missing staging bucket")
	}

	props := ResolveProperties(opts.Properties, opts.Defaults)

	key, err := common.StageGeoJSON(ctx, opts.Bucket, opts.GeoJSON)

	if err != nil {
		return nil, fmt.Errorf("Failed to stage GeoJSON, %w", err)
	}

	logger := slog.Default()
	logger = logger.With("key", key)

	defer func() {

		err := opts.Bucket.Delete(ctx, key)

		if err != nil {
			logger.Warn("Failed to remove staged GeoJSON", "error", err)
		}
	}()

	r, err := opts.Bucket.NewReader(ctx, key, nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to open staged GeoJSON %s, %w", key, err)
	}

	defer r.Close()

	item, err := opts.Store.AddItem(ctx, props, key, r)

	if err != nil {
		return nil, err
	}

	logger.Debug("Added staged item", "id", item.ID(), "title", props.Title)
	return item, nil
}

// ResolveProperties returns a copy of `props` with the "GeoJson" type assigned and any missing title
// or tags filled in from `defaults`. Extra properties are carried over unchanged, less any reserved
// keys (see content.IsReservedProperty).
func ResolveProperties(props *content.ItemProperties, defaults *Defaults) *content.ItemProperties {

	if defaults == nil {
		defaults = DefaultDefaults()
	}

	resolved := &content.ItemProperties{
		Title: defaults.Title,
		Tags:  []string{defaults.Tag},
		Type:  content.GEOJSON_ITEM_TYPE,
		Extra: make(map[string]any),
	}

	if props == nil {
		return resolved
	}

	if props.Title != "" {
		resolved.Title = props.Title
	}

	if len(props.Tags) > 0 {
		resolved.Tags = append([]string{}, props.Tags...)
	}

	for k, v := range props.Extra {

		if content.IsReservedProperty(k) {
			continue
		}

		resolved.Extra[k] = v
	}

	return resolved
}

// WithStagedItem uploads a staged item, invokes `cb` with it and then deletes the item. The item is
// deleted on every exit path of `cb`, including panics. Errors from `cb` are returned once the item has
// been deleted (joined with the deletion error if that failed too). If `cb` succeeds but the item can not
// be deleted the deletion error is returned.
func WithStagedItem(ctx context.Context, opts *UploadOptions, cb StagedItemFunc) (err error) {

	item, err := Upload(ctx, opts)

	if err != nil {
		return err
	}

	logger := slog.Default()
	logger = logger.With("id", item.ID())

	defer func() {

		delete_err := item.Delete(ctx)

		if delete_err == nil {
			logger.Debug("Deleted staged item")
			return
		}

		logger.Error("Failed to delete staged item", "error", delete_err)

		delete_err = fmt.Errorf("Failed to delete staged item %s, %w", item.ID(), delete_err)

		if err != nil {
			err = errors.Join(err, delete_err)
		} else {
			err = delete_err
		}
	}()

	return cb(ctx, item)
}
