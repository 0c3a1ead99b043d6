package blobstore

import (
	"context"
	"fmt"
	"time"

	"github.com/sfomuseum/go-arcgis-layers/content"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// BlobItem is a content.Item stored in a BlobStore.
type BlobItem struct {
	content.Item
	store  *BlobStore
	record *itemRecord
}

func (i *BlobItem) ID() string {
	return i.record.ID
}

func (i *BlobItem) Title() string {
	return i.record.Title
}

func (i *BlobItem) Tags() []string {
	return i.record.Tags
}

func (i *BlobItem) Type() string {
	return i.record.Type
}

// Extra returns the passthrough properties the item was created with.
func (i *BlobItem) Extra() map[string]any {
	return i.record.Extra
}

// Delete removes the item, its data and any layer rows from the store.
func (i *BlobItem) Delete(ctx context.Context) error {

	i.store.mu.Lock()
	defer i.store.mu.Unlock()

	return i.store.deleteItem(ctx, i.record.ID)
}

// Publish creates a new "Feature Service" item with a single layer whose rows are the features of
// the item's GeoJSON data.
func (i *BlobItem) Publish(ctx context.Context) (content.Item, error) {

	if i.record.Type != content.GEOJSON_ITEM_TYPE {
		return nil, fmt.Errorf("Publishing items of type '%s' is not supported", i.record.Type)
	}

	i.store.mu.Lock()
	defer i.store.mu.Unlock()

	src, err := i.store.readRecord(ctx, i.record.ID)

	if err != nil {
		return nil, err
	}

	data, err := i.store.bucket.ReadAll(ctx, src.DataKey)

	if err != nil {
		return nil, fmt.Errorf("Failed to read item data, %w", err)
	}

	features_rsp := gjson.GetBytes(data, "features")

	if !features_rsp.IsArray() {
		return nil, fmt.Errorf("Item %s data is not a FeatureCollection", src.ID)
	}

	rows, err := sjson.SetRawBytes([]byte(empty_collection), "features", []byte(features_rsp.Raw))

	if err != nil {
		return nil, fmt.Errorf("Failed to assign features, %w", err)
	}

	rec := &itemRecord{
		ID:    newID(),
		Title: src.Title,
		Tags:  append([]string{}, src.Tags...),
		Type:  content.FEATURE_SERVICE_ITEM_TYPE,
		Extra: copyExtra(src.Extra),
		Layers: []*layerRecord{
			{
				ID:      0,
				Name:    src.Title,
				Indexes: make([]*content.Index, 0),
			},
		},
		Created: time.Now().Unix(),
	}

	err = i.store.bucket.WriteAll(ctx, featuresKey(rec.ID, 0), rows, nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to write layer rows, %w", err)
	}

	err = i.store.writeRecord(ctx, rec)

	if err != nil {
		return nil, err
	}

	return i.store.newItem(rec), nil
}

// Layers returns the item's layers, in the order they were defined.
func (i *BlobItem) Layers(ctx context.Context) ([]content.Layer, error) {

	i.store.mu.RLock()
	defer i.store.mu.RUnlock()

	rec, err := i.store.readRecord(ctx, i.record.ID)

	if err != nil {
		return nil, err
	}

	layers := make([]content.Layer, len(rec.Layers))

	for idx, l := range rec.Layers {

		layers[idx] = &BlobLayer{
			store:    i.store,
			item_id:  rec.ID,
			layer_id: l.ID,
		}
	}

	return layers, nil
}
