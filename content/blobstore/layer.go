package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sfomuseum/go-arcgis-layers/content"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// BlobLayer is a content.Layer belonging to a BlobItem.
type BlobLayer struct {
	content.Layer
	store    *BlobStore
	item_id  string
	layer_id int
}

// BlobLayerManager is a content.LayerManager for a BlobLayer.
type BlobLayerManager struct {
	content.LayerManager
	layer *BlobLayer
}

func (l *BlobLayer) URL() string {
	return fmt.Sprintf("blob://%s/%d", l.item_id, l.layer_id)
}

func (l *BlobLayer) Manager() content.LayerManager {

	m := &BlobLayerManager{
		layer: l,
	}

	return m
}

// Append adds the features of the GeoJSON item `opts.ItemID` to the layer. If `opts.Upsert` is true features
// whose `opts.UpsertMatchingField` property matches an existing row replace that row. Upserts require
// that the layer has a unique index on the matching field.
func (l *BlobLayer) Append(ctx context.Context, opts *content.AppendOptions) (*content.AppendResult, error) {

	if opts.UploadFormat != content.GEOJSON_UPLOAD_FORMAT {
		return nil, fmt.Errorf("Unsupported upload format '%s'", opts.UploadFormat)
	}

	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	rec, layer_rec, err := l.readLayerRecord(ctx)

	if err != nil {
		return nil, err
	}

	if opts.Upsert {

		if opts.UpsertMatchingField == "" {
			return nil, errors.New("Upsert requires a matching field")
		}

		if !hasUniqueIndex(layer_rec, opts.UpsertMatchingField) {
			return nil, fmt.Errorf("Field '%s' is not uniquely indexed in layer %d of item %s", opts.UpsertMatchingField, layer_rec.ID, rec.ID)
		}
	}

	src, err := l.store.readRecord(ctx, opts.ItemID)

	if err != nil {
		return nil, err
	}

	if src.Type != content.GEOJSON_ITEM_TYPE {
		return nil, fmt.Errorf("Item %s is not a GeoJSON item", src.ID)
	}

	data, err := l.store.bucket.ReadAll(ctx, src.DataKey)

	if err != nil {
		return nil, fmt.Errorf("Failed to read data for item %s, %w", src.ID, err)
	}

	features_rsp := gjson.GetBytes(data, "features")

	if !features_rsp.IsArray() {
		return nil, fmt.Errorf("Item %s data is not a FeatureCollection", src.ID)
	}

	key := featuresKey(rec.ID, layer_rec.ID)

	rows, err := l.store.bucket.ReadAll(ctx, key)

	if err != nil {
		return nil, fmt.Errorf("Failed to read layer rows, %w", err)
	}

	result := &content.AppendResult{
		Status: "Completed",
	}

	for _, f := range features_rsp.Array() {

		path := "features.-1"

		if opts.Upsert {

			i := matchingRow(rows, opts.UpsertMatchingField, f)

			if i > -1 {
				path = fmt.Sprintf("features.%d", i)
			}
		}

		rows, err = sjson.SetRawBytes(rows, path, []byte(f.Raw))

		if err != nil {
			return nil, fmt.Errorf("Failed to assign row, %w", err)
		}

		if path == "features.-1" {
			result.Inserted += 1
		} else {
			result.Updated += 1
		}
	}

	err = l.store.bucket.WriteAll(ctx, key, rows, nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to write layer rows, %w", err)
	}

	result.Records = result.Inserted + result.Updated

	body, err := json.Marshal(map[string]any{
		"status":   result.Status,
		"records":  result.Records,
		"inserted": result.Inserted,
		"updated":  result.Updated,
	})

	if err != nil {
		return nil, fmt.Errorf("Failed to marshal append result, %w", err)
	}

	result.Body = body
	return result, nil
}

// Features returns the raw GeoJSON Feature documents stored as the layer's rows.
func (l *BlobLayer) Features(ctx context.Context) ([][]byte, error) {

	l.store.mu.RLock()
	defer l.store.mu.RUnlock()

	rows, err := l.store.bucket.ReadAll(ctx, featuresKey(l.item_id, l.layer_id))

	if err != nil {
		return nil, fmt.Errorf("Failed to read layer rows, %w", err)
	}

	features := make([][]byte, 0)

	for _, f := range gjson.GetBytes(rows, "features").Array() {
		features = append(features, []byte(f.Raw))
	}

	return features, nil
}

// Indexes returns the indexes defined for the layer.
func (l *BlobLayer) Indexes(ctx context.Context) ([]*content.Index, error) {

	l.store.mu.RLock()
	defer l.store.mu.RUnlock()

	_, layer_rec, err := l.readLayerRecord(ctx)

	if err != nil {
		return nil, err
	}

	return layer_rec.Indexes, nil
}

// AddToDefinition adds the indexes in `update` to the layer definition. Index names must be unique.
func (m *BlobLayerManager) AddToDefinition(ctx context.Context, update *content.DefinitionUpdate) error {

	l := m.layer

	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	rec, layer_rec, err := l.readLayerRecord(ctx)

	if err != nil {
		return err
	}

	for _, idx := range update.Indexes {

		if idx.Name == "" {
			return errors.New("Index is missing a name")
		}

		if idx.Fields == "" {
			return fmt.Errorf("Index '%s' is missing fields", idx.Name)
		}

		for _, existing := range layer_rec.Indexes {

			if existing.Name == idx.Name {
				return fmt.Errorf("Layer %d already has an index named '%s'", layer_rec.ID, idx.Name)
			}
		}

		copy_idx := *idx
		layer_rec.Indexes = append(layer_rec.Indexes, &copy_idx)
	}

	return l.store.writeRecord(ctx, rec)
}

func (l *BlobLayer) readLayerRecord(ctx context.Context) (*itemRecord, *layerRecord, error) {

	rec, err := l.store.readRecord(ctx, l.item_id)

	if err != nil {
		return nil, nil, err
	}

	for _, layer_rec := range rec.Layers {

		if layer_rec.ID == l.layer_id {
			return rec, layer_rec, nil
		}
	}

	return nil, nil, fmt.Errorf("Item %s has no layer %d", rec.ID, l.layer_id)
}

func hasUniqueIndex(layer_rec *layerRecord, field string) bool {

	for _, idx := range layer_rec.Indexes {

		if idx.IsUnique && idx.Fields == field {
			return true
		}
	}

	return false
}

// matchingRow returns the position of the first row whose `field` property equals that of `f`, or -1.
func matchingRow(rows []byte, field string, f gjson.Result) int {

	v, ok := f.Get("properties").Map()[field]

	if !ok {
		return -1
	}

	for i, row := range gjson.GetBytes(rows, "features").Array() {

		row_v, ok := row.Get("properties").Map()[field]

		if ok && row_v.Raw == v.Raw {
			return i
		}
	}

	return -1
}
