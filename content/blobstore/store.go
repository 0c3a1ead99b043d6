// Package blobstore implements the content.Store interface on top of a gocloud.dev/blob Bucket. Items,
// their data and the rows of their layers are stored as JSON documents so that the state of a "portal"
// can be inspected (and asserted on) after any operation.
package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sfomuseum/go-arcgis-layers/content"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

const items_prefix string = "items/"
const data_prefix string = "data/"
const features_prefix string = "features/"

const empty_collection string = `{"type":"FeatureCollection","features":[]}`

func init() {
	ctx := context.Background()
	content.RegisterStore(ctx, "blob", NewBlobStore)
}

type itemRecord struct {
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	Tags    []string       `json:"tags"`
	Type    string         `json:"type"`
	Extra   map[string]any `json:"extra,omitempty"`
	DataKey string         `json:"data_key,omitempty"`
	Layers  []*layerRecord `json:"layers,omitempty"`
	Created int64          `json:"created"`
}

type layerRecord struct {
	ID      int              `json:"id"`
	Name    string           `json:"name"`
	Indexes []*content.Index `json:"indexes"`
}

// BlobStore is a content.Store backed by a gocloud.dev/blob Bucket.
type BlobStore struct {
	content.Store
	bucket *blob.Bucket
	mu     *sync.RWMutex
}

// NewBlobStore returns a new BlobStore instance configured by a URI in the form of:
//
//	blob://?bucket={GOCLOUD_BUCKET_URI}
func NewBlobStore(ctx context.Context, uri string) (content.Store, error) {

	u, err := url.Parse(uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to parse URI, %w", err)
	}

	bucket_uri := u.Query().Get("bucket")

	if bucket_uri == "" {
		return nil, errors.New("Missing ?bucket= parameter")
	}

	bucket, err := blob.OpenBucket(ctx, bucket_uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to open bucket '%s', %w", bucket_uri, err)
	}

	return NewBlobStoreWithBucket(ctx, bucket)
}

// NewBlobStoreWithBucket returns a new BlobStore instance for an existing Bucket.
func NewBlobStoreWithBucket(ctx context.Context, bucket *blob.Bucket) (*BlobStore, error) {

	s := &BlobStore{
		bucket: bucket,
		mu:     new(sync.RWMutex),
	}

	return s, nil
}

// AddItem stores the data read from `r` and a record for `props` and returns the new item.
func (s *BlobStore) AddItem(ctx context.Context, props *content.ItemProperties, filename string, r io.Reader) (content.Item, error) {

	if props.Title == "" {
		return nil, errors.New("Missing item title")
	}

	if props.Type == "" {
		return nil, errors.New("Missing item type")
	}

	body, err := io.ReadAll(r)

	if err != nil {
		return nil, fmt.Errorf("Failed to read item data, %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &itemRecord{
		ID:      newID(),
		Title:   props.Title,
		Tags:    append([]string{}, props.Tags...),
		Type:    props.Type,
		Extra:   copyExtra(props.Extra),
		Created: time.Now().Unix(),
	}

	rec.DataKey = data_prefix + rec.ID + filepath.Ext(filename)

	err = s.bucket.WriteAll(ctx, rec.DataKey, body, nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to write item data, %w", err)
	}

	err = s.writeRecord(ctx, rec)

	if err != nil {
		s.bucket.Delete(ctx, rec.DataKey)
		return nil, err
	}

	return s.newItem(rec), nil
}

// CloneItems copies the records (and layer definitions) of `items`. Item data and layer rows are
// only copied if `copy_data` is true.
func (s *BlobStore) CloneItems(ctx context.Context, items []content.Item, copy_data bool) ([]content.Item, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	clones := make([]content.Item, len(items))

	for i, item := range items {

		c, err := s.cloneItem(ctx, item.ID(), copy_data)

		if err != nil {
			return nil, fmt.Errorf("Failed to clone item %s, %w", item.ID(), err)
		}

		clones[i] = c
	}

	return clones, nil
}

func (s *BlobStore) cloneItem(ctx context.Context, id string, copy_data bool) (content.Item, error) {

	src, err := s.readRecord(ctx, id)

	if err != nil {
		return nil, err
	}

	rec := &itemRecord{
		ID:      newID(),
		Title:   src.Title,
		Tags:    append([]string{}, src.Tags...),
		Type:    src.Type,
		Extra:   copyExtra(src.Extra),
		Layers:  make([]*layerRecord, len(src.Layers)),
		Created: time.Now().Unix(),
	}

	if copy_data && src.DataKey != "" {

		rec.DataKey = data_prefix + rec.ID + filepath.Ext(src.DataKey)

		err := s.bucket.Copy(ctx, rec.DataKey, src.DataKey, nil)

		if err != nil {
			return nil, fmt.Errorf("Failed to copy item data, %w", err)
		}
	}

	for i, src_layer := range src.Layers {

		indexes := make([]*content.Index, len(src_layer.Indexes))

		for j, idx := range src_layer.Indexes {
			copy_idx := *idx
			indexes[j] = &copy_idx
		}

		rec.Layers[i] = &layerRecord{
			ID:      src_layer.ID,
			Name:    src_layer.Name,
			Indexes: indexes,
		}

		var err error

		if copy_data {
			err = s.bucket.Copy(ctx, featuresKey(rec.ID, src_layer.ID), featuresKey(src.ID, src_layer.ID), nil)
		} else {
			err = s.bucket.WriteAll(ctx, featuresKey(rec.ID, src_layer.ID), []byte(empty_collection), nil)
		}

		if err != nil {
			return nil, fmt.Errorf("Failed to create rows for layer %d, %w", src_layer.ID, err)
		}
	}

	err = s.writeRecord(ctx, rec)

	if err != nil {
		return nil, err
	}

	return s.newItem(rec), nil
}

// Search returns the items matching `q`, a query string produced by content.SearchQuery, ordered by item key.
func (s *BlobStore) Search(ctx context.Context, q string) ([]content.Item, error) {

	query, err := content.ParseSearchQuery(q)

	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]content.Item, 0)

	iter := s.bucket.List(&blob.ListOptions{
		Prefix: items_prefix,
	})

	for {

		obj, err := iter.Next(ctx)

		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("Failed to list items, %w", err)
		}

		if filepath.Ext(obj.Key) != ".json" {
			continue
		}

		rec, err := s.readRecordWithKey(ctx, obj.Key)

		if err != nil {
			return nil, err
		}

		item := s.newItem(rec)

		if query.Matches(item) {
			results = append(results, item)
		}
	}

	return results, nil
}

// Exists reports whether an item with ID `id` is present in the store.
func (s *BlobStore) Exists(ctx context.Context, id string) (bool, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bucket.Exists(ctx, recordKey(id))
}

// Item returns the item with ID `id`.
func (s *BlobStore) Item(ctx context.Context, id string) (content.Item, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.readRecord(ctx, id)

	if err != nil {
		return nil, err
	}

	return s.newItem(rec), nil
}

func (s *BlobStore) newItem(rec *itemRecord) *BlobItem {

	i := &BlobItem{
		store:  s,
		record: rec,
	}

	return i
}

func (s *BlobStore) readRecord(ctx context.Context, id string) (*itemRecord, error) {
	return s.readRecordWithKey(ctx, recordKey(id))
}

func (s *BlobStore) readRecordWithKey(ctx context.Context, key string) (*itemRecord, error) {

	body, err := s.bucket.ReadAll(ctx, key)

	if err != nil {

		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("Item record %s does not exist, %w", key, err)
		}

		return nil, fmt.Errorf("Failed to read item record %s, %w", key, err)
	}

	var rec *itemRecord

	err = json.Unmarshal(body, &rec)

	if err != nil {
		return nil, fmt.Errorf("Failed to unmarshal item record %s, %w", key, err)
	}

	return rec, nil
}

func (s *BlobStore) writeRecord(ctx context.Context, rec *itemRecord) error {

	enc, err := json.Marshal(rec)

	if err != nil {
		return fmt.Errorf("Failed to marshal item record, %w", err)
	}

	err = s.bucket.WriteAll(ctx, recordKey(rec.ID), enc, nil)

	if err != nil {
		return fmt.Errorf("Failed to write item record %s, %w", rec.ID, err)
	}

	return nil
}

// deleteItem removes the record, data and layer rows for item `id`.
func (s *BlobStore) deleteItem(ctx context.Context, id string) error {

	rec, err := s.readRecord(ctx, id)

	if err != nil {
		return err
	}

	iter := s.bucket.List(&blob.ListOptions{
		Prefix: features_prefix + id + "/",
	})

	for {

		obj, err := iter.Next(ctx)

		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		err = s.bucket.Delete(ctx, obj.Key)

		if err != nil {
			return fmt.Errorf("Failed to delete %s, %w", obj.Key, err)
		}
	}

	if rec.DataKey != "" {

		err := s.bucket.Delete(ctx, rec.DataKey)

		if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
			return fmt.Errorf("Failed to delete item data, %w", err)
		}
	}

	return s.bucket.Delete(ctx, recordKey(id))
}

func recordKey(id string) string {
	return items_prefix + id + ".json"
}

func featuresKey(id string, layer_id int) string {
	return fmt.Sprintf("%s%s/%d.geojson", features_prefix, id, layer_id)
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func copyExtra(extra map[string]any) map[string]any {

	if len(extra) == 0 {
		return nil
	}

	c := make(map[string]any, len(extra))

	for k, v := range extra {
		c[k] = v
	}

	return c
}
