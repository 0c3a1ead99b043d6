package content

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// The type label assigned to staged GeoJSON file items.
const GEOJSON_ITEM_TYPE string = "GeoJson"

// The type label assigned to hosted feature layer items.
const FEATURE_SERVICE_ITEM_TYPE string = "Feature Service"

// The upload format used when appending staged GeoJSON items to a layer.
const GEOJSON_UPLOAD_FORMAT string = "geojson"

// Store is the content store (portal) where items are added, cloned and searched for.
type Store interface {
	// AddItem creates a new item described by `props` whose data is read from `data`.
	// `filename` is the name the data is uploaded as.
	AddItem(context.Context, *ItemProperties, string, io.Reader) (Item, error)
	// CloneItems creates copies of zero or more items. If the final boolean argument is false
	// only the item configuration (and layer schemas) are copied.
	CloneItems(context.Context, []Item, bool) ([]Item, error)
	// Search returns the items matching a query string. See also: SearchQuery.
	Search(context.Context, string) ([]Item, error)
}

// ItemGetter is implemented by Stores that can retrieve a single item by its ID.
type ItemGetter interface {
	Item(context.Context, string) (Item, error)
}

// Item is a single item stored in a Store.
type Item interface {
	ID() string
	Title() string
	Tags() []string
	Type() string
	// Delete removes the item from its Store.
	Delete(context.Context) error
	// Publish creates a new hosted feature layer item from the item's data.
	Publish(context.Context) (Item, error)
	// Layers returns the ordered list of sub-layers for the item.
	Layers(context.Context) ([]Layer, error)
}

// Layer is a sub-layer of a hosted feature layer item.
type Layer interface {
	URL() string
	// Append loads the rows of another item in to the layer.
	Append(context.Context, *AppendOptions) (*AppendResult, error)
	// Manager returns the LayerManager used to alter the layer's schema.
	Manager() LayerManager
}

// LayerManager alters the definition (schema) of a Layer.
type LayerManager interface {
	AddToDefinition(context.Context, *DefinitionUpdate) error
}

// ItemProperties defines the properties assigned to a new item.
type ItemProperties struct {
	// The title of the item.
	Title string `json:"title"`
	// Zero or more tags assigned to the item.
	Tags []string `json:"tags"`
	// The item type, for example "GeoJson".
	Type string `json:"type"`
	// Any other item properties. These are passed to the Store verbatim, except for keys named
	// "title", "tags" or "type" which are always taken from the fields above.
	Extra map[string]any `json:"extra,omitempty"`
}

// IsReservedProperty reports whether `key` names one of the item properties (title, tags, type) that
// can not be assigned through ItemProperties.Extra.
func IsReservedProperty(key string) bool {

	switch key {
	case "title", "tags", "type":
		return true
	default:
		return false
	}
}

// AppendOptions defines the parameters for appending an item's rows in to a Layer.
type AppendOptions struct {
	// The ID of the item whose data will be appended.
	ItemID string
	// The format of the item's data, for example "geojson".
	UploadFormat string
	// If true rows whose UpsertMatchingField value matches an existing row are updated rather than inserted.
	Upsert bool
	// The (uniquely indexed) field used to match incoming rows with existing rows.
	UpsertMatchingField string
}

// AppendResult is the outcome of an append operation, as reported by the Store.
type AppendResult struct {
	Status string

	// The total number of rows processed (inserted or updated).
	Records int

	// The number of rows inserted, for Stores that report it. Zero otherwise.
	Inserted int

	// The number of existing rows updated, for Stores that report it. Zero otherwise.
	Updated int

	// The raw response body returned by the Store, if any.
	Body []byte
}

// Index is a layer schema index.
type Index struct {
	Name string `json:"name"`

	// The indexed field name, or a comma-separated list of field names for a multi-field index.
	// See also: IndexFields.
	Fields      string `json:"fields"`
	IsUnique    bool   `json:"isUnique"`
	Description string `json:"description"`
}

// DefinitionUpdate is a set of additions to a layer's schema.
type DefinitionUpdate struct {
	Indexes []*Index `json:"indexes,omitempty"`
}

// IndexFields returns the value of Index.Fields for one or more field names.
func IndexFields(fields ...string) string {
	return strings.Join(fields, ",")
}

// HasTag reports whether `tag` is one of `item`'s tags.
func HasTag(item Item, tag string) bool {

	for _, t := range item.Tags() {

		if t == tag {
			return true
		}
	}

	return false
}

// GetItem returns the item in `store` whose ID is `id`, if `store` implements ItemGetter.
func GetItem(ctx context.Context, store Store, id string) (Item, error) {

	getter, ok := store.(ItemGetter)

	if !ok {
		return nil, fmt.Errorf("Store %T does not support retrieving items by ID", store)
	}

	return getter.Item(ctx, id)
}
