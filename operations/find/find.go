// Package find locates existing hosted feature layer items by tag.
package find

import (
	"context"
	"errors"

	"github.com/sfomuseum/go-arcgis-layers/content"
)

// FindLayerByTag returns the first "Feature Service" item tagged `tag`. The boolean return value is false
// if there are no matching items. No attempt is made to choose between multiple matches.
func FindLayerByTag(ctx context.Context, store content.Store, tag string) (content.Item, bool, error) {

	if tag == "" {
		return nil, false, errors.New("Missing tag")
	}

	q := content.SearchQuery(tag, content.FEATURE_SERVICE_ITEM_TYPE)

	results, err := store.Search(ctx, q)

	if err != nil {
		return nil, false, err
	}

	if len(results) == 0 {
		return nil, false, nil
	}

	return results[0], true, nil
}
