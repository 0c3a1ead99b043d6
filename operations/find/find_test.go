package find

import (
	"context"
	"errors"
	"testing"

	"github.com/sfomuseum/go-arcgis-layers/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	content.Item
	id string
}

func (i *testItem) ID() string {
	return i.id
}

type testStore struct {
	content.Store
	results []content.Item
	err     error
	queries []string
}

func (s *testStore) Search(ctx context.Context, q string) ([]content.Item, error) {
	s.queries = append(s.queries, q)
	return s.results, s.err
}

func TestFindLayerByTag(t *testing.T) {

	ctx := context.Background()

	s := &testStore{
		results: []content.Item{
			&testItem{id: "first"},
			&testItem{id: "second"},
		},
	}

	item, ok, err := FindLayerByTag(ctx, s, "flights")
	require.NoError(t, err)

	assert.True(t, ok)
	assert.Equal(t, "first", item.ID())
	assert.Equal(t, []string{`tags:"flights" AND type:"Feature Service"`}, s.queries)
}

func TestFindLayerByTag_NotFound(t *testing.T) {

	ctx := context.Background()

	s := &testStore{
		results: []content.Item{},
	}

	item, ok, err := FindLayerByTag(ctx, s, "flights")
	require.NoError(t, err)

	assert.False(t, ok)
	assert.Nil(t, item)
}

func TestFindLayerByTag_Error(t *testing.T) {

	ctx := context.Background()

	search_err := errors.New("search error")

	s := &testStore{
		err: search_err,
	}

	_, _, err := FindLayerByTag(ctx, s, "flights")
	assert.ErrorIs(t, err, search_err)

	_, _, err = FindLayerByTag(ctx, s, "")
	assert.Error(t, err)
}
