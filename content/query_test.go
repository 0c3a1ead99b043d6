package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	item_type string
	tags      []string
}

func (i *testItem) ID() string {
	return "abc"
}

func (i *testItem) Title() string {
	return "test"
}

func (i *testItem) Tags() []string {
	return i.tags
}

func (i *testItem) Type() string {
	return i.item_type
}

func (i *testItem) Delete(ctx context.Context) error {
	return nil
}

func (i *testItem) Publish(ctx context.Context) (Item, error) {
	return nil, nil
}

func (i *testItem) Layers(ctx context.Context) ([]Layer, error) {
	return nil, nil
}

func TestSearchQuery(t *testing.T) {

	q := SearchQuery("geojson-utils-poc", FEATURE_SERVICE_ITEM_TYPE)
	assert.Equal(t, `tags:"geojson-utils-poc" AND type:"Feature Service"`, q)
}

func TestParseSearchQuery(t *testing.T) {

	q, err := ParseSearchQuery(SearchQuery("flights", FEATURE_SERVICE_ITEM_TYPE))
	require.NoError(t, err)

	assert.Equal(t, []string{"flights"}, q.Tags)
	assert.Equal(t, FEATURE_SERVICE_ITEM_TYPE, q.Type)
}

func TestParseSearchQuery_Invalid(t *testing.T) {

	tests := []string{
		"",
		"flights",
		`owner:"bob"`,
		`type:"GeoJson" AND type:"Feature Service"`,
	}

	for _, q := range tests {
		_, err := ParseSearchQuery(q)
		assert.Error(t, err, q)
	}
}

func TestQuery_Matches(t *testing.T) {

	q, err := ParseSearchQuery(SearchQuery("flights", FEATURE_SERVICE_ITEM_TYPE))
	require.NoError(t, err)

	assert.True(t, q.Matches(&testItem{item_type: FEATURE_SERVICE_ITEM_TYPE, tags: []string{"sfo", "flights"}}))
	assert.False(t, q.Matches(&testItem{item_type: GEOJSON_ITEM_TYPE, tags: []string{"flights"}}))
	assert.False(t, q.Matches(&testItem{item_type: FEATURE_SERVICE_ITEM_TYPE, tags: []string{"sfo"}}))
}

func TestIndexFields(t *testing.T) {

	assert.Equal(t, "uid", IndexFields("uid"))
	assert.Equal(t, "flight,date", IndexFields("flight", "date"))
}
