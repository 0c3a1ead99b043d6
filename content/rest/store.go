package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/sfomuseum/go-arcgis-layers/content"
	"github.com/tidwall/gjson"
)

// The maximum number of results returned by a single search request.
const SEARCH_MAX_RESULTS int = 100

// AddItem uploads the contents of `r` as a new item owned by the client's user.
func (c *Client) AddItem(ctx context.Context, props *content.ItemProperties, filename string, r io.Reader) (content.Item, error) {

	params := url.Values{}

	for k, v := range props.Extra {

		if content.IsReservedProperty(k) {
			continue
		}

		switch str_v := v.(type) {
		case string:
			params.Set(k, str_v)
		default:

			enc, err := json.Marshal(v)

			if err != nil {
				return nil, fmt.Errorf("Failed to encode item property '%s', %w", k, err)
			}

			params.Set(k, string(enc))
		}
	}

	params.Set("title", props.Title)
	params.Set("type", props.Type)
	params.Set("tags", strings.Join(props.Tags, ","))

	endpoint := c.sharingURL("content", "users", c.username, "addItem")

	body, err := c.postMultipart(ctx, endpoint, params, "file", filename, r)

	if err != nil {
		return nil, fmt.Errorf("Failed to add item, %w", err)
	}

	err = checkSuccess(body, "add item")

	if err != nil {
		return nil, err
	}

	id := gjson.GetBytes(body, "id").String()

	if id == "" {
		return nil, fmt.Errorf("Add item response is missing item ID")
	}

	slog.Default().Debug("Added item", "id", id, "title", props.Title)

	i := &RESTItem{
		client:    c,
		id:        id,
		title:     props.Title,
		tags:      append([]string{}, props.Tags...),
		item_type: props.Type,
		owner:     c.username,
	}

	return i, nil
}

// Search returns the first SEARCH_MAX_RESULTS items matching `q`.
func (c *Client) Search(ctx context.Context, q string) ([]content.Item, error) {

	params := url.Values{}
	params.Set("q", q)
	params.Set("num", strconv.Itoa(SEARCH_MAX_RESULTS))

	body, err := c.get(ctx, c.sharingURL("search"), params)

	if err != nil {
		return nil, fmt.Errorf("Failed to search for '%s', %w", q, err)
	}

	results := gjson.GetBytes(body, "results").Array()
	items := make([]content.Item, len(results))

	for idx, r := range results {
		items[idx] = c.newItem(r)
	}

	return items, nil
}

// Item returns the item whose ID is `id`.
func (c *Client) Item(ctx context.Context, id string) (content.Item, error) {

	body, err := c.get(ctx, c.sharingURL("content", "items", id), nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to retrieve item %s, %w", id, err)
	}

	return c.newItem(gjson.ParseBytes(body)), nil
}

// CloneItems creates an empty copy of each "Feature Service" item in `items`, preserving the item
// metadata and the definition of each layer. Copying layer rows is not supported.
func (c *Client) CloneItems(ctx context.Context, items []content.Item, copy_data bool) ([]content.Item, error) {

	if copy_data {
		return nil, errors.New("Cloning item data is not supported")
	}

	clones := make([]content.Item, len(items))

	for idx, i := range items {

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			// pass
		}

		cl, err := c.cloneItem(ctx, i)

		if err != nil {
			return nil, fmt.Errorf("Failed to clone item %s, %w", i.ID(), err)
		}

		clones[idx] = cl
	}

	return clones, nil
}

func (c *Client) newItem(r gjson.Result) *RESTItem {

	tags := make([]string, 0)

	for _, t := range r.Get("tags").Array() {
		tags = append(tags, t.String())
	}

	owner := r.Get("owner").String()

	if owner == "" {
		owner = c.username
	}

	i := &RESTItem{
		client:    c,
		id:        r.Get("id").String(),
		title:     r.Get("title").String(),
		tags:      tags,
		item_type: r.Get("type").String(),
		owner:     owner,
		url:       r.Get("url").String(),
	}

	return i
}
