package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/sfomuseum/go-arcgis-layers/content"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Service definition properties copied to the create parameters of a cloned service.
var clone_service_properties = []string{
	"serviceDescription",
	"description",
	"copyrightText",
	"maxRecordCount",
	"supportedQueryFormats",
	"capabilities",
	"spatialReference",
	"initialExtent",
	"allowGeometryUpdates",
	"units",
	"xssPreventionInfo",
}

// Layer definition properties that are assigned by the server and can not be added to a new service.
var clone_readonly_layer_properties = []string{
	"currentVersion",
	"serviceItemId",
	"editingInfo",
}

func (c *Client) cloneItem(ctx context.Context, i content.Item) (content.Item, error) {

	logger := slog.Default()
	logger = logger.With("source", i.ID())

	item_body, err := c.get(ctx, c.sharingURL("content", "items", i.ID()), nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to retrieve item, %w", err)
	}

	src := gjson.ParseBytes(item_body)

	if src.Get("type").String() != content.FEATURE_SERVICE_ITEM_TYPE {
		return nil, fmt.Errorf("Cloning items of type '%s' is not supported", src.Get("type").String())
	}

	svc_url := strings.TrimRight(src.Get("url").String(), "/")

	if svc_url == "" {
		return nil, fmt.Errorf("Item does not have a service URL")
	}

	svc_body, err := c.get(ctx, svc_url, nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to retrieve service definition, %w", err)
	}

	layers_body, err := c.get(ctx, svc_url+"/layers", nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to retrieve layer definitions, %w", err)
	}

	name, err := serviceName(src.Get("title").String())

	if err != nil {
		return nil, err
	}

	create_params, err := sjson.SetBytes([]byte(`{}`), "name", name)

	if err != nil {
		return nil, fmt.Errorf("Failed to assign service name, %w", err)
	}

	create_params, err = sjson.SetBytes(create_params, "hasStaticData", false)

	if err != nil {
		return nil, fmt.Errorf("Failed to assign hasStaticData, %w", err)
	}

	for _, prop := range clone_service_properties {

		v := gjson.GetBytes(svc_body, prop)

		if !v.Exists() {
			continue
		}

		create_params, err = sjson.SetRawBytes(create_params, prop, []byte(v.Raw))

		if err != nil {
			return nil, fmt.Errorf("Failed to assign %s, %w", prop, err)
		}
	}

	params := url.Values{}
	params.Set("outputType", "featureService")
	params.Set("createParameters", string(create_params))

	create_body, err := c.post(ctx, c.sharingURL("content", "users", c.username, "createService"), params)

	if err != nil {
		return nil, fmt.Errorf("Failed to create service, %w", err)
	}

	err = checkSuccess(create_body, "create service")

	if err != nil {
		return nil, err
	}

	new_id := gjson.GetBytes(create_body, "itemId").String()
	new_url := gjson.GetBytes(create_body, "serviceurl").String()

	if new_id == "" || new_url == "" {
		return nil, fmt.Errorf("Create service response is missing item ID or service URL")
	}

	logger = logger.With("clone", new_id)
	logger.Debug("Created service", "url", new_url)

	clone := &RESTItem{
		client: c,
		id:     new_id,
		owner:  c.username,
		url:    new_url,
	}

	// remove the new (incomplete) service if any of the remaining steps fail

	scrub := func(err error) error {

		delete_err := clone.Delete(ctx)

		if delete_err != nil {
			logger.Error("Failed to remove incomplete clone", "error", delete_err)
			return errors.Join(err, delete_err)
		}

		logger.Debug("Removed incomplete clone")
		return err
	}

	definition, err := cloneDefinition(layers_body)

	if err != nil {
		return nil, scrub(err)
	}

	err = c.addToDefinition(ctx, new_url, definition)

	if err != nil {
		return nil, scrub(err)
	}

	update_params := url.Values{}
	update_params.Set("title", src.Get("title").String())

	tags := make([]string, 0)

	for _, t := range src.Get("tags").Array() {
		tags = append(tags, t.String())
	}

	update_params.Set("tags", strings.Join(tags, ","))

	for _, prop := range []string{"snippet", "description", "accessInformation", "licenseInfo"} {

		v := src.Get(prop)

		if v.Exists() && v.Type == gjson.String {
			update_params.Set(prop, v.String())
		}
	}

	update_body, err := c.post(ctx, c.sharingURL("content", "users", c.username, "items", new_id, "update"), update_params)

	if err != nil {
		return nil, scrub(fmt.Errorf("Failed to update item %s, %w", new_id, err))
	}

	err = checkSuccess(update_body, "update item "+new_id)

	if err != nil {
		return nil, scrub(err)
	}

	return c.Item(ctx, new_id)
}

// cloneDefinition returns an "addToDefinition" document for the layers and tables in `layers_body`, less
// any server assigned properties.
func cloneDefinition(layers_body []byte) ([]byte, error) {

	definition := []byte(`{"layers":[],"tables":[]}`)

	for _, k := range []string{"layers", "tables"} {

		for _, l := range gjson.GetBytes(layers_body, k).Array() {

			l_body := []byte(l.Raw)

			var err error

			for _, prop := range clone_readonly_layer_properties {

				l_body, err = sjson.DeleteBytes(l_body, prop)

				if err != nil {
					return nil, fmt.Errorf("Failed to remove %s from layer definition, %w", prop, err)
				}
			}

			definition, err = sjson.SetRawBytes(definition, k+".-1", l_body)

			if err != nil {
				return nil, fmt.Errorf("Failed to append layer definition, %w", err)
			}
		}
	}

	return definition, nil
}
