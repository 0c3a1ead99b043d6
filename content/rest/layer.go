package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/sfomuseum/go-arcgis-layers/content"
	"github.com/tidwall/gjson"
)

// RESTLayer is a content.Layer of a hosted feature service.
type RESTLayer struct {
	content.Layer
	client *Client
	url    string
}

// RESTLayerManager is a content.LayerManager that updates layer definitions using the
// ArcGIS Server admin endpoints.
type RESTLayerManager struct {
	content.LayerManager
	client *Client
	url    string
}

func (l *RESTLayer) URL() string {
	return l.url
}

func (l *RESTLayer) Manager() content.LayerManager {

	m := &RESTLayerManager{
		client: l.client,
		url:    l.url,
	}

	return m
}

// Append appends the data of the item identified by `opts.ItemID` to the layer and waits for the
// append job to complete.
func (l *RESTLayer) Append(ctx context.Context, opts *content.AppendOptions) (*content.AppendResult, error) {

	if opts.Upsert && opts.UpsertMatchingField == "" {
		return nil, fmt.Errorf("Upserting requires a matching field")
	}

	logger := slog.Default()
	logger = logger.With("layer", l.url, "item", opts.ItemID)

	params := url.Values{}
	params.Set("appendItemId", opts.ItemID)
	params.Set("appendUploadFormat", opts.UploadFormat)
	params.Set("upsert", strconv.FormatBool(opts.Upsert))
	params.Set("rollbackOnFailure", "true")
	params.Set("async", "true")

	if opts.Upsert {
		params.Set("upsertMatchingField", opts.UpsertMatchingField)
		params.Set("skipUpdates", "false")
		params.Set("useGlobalIds", "false")
		params.Set("updateGeometry", "true")
	}

	body, err := l.client.post(ctx, l.url+"/append", params)

	if err != nil {
		return nil, fmt.Errorf("Failed to append item %s, %w", opts.ItemID, err)
	}

	status_url := gjson.GetBytes(body, "statusUrl").String()

	if status_url != "" {

		logger.Debug("Wait for append job", "status", status_url)

		check := func(ctx context.Context) (string, bool, error) {

			rsp, err := l.client.get(ctx, status_url, nil)

			if err != nil {
				return "", false, err
			}

			body = rsp
			status := gjson.GetBytes(rsp, "status").String()

			switch strings.ToLower(status) {
			case "completed":
				return status, true, nil
			case "failed", "completedwitherrors":
				return status, true, fmt.Errorf("Append job finished with status '%s', %s", status, string(rsp))
			default:
				return status, false, nil
			}
		}

		_, err := l.client.waitForStatus(ctx, check)

		if err != nil {
			return nil, fmt.Errorf("Failed to wait for append of item %s, %w", opts.ItemID, err)
		}
	}

	rsp := gjson.ParseBytes(body)

	// the append job only reports the total number of rows processed

	r := &content.AppendResult{
		Status:  rsp.Get("status").String(),
		Records: int(rsp.Get("recordCount").Int()),
		Body:    body,
	}

	logger.Debug("Append complete", "status", r.Status)

	return r, nil
}

// AddToDefinition adds the indexes in `update` to the layer's definition.
func (m *RESTLayerManager) AddToDefinition(ctx context.Context, update *content.DefinitionUpdate) error {

	enc, err := json.Marshal(update)

	if err != nil {
		return fmt.Errorf("Failed to encode definition update, %w", err)
	}

	return m.client.addToDefinition(ctx, m.url, enc)
}

// addToDefinition posts `definition` to the admin "addToDefinition" endpoint for the service (or layer) at `service_url`.
func (c *Client) addToDefinition(ctx context.Context, service_url string, definition []byte) error {

	admin_url, err := adminURL(service_url)

	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("addToDefinition", string(definition))

	body, err := c.post(ctx, admin_url+"/addToDefinition", params)

	if err != nil {
		return fmt.Errorf("Failed to update definition for %s, %w", service_url, err)
	}

	return checkSuccess(body, "update definition for "+service_url)
}

// adminURL returns the admin endpoint for a hosted feature service (or layer) URL.
func adminURL(service_url string) (string, error) {

	if !strings.Contains(service_url, "/rest/services/") {
		return "", fmt.Errorf("'%s' is not a feature service URL", service_url)
	}

	admin_url := strings.Replace(service_url, "/rest/services/", "/rest/admin/services/", 1)
	return strings.TrimRight(admin_url, "/"), nil
}
