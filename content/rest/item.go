package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/aaronland/go-string/random"
	"github.com/sfomuseum/go-arcgis-layers/content"
	"github.com/tidwall/gjson"
)

// Characters that are not allowed in hosted service names.
var re_service_name = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// RESTItem is a content.Item stored in an ArcGIS portal.
type RESTItem struct {
	content.Item
	client    *Client
	id        string
	title     string
	tags      []string
	item_type string
	owner     string
	url       string
}

func (i *RESTItem) ID() string {
	return i.id
}

func (i *RESTItem) Title() string {
	return i.title
}

func (i *RESTItem) Tags() []string {
	return i.tags
}

func (i *RESTItem) Type() string {
	return i.item_type
}

// URL returns the service URL of the item, if it has one.
func (i *RESTItem) URL() string {
	return i.url
}

// Owner returns the name of the user who owns the item.
func (i *RESTItem) Owner() string {
	return i.owner
}

// Delete removes the item from the portal.
func (i *RESTItem) Delete(ctx context.Context) error {

	endpoint := i.client.sharingURL("content", "users", i.owner, "items", i.id, "delete")

	body, err := i.client.post(ctx, endpoint, nil)

	if err != nil {
		return fmt.Errorf("Failed to delete item %s, %w", i.id, err)
	}

	return checkSuccess(body, "delete item "+i.id)
}

// Publish publishes the item's GeoJSON data as a new hosted feature layer and waits for the publishing
// job to complete.
func (i *RESTItem) Publish(ctx context.Context) (content.Item, error) {

	logger := slog.Default()
	logger = logger.With("item", i.id)

	name, err := serviceName(i.title)

	if err != nil {
		return nil, err
	}

	publish_params, err := json.Marshal(map[string]string{"name": name})

	if err != nil {
		return nil, fmt.Errorf("Failed to encode publish parameters, %w", err)
	}

	params := url.Values{}
	params.Set("itemid", i.id)
	params.Set("filetype", content.GEOJSON_UPLOAD_FORMAT)
	params.Set("publishParameters", string(publish_params))

	endpoint := i.client.sharingURL("content", "users", i.owner, "publish")

	body, err := i.client.post(ctx, endpoint, params)

	if err != nil {
		return nil, fmt.Errorf("Failed to publish item %s, %w", i.id, err)
	}

	svc := gjson.GetBytes(body, "services.0")

	if !svc.Exists() {
		return nil, fmt.Errorf("Publish response for item %s is missing services", i.id)
	}

	err = checkError([]byte(svc.Raw))

	if err != nil {
		return nil, fmt.Errorf("Failed to publish item %s, %w", i.id, err)
	}

	svc_id := svc.Get("serviceItemId").String()
	job_id := svc.Get("jobId").String()

	if svc_id == "" {
		return nil, fmt.Errorf("Publish response for item %s is missing service item ID", i.id)
	}

	logger.Debug("Publishing item", "service", svc_id, "job", job_id)

	if job_id != "" {

		status_url := i.client.sharingURL("content", "users", i.owner, "items", svc_id, "status")

		status_params := url.Values{}
		status_params.Set("jobId", job_id)
		status_params.Set("jobType", "publish")

		check := func(ctx context.Context) (string, bool, error) {

			body, err := i.client.get(ctx, status_url, status_params)

			if err != nil {
				return "", false, err
			}

			status := gjson.GetBytes(body, "status").String()

			switch status {
			case "completed":
				return status, true, nil
			case "failed":
				msg := gjson.GetBytes(body, "statusMessage").String()
				return status, true, fmt.Errorf("Publish job %s failed, %s", job_id, msg)
			default:
				return status, false, nil
			}
		}

		_, err := i.client.waitForStatus(ctx, check)

		if err != nil {
			return nil, fmt.Errorf("Failed to wait for item %s to publish, %w", i.id, err)
		}
	}

	return i.client.Item(ctx, svc_id)
}

// Layers returns the layers of the item's feature service, in the order the service lists them.
func (i *RESTItem) Layers(ctx context.Context) ([]content.Layer, error) {

	if i.url == "" {
		return nil, fmt.Errorf("Item %s does not have a service URL", i.id)
	}

	body, err := i.client.get(ctx, i.url, nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to retrieve service definition for item %s, %w", i.id, err)
	}

	svc_url := strings.TrimRight(i.url, "/")

	layers_rsp := gjson.GetBytes(body, "layers").Array()
	layers := make([]content.Layer, len(layers_rsp))

	for idx, l := range layers_rsp {

		layers[idx] = &RESTLayer{
			client: i.client,
			url:    fmt.Sprintf("%s/%d", svc_url, l.Get("id").Int()),
		}
	}

	return layers, nil
}

// serviceName derives a unique hosted service name from `title`.
func serviceName(title string) (string, error) {

	rand_opts := random.DefaultOptions()
	rand_opts.AlphaNumeric = true
	rand_opts.Length = 8

	suffix, err := random.String(rand_opts)

	if err != nil {
		return "", fmt.Errorf("Failed to generate service name suffix, %w", err)
	}

	name := strings.Trim(re_service_name.ReplaceAllString(title, "_"), "_")

	if name == "" {
		name = "layer"
	}

	return name + "_" + suffix, nil
}
