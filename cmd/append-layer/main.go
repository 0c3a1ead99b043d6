// append-layer appends (or upserts) the features in a GeoJSON FeatureCollection to the first layer of the
// hosted feature layer item tagged with a given tag.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sfomuseum/go-arcgis-layers"
	"github.com/sfomuseum/go-arcgis-layers/common"
	"github.com/sfomuseum/go-arcgis-layers/config"
	_ "github.com/sfomuseum/go-arcgis-layers/content/blobstore"
	_ "github.com/sfomuseum/go-arcgis-layers/content/rest"
	_ "gocloud.dev/blob/fileblob"
)

func main() {

	var geojson_path string
	var tag string
	var uid_field string

	flag.StringVar(&geojson_path, "geojson", common.STDIN, "The path to a GeoJSON FeatureCollection file, or \"-\" to read from STDIN.")
	flag.StringVar(&tag, "tag", "", "The tag of the hosted feature layer item to append to. If empty the default tag is used.")
	flag.StringVar(&uid_field, "uid-field", "", "An optional (uniquely indexed) field used to upsert features.")

	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load config, %v", err)
	}

	logger := common.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if tag == "" {
		tag = cfg.Defaults().Tag
	}

	store_uri, err := cfg.ContentStoreURI()

	if err != nil {
		log.Fatal(err)
	}

	body, err := common.ReadGeoJSON(geojson_path)

	if err != nil {
		log.Fatal(err)
	}

	pub, err := layers.NewPublisherWithURIs(ctx, store_uri, cfg.StagingURI, cfg.Defaults())

	if err != nil {
		log.Fatalf("Failed to create publisher, %v", err)
	}

	defer pub.Close()

	item, ok, err := pub.FindLayerByTag(ctx, tag)

	if err != nil {
		log.Fatalf("Failed to find layer, %v", err)
	}

	if !ok {
		log.Fatalf("No hosted feature layer tagged '%s'", tag)
	}

	item_layers, err := item.Layers(ctx)

	if err != nil {
		log.Fatalf("Failed to retrieve layers for %s, %v", item.ID(), err)
	}

	if len(item_layers) == 0 {
		log.Fatalf("Item %s does not have any layers", item.ID())
	}

	rsp, err := pub.AppendToLayer(ctx, item_layers[0], body, uid_field)

	if err != nil {
		log.Fatalf("Failed to append to layer, %v", err)
	}

	logger.Info("Appended features", "item", item.ID(), "layer", item_layers[0].URL(), "status", rsp.Status)

	fmt.Println(rsp.Status)
}
