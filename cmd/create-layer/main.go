// create-layer clones an existing hosted feature layer item and populates the clone with the features in
// a GeoJSON FeatureCollection.
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
	"github.com/sfomuseum/go-arcgis-layers/content"
	_ "github.com/sfomuseum/go-arcgis-layers/content/blobstore"
	_ "github.com/sfomuseum/go-arcgis-layers/content/rest"
	_ "gocloud.dev/blob/fileblob"
)

func main() {

	var geojson_path string
	var template_id string

	flag.StringVar(&geojson_path, "geojson", common.STDIN, "The path to a GeoJSON FeatureCollection file, or \"-\" to read from STDIN.")
	flag.StringVar(&template_id, "template-id", "", "The ID of the hosted feature layer item to clone.")

	flag.Parse()

	if template_id == "" {
		log.Fatal("Missing -template-id flag")
	}

	ctx := context.Background()

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load config, %v", err)
	}

	logger := common.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

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

	template, err := content.GetItem(ctx, pub.Store, template_id)

	if err != nil {
		log.Fatalf("Failed to retrieve template %s, %v", template_id, err)
	}

	item, err := pub.CreateLayer(ctx, body, template)

	if err != nil {
		log.Fatalf("Failed to create layer, %v", err)
	}

	logger.Info("Created layer", "template", template_id, "item", item.ID())

	fmt.Println(item.ID())
}
