// scratch-layer publishes a GeoJSON FeatureCollection as a new hosted feature layer, optionally adding a
// unique index on a feature property so that later updates can be upserted.
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
	var uid_field string
	var title string
	var tag string

	flag.StringVar(&geojson_path, "geojson", common.STDIN, "The path to a GeoJSON FeatureCollection file, or \"-\" to read from STDIN.")
	flag.StringVar(&uid_field, "uid-field", "", "An optional feature property to add a unique index for.")
	flag.StringVar(&title, "title", "", "The title of the new item. If empty the default title is used.")
	flag.StringVar(&tag, "tag", "", "The tag to assign to the new item. If empty the default tag is used.")

	flag.Parse()

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

	props := &content.ItemProperties{
		Title: title,
	}

	if tag != "" {
		props.Tags = []string{tag}
	}

	item, err := pub.CreateScratchLayer(ctx, body, uid_field, props)

	if err != nil {
		log.Fatalf("Failed to create scratch layer, %v", err)
	}

	logger.Info("Created scratch layer", "item", item.ID(), "title", item.Title())

	fmt.Println(item.ID())
}
