// find-layer prints the ID of the first hosted feature layer item tagged with a given tag.
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

	var tag string

	flag.StringVar(&tag, "tag", "", "The tag to search for. If empty the default tag is used.")

	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load config, %v", err)
	}

	common.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	store_uri, err := cfg.ContentStoreURI()

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
		os.Exit(1)
	}

	fmt.Println(item.ID())
}
