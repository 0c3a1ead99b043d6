// Package layers provides methods for publishing GeoJSON documents as hosted feature layers in an ArcGIS
// style content store: Uploading staged GeoJSON items, appending (or upserting) GeoJSON to existing layers,
// creating layers from template items or from scratch and finding previously created layers by tag.
//
// Content stores are defined by the content.Store interface and created from URIs, for example:
//
//	import (
//		"github.com/sfomuseum/go-arcgis-layers"
//		"github.com/sfomuseum/go-arcgis-layers/common"
//		"github.com/sfomuseum/go-arcgis-layers/content"
//		_ "github.com/sfomuseum/go-arcgis-layers/content/rest"
//	)
//
//	store, _ := content.NewStore(ctx, "arcgis://www.arcgis.com?username=example&token=...")
//	staging, _ := common.OpenStagingBucket(ctx, "")
//	defer staging.Close()
//
//	pub := layers.NewPublisher(store, staging, nil)
//	lyr_item, _ := pub.CreateScratchLayer(ctx, body, "uid", nil)
package layers
