package common

import (
	"fmt"
	"io"
	"os"

	"github.com/tidwall/gjson"
)

// The path that ReadGeoJSON treats as "read from STDIN".
const STDIN string = "-"

// ReadGeoJSON reads a GeoJSON FeatureCollection from the file at `path`, or STDIN if `path` is "-".
func ReadGeoJSON(path string) ([]byte, error) {

	if path == STDIN {
		return ReadGeoJSONWithReader(os.Stdin)
	}

	r, err := os.Open(path)

	if err != nil {
		return nil, fmt.Errorf("Failed to open %s, %w", path, err)
	}

	defer r.Close()

	return ReadGeoJSONWithReader(r)
}

// ReadGeoJSONWithReader reads a GeoJSON FeatureCollection from `r`.
func ReadGeoJSONWithReader(r io.Reader) ([]byte, error) {

	body, err := io.ReadAll(r)

	if err != nil {
		return nil, fmt.Errorf("Failed to read GeoJSON, %w", err)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("Invalid JSON")
	}

	type_rsp := gjson.GetBytes(body, "type")

	if type_rsp.String() != "FeatureCollection" {
		return nil, fmt.Errorf("Unsupported GeoJSON type '%s', expected FeatureCollection", type_rsp.String())
	}

	if !gjson.GetBytes(body, "features").IsArray() {
		return nil, fmt.Errorf("FeatureCollection is missing a features array")
	}

	return body, nil
}
