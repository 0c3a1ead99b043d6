package common

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

func TestStageGeoJSON(t *testing.T) {

	ctx := context.Background()

	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	body := []byte(`{"type":"FeatureCollection","features":[]}`)

	key, err := StageGeoJSON(ctx, bucket, body)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(key, STAGING_EXTENSION))

	staged, err := bucket.ReadAll(ctx, key)
	require.NoError(t, err)

	assert.Equal(t, body, staged)

	other, err := StageGeoJSON(ctx, bucket, body)
	require.NoError(t, err)

	assert.NotEqual(t, key, other)
}

func TestOpenStagingBucket(t *testing.T) {

	ctx := context.Background()

	bucket, err := OpenStagingBucket(ctx, "mem://")
	require.NoError(t, err)
	defer bucket.Close()

	_, err = OpenStagingBucket(ctx, "bogus://")
	assert.Error(t, err)
}

func TestDefaultStagingURI(t *testing.T) {
	assert.True(t, strings.HasPrefix(DefaultStagingURI(), "file://"))
}

func TestSetupLogger(t *testing.T) {

	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer

	logger := SetupLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()

	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"key":"value"`)
}
