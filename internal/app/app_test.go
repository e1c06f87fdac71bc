package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeforge-dev/indexcore/internal/vectorstore"
)

func TestParseQdrantURL(t *testing.T) {
	host, port, err := parseQdrantURL("http://localhost:6334")
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 6334, port)
}

func TestParseQdrantURL_DefaultsPortWhenAbsent(t *testing.T) {
	host, port, err := parseQdrantURL("http://qdrant.internal")
	require.NoError(t, err)
	assert.Equal(t, "qdrant.internal", host)
	assert.Equal(t, 6334, port)
}

func TestParseQdrantURL_BareHostWithNoScheme(t *testing.T) {
	host, port, err := parseQdrantURL("qdrant.internal:9000")
	require.NoError(t, err)
	assert.Equal(t, "qdrant.internal", host)
	assert.Equal(t, 9000, port)
}

func TestDistanceFromConfig(t *testing.T) {
	assert.Equal(t, vectorstore.DistanceCosine, distanceFromConfig("Cosine"))
	assert.Equal(t, vectorstore.DistanceEuclid, distanceFromConfig("Euclid"))
	assert.Equal(t, vectorstore.DistanceDot, distanceFromConfig("Dot"))
	assert.Equal(t, vectorstore.DistanceCosine, distanceFromConfig("bogus"))
}

func TestSnapshotDir(t *testing.T) {
	assert.Equal(t, "/repo/.indexcore/snapshots", snapshotDir("/repo"))
}
