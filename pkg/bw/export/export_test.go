package export

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/erpl-adt/erpl-adt/pkg/bw/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDocumentSetsContractAndSchemaVersion(t *testing.T) {
	result := &graph.ExportResult{
		InfoArea: "ZAREA1",
		Objects: []graph.ExportedObject{
			{Name: "DTP_1", Type: "DTPA", DtpSourceType: "RSDS", DtpSourceName: "SRC", DtpTargetType: "ADSO", DtpTargetName: "TGT"},
		},
	}
	ts := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	doc := BuildDocument(result, ts)

	assert.Equal(t, "1.0", doc.SchemaVersion)
	assert.Equal(t, "bw.infoarea.export", doc.Contract)
	assert.Equal(t, "ZAREA1", doc.InfoArea)
	assert.Equal(t, "2026-07-31T12:00:00Z", doc.ExportedAt)
	require.Len(t, doc.Objects, 1)
	require.NotNil(t, doc.Objects[0].DtpSource)
	assert.Equal(t, "RSDS", doc.Objects[0].DtpSource.Type)
}

func TestMarshalProducesValidJSON(t *testing.T) {
	doc := BuildDocument(&graph.ExportResult{InfoArea: "ZAREA1"}, time.Unix(0, 0))
	data, err := Marshal(doc)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "bw.infoarea.export", decoded["contract"])
	assert.Equal(t, []any{}, decoded["objects"])
}
