package influx

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/domain"
)

func TestRangeQuery(t *testing.T) {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	q := rangeQuery("transformers", "XFMR-0001", start, end)

	assert.Contains(t, q, `from(bucket: "transformers")`)
	// stop в Flux исключающий, поэтому конец окна сдвинут на 1ns
	assert.Contains(t, q, "range(start: 2025-07-01T00:00:00Z, stop: 2025-07-02T00:00:00.000000001Z)")
	assert.Contains(t, q, `r._measurement == "transformer_temperature"`)
	assert.Contains(t, q, `r.transformer_id == "XFMR-0001"`)
	assert.Contains(t, q, `r._field == "temp_c"`)
}

func TestRangeQuery_EscapesID(t *testing.T) {
	q := rangeQuery("b", `X" or true or "`, time.Unix(0, 0), time.Unix(60, 0))
	assert.Contains(t, q, `r.transformer_id == "X\" or true or \""`)
}

func TestLatestQuery(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	q := latestQuery("b", "XFMR-0001", now, time.Hour)

	assert.Contains(t, q, "range(start: 2025-07-01T11:00:00Z, stop: 2025-07-01T12:00:00.000000001Z)")
	assert.True(t, strings.HasSuffix(q, "|> last()\n"))
	assert.True(t, strings.HasPrefix(q, "import \"math\"\n"))
	assert.Contains(t, q, "math.isNaN(f: r._value)")
}

func TestToPoint(t *testing.T) {
	ts := time.Date(2025, 7, 1, 12, 0, 0, 0, time.FixedZone("PDT", -7*3600))
	p := toPoint(domain.TemperatureReading{TransformerID: "XFMR-0001", Timestamp: ts, TempC: 71.5})

	assert.Equal(t, measurement, p.Name())
	assert.True(t, ts.Equal(p.Time()))
	if assert.Len(t, p.TagList(), 1) {
		assert.Equal(t, idTag, p.TagList()[0].Key)
		assert.Equal(t, "XFMR-0001", p.TagList()[0].Value)
	}
	if assert.Len(t, p.FieldList(), 1) {
		assert.Equal(t, tempField, p.FieldList()[0].Key)
		assert.Equal(t, 71.5, p.FieldList()[0].Value)
	}
}
