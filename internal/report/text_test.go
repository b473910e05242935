package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleInsight(t)))
	out := buf.String()

	nigeria := strings.Index(out, "=== Nigeria ===")
	kenya := strings.Index(out, "=== Kenya ===")
	aggregate := strings.Index(out, "=== Aggregate ===")
	require.True(t, nigeria >= 0 && kenya > nigeria && aggregate > kenya, "sections out of order:\n%s", out)

	assert.Contains(t, out, "  Date/time range: 2025-01-01T09:00:00Z to 2025-01-05T09:00:00Z\n")
	assert.Contains(t, out, "  Total transactions: 6\n")
	assert.Contains(t, out, "    Successful  : 2\n")
	assert.Contains(t, out, "    Bank Transfer   : 1\n")
	assert.Contains(t, out, "  Top failure messages:\n       2 × Declined\n")
	assert.Contains(t, out, "  Provider breakdown:\n    - interswitch:\n        Total: 1\n        Abandoned   : 1\n")
	assert.NotContains(t, out, "Tanzania")
}

func TestWriteText_TopNLimit(t *testing.T) {
	in := sampleInsight(t)
	in.TopN = 1

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, in))

	aggregate := buf.String()[strings.Index(buf.String(), "=== Aggregate ==="):]
	failures := aggregate[strings.Index(aggregate, "Top failure messages:"):]
	lines := strings.Split(failures, "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "       2 × Declined", lines[1])
	assert.NotContains(t, lines[2], "×", "only one failure message should be listed")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteText_WriteError(t *testing.T) {
	err := WriteText(failingWriter{}, sampleInsight(t))
	assert.EqualError(t, err, "disk full")
}
