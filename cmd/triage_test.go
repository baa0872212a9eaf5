package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/core"
	"triage/enrich"
)

func TestClassifyRaw(t *testing.T) {
	records, err := classifyRaw("103.246.147.17, admin.zscloud.net\nhttp://belaysolutions.link")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, core.IndicatorTypeIPv4, records[0].Type)
	assert.Equal(t, core.IndicatorTypeDomain, records[1].Type)
	assert.Equal(t, core.IndicatorTypeURL, records[2].Type)
}

func TestClassifyRaw_Deduplicates(t *testing.T) {
	records, err := classifyRaw("103.246.147.17,103.246.147.17")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestClassifyRaw_EmptyInput(t *testing.T) {
	_, err := classifyRaw(" , \n ")
	assert.ErrorIs(t, err, enrich.ErrInputEmpty)
}

func TestReadIndicators_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "iocs.txt")
	require.NoError(t, os.WriteFile(path, []byte("103.246.147.17\n"), 0o644))

	raw, err := readIndicators([]string{path})
	require.NoError(t, err)
	assert.Equal(t, "103.246.147.17\n", raw)
}

func TestReadIndicators_MissingFile(t *testing.T) {
	_, err := readIndicators([]string{"/no/such/file"})
	assert.Error(t, err)
}
