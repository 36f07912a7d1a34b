package jsonscan

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResult() *Result {
	schema := NewSchema()
	schema.Objects = 3
	for i := 0; i < 3; i++ {
		schema.Add("id", TypeNumber)
	}
	schema.Add("title", TypeString)
	schema.Add("title", TypeNull)

	return &Result{
		Files:    []string{"1_a.json", "2_b.json"},
		Schema:   schema,
		Warnings: []Warning{{Path: "bad.json", Err: errors.New("unexpected EOF")}},
	}
}

func TestNewReport(t *testing.T) {
	report := NewReport(sampleResult())

	assert.Equal(t, 2, report.Files)
	assert.Equal(t, 3, report.Objects)
	require.Len(t, report.Keys, 2)
	assert.Equal(t, "id", report.Keys[0].Key)
	assert.Equal(t, KeyReport{
		Key:   "title",
		Total: 2,
		Types: []TypeReport{
			{Type: TypeNull, Count: 1, Percent: 50},
			{Type: TypeString, Count: 1, Percent: 50},
		},
	}, report.Keys[1])
	assert.Equal(t, []string{"bad.json: unexpected EOF"}, report.Warnings)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, NewReport(sampleResult())))

	expected := `
--- JSON Structure Analysis Results ---

## Key: 'id'
   - **Total Occurrences**: 3
   - **Type Distribution**:
     - Number    :          3 (100.00%)

## Key: 'title'
   - **Total Occurrences**: 2
   - **Type Distribution**:
     - Null      :          1 (50.00%)
     - String    :          1 (50.00%)
`
	assert.Equal(t, expected, buf.String())
}

func TestWriteText_NoFiles(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, NewReport(&Result{Schema: NewSchema()})))
	assert.Equal(t, "No JSON files found.\n", buf.String())
}

func TestWriteText_NoObjects(t *testing.T) {
	var buf bytes.Buffer
	report := NewReport(&Result{Files: []string{"a.json"}, Schema: NewSchema()})
	require.NoError(t, WriteText(&buf, report))
	assert.Contains(t, buf.String(), "Analysis complete, but no valid object structures were found.")
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, NewReport(sampleResult())))

	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2, decoded.Files)
	assert.Len(t, decoded.Keys, 2)
	assert.Contains(t, buf.String(), `"percent": 100`)
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, NewReport(sampleResult())))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2, decoded["files"])
	assert.Contains(t, buf.String(), "key: title")
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "xml", NewReport(sampleResult()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported format "xml"`)
}

func TestBuildJSONSchema(t *testing.T) {
	schema := BuildJSONSchema(NewReport(sampleResult()))

	assert.Equal(t, "array", schema.Type)
	require.NotNil(t, schema.Items)
	assert.Equal(t, "object", schema.Items.Type)
	assert.Equal(t, []string{"id"}, schema.Items.Required)

	id, ok := schema.Items.Properties.Get("id")
	require.True(t, ok)
	assert.Equal(t, "number", id.Type)

	title, ok := schema.Items.Properties.Get("title")
	require.True(t, ok)
	require.Len(t, title.AnyOf, 2)
	assert.Equal(t, "null", title.AnyOf[0].Type)
	assert.Equal(t, "string", title.AnyOf[1].Type)
}

func TestWrite_JSONSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSONSchema, NewReport(sampleResult())))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "https://json-schema.org/draft/2020-12/schema", decoded["$schema"])
	assert.Equal(t, "array", decoded["type"])
}
