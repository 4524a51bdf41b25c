package phenopacket

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molgenis/biobesu/internal/benchmark"
)

type names map[string]string

func (n names) IDToName(id string) (string, bool) {
	v, ok := n[id]
	return v, ok
}

var testNames = names{
	"HP:0001234": "Hitchhiker thumb",
	"HP:0004321": "Bladder fistula",
}

var testCase = benchmark.Case{ID: "1", PhenotypeIDs: []string{"HP:0001234", "HP:0004321"}}

const expectedJSON = `{
	"id": "1",
	"phenotypic_features": [
		{
			"type": {
				"id": "HP:0001234",
				"label": "Hitchhiker thumb"
			}
		},
		{
			"type": {
				"id": "HP:0004321",
				"label": "Bladder fistula"
			}
		}
	],
	"meta_data": {
		"created_by": "biobesu",
		"resources": [
			{
				"id": "hp",
				"name": "Human Phenotype Ontology",
				"namespacePrefix": "HP",
				"url": "http://purl.obolibrary.org/obo/hp.owl",
				"version": "2018-03-08",
				"iriPrefix": "http://purl.obolibrary.org/obo/HP_"
			}
		]
	}
}
`

var createdLine = regexp.MustCompile(`\t\t"created": "[^"]+",\n`)

func TestEncode(t *testing.T) {
	created := time.Date(2021, 2, 22, 13, 49, 0, 0, time.UTC)

	p, err := Encode(testCase, testNames, "2018-03-08", created)
	require.NoError(t, err)

	expected := &Phenopacket{
		ID: "1",
		PhenotypicFeatures: []PhenotypicFeature{
			{Type: OntologyClass{ID: "HP:0001234", Label: "Hitchhiker thumb"}},
			{Type: OntologyClass{ID: "HP:0004321", Label: "Bladder fistula"}},
		},
		MetaData: MetaData{
			Created:   "2021-02-22T13:49:00Z",
			CreatedBy: "biobesu",
			Resources: []Resource{{
				ID:              "hp",
				Name:            "Human Phenotype Ontology",
				NamespacePrefix: "HP",
				URL:             "http://purl.obolibrary.org/obo/hp.owl",
				Version:         "2018-03-08",
				IRIPrefix:       "http://purl.obolibrary.org/obo/HP_",
			}},
		},
	}
	assert.Equal(t, expected, p)
}

func TestEncode_CreatedIsUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	p, err := Encode(testCase, testNames, "v", time.Date(2021, 2, 22, 14, 49, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, "2021-02-22T13:49:00Z", p.MetaData.Created)
}

func TestEncode_UnknownPhenotype(t *testing.T) {
	c := benchmark.Case{ID: "2", PhenotypeIDs: []string{"HP:0001234", "HP:9999999"}}
	_, err := Encode(c, testNames, "v", time.Now())
	require.ErrorIs(t, err, ErrUnknownPhenotype)
	assert.Contains(t, err.Error(), "HP:9999999")
}

func TestMarshal(t *testing.T) {
	p, err := Encode(testCase, testNames, "2018-03-08", time.Now())
	require.NoError(t, err)

	data, err := Marshal(p)
	require.NoError(t, err)

	stripped := createdLine.ReplaceAllString(string(data), "")
	assert.Equal(t, expectedJSON, stripped)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	p, err := Encode(testCase, testNames, "2018-03-08", time.Now())
	require.NoError(t, err)

	path, err := WriteFile(dir, p)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "1.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Phenopacket
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *p, decoded)
}
