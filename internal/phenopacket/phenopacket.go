// Package phenopacket builds the phenopacket documents handed to LIRICAL.
package phenopacket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/molgenis/biobesu/internal/benchmark"
)

// Fixed metadata describing the phenotype ontology resource.
const (
	CreatedBy = "biobesu"

	resourceID        = "hp"
	resourceName      = "Human Phenotype Ontology"
	resourceNamespace = "HP"
	resourceURL       = "http://purl.obolibrary.org/obo/hp.owl"
	resourceIRIPrefix = "http://purl.obolibrary.org/obo/HP_"
)

// ErrUnknownPhenotype is returned when a case references a phenotype ID that
// has no name in the ontology.
var ErrUnknownPhenotype = errors.New("unknown phenotype")

// NameLookup resolves a phenotype ID to its display name.
type NameLookup interface {
	IDToName(id string) (string, bool)
}

// Phenopacket is the subset of the phenopacket schema LIRICAL reads.
// Field order matches the serialized key order.
type Phenopacket struct {
	ID                 string              `json:"id"`
	PhenotypicFeatures []PhenotypicFeature `json:"phenotypic_features"`
	MetaData           MetaData            `json:"meta_data"`
}

// PhenotypicFeature is one observed phenotype.
type PhenotypicFeature struct {
	Type OntologyClass `json:"type"`
}

// OntologyClass is an ontology term with its label.
type OntologyClass struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// MetaData records provenance of the document.
type MetaData struct {
	Created   string     `json:"created"`
	CreatedBy string     `json:"created_by"`
	Resources []Resource `json:"resources"`
}

// Resource describes an ontology the document refers to.
type Resource struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	NamespacePrefix string `json:"namespacePrefix"`
	URL             string `json:"url"`
	Version         string `json:"version"`
	IRIPrefix       string `json:"iriPrefix"`
}

// Encode builds a phenopacket for c. Phenotypes keep the order of the case.
// Every phenotype ID must be known to names.
func Encode(c benchmark.Case, names NameLookup, version string, created time.Time) (*Phenopacket, error) {
	features := make([]PhenotypicFeature, 0, len(c.PhenotypeIDs))
	for _, id := range c.PhenotypeIDs {
		label, ok := names.IDToName(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s in case %s", ErrUnknownPhenotype, id, c.ID)
		}
		features = append(features, PhenotypicFeature{Type: OntologyClass{ID: id, Label: label}})
	}

	return &Phenopacket{
		ID:                 c.ID,
		PhenotypicFeatures: features,
		MetaData: MetaData{
			Created:   created.UTC().Format(time.RFC3339Nano),
			CreatedBy: CreatedBy,
			Resources: []Resource{{
				ID:              resourceID,
				Name:            resourceName,
				NamespacePrefix: resourceNamespace,
				URL:             resourceURL,
				Version:         version,
				IRIPrefix:       resourceIRIPrefix,
			}},
		},
	}, nil
}

// Marshal serializes p as tab-indented JSON.
func Marshal(p *Phenopacket) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "\t")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("encode phenopacket: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName returns the file name used for the phenopacket of a case.
func FileName(caseID string) string {
	return caseID + ".json"
}

// WriteFile writes p to dir/<id>.json and returns the path written.
func WriteFile(dir string, p *Phenopacket) (string, error) {
	data, err := Marshal(p)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(p.ID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write phenopacket: %w", err)
	}
	return path, nil
}
