// Package hpo parses Human Phenotype Ontology files in OBO format.
package hpo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/molgenis/biobesu/internal/lookup"
)

// OBO line prefixes.
const (
	prefixTerm        = "[Term]"
	prefixID          = "id: "
	prefixName        = "name: "
	prefixSynonym     = "synonym: \""
	prefixDataVersion = "data-version: "
)

// Ontology holds phenotype ID and name mappings read from an OBO file.
// It is not modified after loading.
type Ontology struct {
	// Version is the release taken from the data-version header,
	// e.g. "2018-03-08" for "data-version: releases/2018-03-08".
	Version string

	idToName lookup.Table
	nameToID lookup.Table
}

// Load reads an OBO file from path.
func Load(path string) (*Ontology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obo file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads OBO content.
//
// Every time both an ID and a name are held the pair is stored, after which
// the name is cleared. A synonym line replaces the held name, so a term is
// reachable by its name and by each of its synonyms. The ID keeps resolving to
// the primary name; a synonym only becomes the ID's name when the term has no
// name line before it.
func Parse(r io.Reader) (*Ontology, error) {
	o := &Ontology{
		idToName: make(lookup.Table),
		nameToID: make(lookup.Table),
	}

	var id, name string
	var synonym bool
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, prefixTerm):
			id, name, synonym = "", "", false
		case strings.HasPrefix(line, prefixID):
			id = strings.TrimSpace(strings.TrimPrefix(line, prefixID))
		case strings.HasPrefix(line, prefixName):
			name = strings.TrimSpace(strings.TrimPrefix(line, prefixName))
			synonym = false
		case strings.HasPrefix(line, prefixSynonym):
			text, _, _ := strings.Cut(strings.TrimPrefix(line, prefixSynonym), "\"")
			name = strings.TrimSpace(text)
			synonym = true
		case strings.HasPrefix(line, prefixDataVersion):
			o.Version = parseVersion(strings.TrimPrefix(line, prefixDataVersion))
		}

		if id != "" && name != "" {
			if _, named := o.idToName[id]; !named || !synonym {
				o.idToName[id] = name
			}
			o.nameToID[name] = id
			name = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan obo file: %w", err)
	}

	return o, nil
}

// parseVersion returns the part of a data-version value after the first "/".
func parseVersion(value string) string {
	value = strings.TrimSpace(value)
	if _, after, ok := strings.Cut(value, "/"); ok {
		return after
	}
	return value
}

// Len returns the number of phenotype IDs.
func (o *Ontology) Len() int {
	return len(o.idToName)
}

// IDToName returns the name stored for a phenotype ID.
func (o *Ontology) IDToName(id string) (string, bool) {
	return lookup.TranslateOne(o.idToName, id)
}

// IDsToNames translates phenotype IDs to names.
func (o *Ontology) IDsToNames(ids []string, includeNA bool) ([]string, lookup.Missing) {
	return lookup.TranslateMany(o.idToName, ids, includeNA)
}

// NameToID returns the phenotype ID stored for a name or synonym.
func (o *Ontology) NameToID(name string) (string, bool) {
	return lookup.TranslateOne(o.nameToID, name)
}

// NamesToIDs translates names or synonyms to phenotype IDs.
func (o *Ontology) NamesToIDs(names []string, includeNA bool) ([]string, lookup.Missing) {
	return lookup.TranslateMany(o.nameToID, names, includeNA)
}
