package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.Empty(t, s.Path())
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "results.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())
	require.NoError(t, s.Close())
	assert.FileExists(t, path)
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestWriteAndLookupRun(t *testing.T) {
	s := openInMemory(t)

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := Run{
		ID: "run-1", Tool: "lirical", Mode: "alias", OutputDir: "/out",
		Started: started, Finished: started.Add(time.Minute),
		Cases: 3, Succeeded: 2, Failed: 1,
	}
	require.NoError(t, s.WriteRun(run))

	got, err := s.LookupRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "lirical", got.Tool)
	assert.Equal(t, 2, got.Succeeded)
	assert.Equal(t, "/out", got.OutputDir)
	assert.True(t, started.Equal(got.Started))

	// Rewriting the same run replaces it.
	run.Succeeded = 3
	run.Failed = 0
	require.NoError(t, s.WriteRun(run))
	got, err = s.LookupRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Succeeded)

	got, err = s.LookupRun("absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWriteAndLookupCase(t *testing.T) {
	s := openInMemory(t)

	results := []GeneResult{
		{CaseID: "1", Rank: 2, Extracted: "BDBS5", GeneID: "NA", GeneSymbol: "NA"},
		{CaseID: "1", Rank: 1, Extracted: "ABC1", GeneID: "10", GeneSymbol: "NAT2"},
		{CaseID: "2", Rank: 1, Extracted: "ABC1", GeneID: "10", GeneSymbol: "NAT2"},
	}
	require.NoError(t, s.WriteGeneResults("run-1", results))
	require.NoError(t, s.WriteGeneResults("run-1", nil))

	got, err := s.LookupCase("run-1", "1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ABC1", got[0].Extracted)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, "BDBS5", got[1].Extracted)

	got, err = s.LookupCase("run-2", "1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchByGene(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.WriteGeneResults("run-1", []GeneResult{
		{CaseID: "2", Rank: 3, Extracted: "ABC1", GeneID: "10", GeneSymbol: "NAT2"},
		{CaseID: "1", Rank: 1, Extracted: "ABC1", GeneID: "10", GeneSymbol: "NAT2"},
		{CaseID: "1", Rank: 2, Extracted: "A2M", GeneID: "2", GeneSymbol: "A2M"},
	}))

	found, err := s.SearchByGene("run-1", "NAT2")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "1", found[0].CaseID)
	assert.Equal(t, "2", found[1].CaseID)
	assert.Equal(t, 3, found[1].Rank)

	found, err = s.SearchByGene("run-1", "NOTEXIST")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestReferenceFiles(t *testing.T) {
	s := openInMemory(t)

	path := filepath.Join(t.TempDir(), "hp.obo")
	require.NoError(t, os.WriteFile(path, []byte("format-version: 1.2\n"), 0644))

	fp, err := StatFile("hpo", path)
	require.NoError(t, err)
	assert.Equal(t, int64(20), fp.Size)
	assert.False(t, fp.Changed())

	require.NoError(t, s.WriteReferenceFiles("run-1", []FileFingerprint{fp}))

	got, err := s.ReferenceFiles("run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hpo", got[0].Role)
	assert.Equal(t, path, got[0].Path)
	assert.Equal(t, fp.Size, got[0].Size)

	require.NoError(t, os.WriteFile(path, []byte("format-version: 1.4\ndata-version: x\n"), 0644))
	assert.True(t, fp.Changed())

	_, err = StatFile("hpo", filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestDeleteRun(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.WriteRun(Run{ID: "run-1", Started: time.Now(), Finished: time.Now()}))
	require.NoError(t, s.WriteGeneResults("run-1", []GeneResult{{CaseID: "1", Rank: 1}}))
	require.NoError(t, s.DeleteRun("run-1"))

	got, err := s.LookupRun("run-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	cases, err := s.LookupCase("run-1", "1")
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestRunsAndLatestRun(t *testing.T) {
	s := openInMemory(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, r := range []Run{
		{ID: "old", OutputDir: "/out"},
		{ID: "other", OutputDir: "/elsewhere"},
		{ID: "new", OutputDir: "/out"},
	} {
		r.Started = base.Add(time.Duration(i) * time.Hour)
		r.Finished = r.Started.Add(time.Minute)
		require.NoError(t, s.WriteRun(r))
	}

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"new", "other", "old"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})

	latest, err := s.LatestRun("/out")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "new", latest.ID)

	latest, err = s.LatestRun("/absent")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestStaleReferences(t *testing.T) {
	s := openInMemory(t)
	dir := t.TempDir()

	obo := filepath.Join(dir, "hp.obo")
	genes := filepath.Join(dir, "genes.tsv")
	require.NoError(t, os.WriteFile(obo, []byte("format-version: 1.2\n"), 0644))
	require.NoError(t, os.WriteFile(genes, []byte("NCBI Gene ID\tApproved symbol\n"), 0644))

	var fps []FileFingerprint
	for role, path := range map[string]string{"hpo": obo, "genes": genes} {
		fp, err := StatFile(role, path)
		require.NoError(t, err)
		fps = append(fps, fp)
	}
	require.NoError(t, s.WriteReferenceFiles("run-1", fps))

	stale, err := s.StaleReferences("run-1")
	require.NoError(t, err)
	assert.Empty(t, stale, "stored fingerprints must match unchanged files")

	require.NoError(t, os.WriteFile(obo, []byte("format-version: 1.4\ndata-version: x\n"), 0644))
	require.NoError(t, os.Remove(genes))

	stale, err = s.StaleReferences("run-1")
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, "genes", stale[0].Role)
	assert.Equal(t, "hpo", stale[1].Role)
}
