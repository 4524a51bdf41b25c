package lirical

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testResult = []string{
	"! LIRICAL line 1",
	"! LIRICAL line 2",
	"rank\tdiseaseName\tdiseaseCurie\tpretestprob\tposttestprob\tcompositeLR\tentrezGeneId\tvariants",
	"10\tMYDISEASE 12; ABC1\tOMIM:123456\t1/7987\t2,00%\t111,897\tn/a\tn/a",
	"200\ta Syndrome\tOMIM:848484\t1/7987\t0,00%\t0\tn/a\tn/a",
	"450\tJust something more; BDBS5\tOMIM:112358\t1/7987\t0,00%\t0\tn/a\tn/a",
}

func TestExtractLines_Genes(t *testing.T) {
	ex, err := ExtractLines(testResult, ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC1", "BDBS5"}, ex.Genes)
	assert.Nil(t, ex.Omims)
}

func TestExtractLines_Omims(t *testing.T) {
	ex, err := ExtractLines(testResult, ExtractOptions{Omim: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC1", "BDBS5"}, ex.Genes)
	assert.Equal(t, []string{"123456", "848484", "112358"}, ex.Omims)
}

func TestExtractLines_DuplicatesKept(t *testing.T) {
	lines := []string{
		"rank\tdiseaseName\tdiseaseCurie",
		"1\tFIRST, TYPE 1; GENE1\tOMIM:1",
		"2\tFIRST, TYPE 2; GENE1\tOMIM:2",
	}
	ex, err := ExtractLines(lines, ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"GENE1", "GENE1"}, ex.Genes)
}

func TestExtractLines_HeaderOnlyAfterComments(t *testing.T) {
	// The first non-comment line is the header even if it looks like data.
	lines := []string{
		"! comment",
		"1\tHEADER LIKE; GENE0\tOMIM:0",
		"2\tREAL; GENE2\tOMIM:2",
	}
	ex, err := ExtractLines(lines, ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"GENE2"}, ex.Genes)
}

func TestExtractLines_BlankLines(t *testing.T) {
	// A blank first non-comment line takes the header slot; later blanks are ignored.
	lines := []string{
		"! comment",
		"",
		"1\tFIRST; GENE1\tOMIM:1",
		"",
		"2\tSECOND; GENE2\tOMIM:2",
	}
	ex, err := ExtractLines(lines, ExtractOptions{Omim: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"GENE1", "GENE2"}, ex.Genes)
	assert.Equal(t, []string{"1", "2"}, ex.Omims)
}

func TestExtractLines_NoMatchChars(t *testing.T) {
	lines := []string{
		"rank\tdiseaseName\tdiseaseCurie",
		"1\tDISEASE (TYPE 1); GENE1\tOMIM:1",
		"2\tDISEASE 2; HLA-DRB1\tOMIM:2",
		"3\tshort",
	}
	ex, err := ExtractLines(lines, ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"HLA-DRB1"}, ex.Genes)
}

func TestExtractLines_ShortRowWithOmim(t *testing.T) {
	lines := []string{
		"rank\tdiseaseName\tdiseaseCurie",
		"1\tDISEASE; GENE1\tOMIM:1",
		"2\tDISEASE; GENE2",
	}
	_, err := ExtractLines(lines, ExtractOptions{Omim: true})

	var ferr *FormatError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, 3, ferr.Line)

	// Without OMIM extraction the short row is harmless.
	ex, err := ExtractLines(lines, ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"GENE1", "GENE2"}, ex.Genes)
}

func TestExtractLines_MalformedCurie(t *testing.T) {
	lines := []string{
		"rank\tdiseaseName\tdiseaseCurie",
		"1\tDISEASE; GENE1\t123456",
	}
	_, err := ExtractLines(lines, ExtractOptions{Omim: true})
	var ferr *FormatError
	assert.True(t, errors.As(err, &ferr))
}

func TestExtractLines_Empty(t *testing.T) {
	ex, err := ExtractLines(nil, ExtractOptions{Omim: true})
	require.NoError(t, err)
	assert.Empty(t, ex.Genes)
	assert.Empty(t, ex.Omims)
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1.tsv")
	data := ""
	for _, l := range testResult {
		data += l + "\r\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	ex, err := ExtractFile(path, ExtractOptions{Omim: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC1", "BDBS5"}, ex.Genes)
	assert.Equal(t, []string{"123456", "848484", "112358"}, ex.Omims)

	_, err = ExtractFile(filepath.Join(t.TempDir(), "absent.tsv"), ExtractOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
