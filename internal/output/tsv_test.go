package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewTSVWriter(&buf, ColumnGeneSymbol)

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Write("1", []string{"NAT2", "A2MP1", "NA"}))
	require.NoError(t, w.Write("2", nil))
	require.NoError(t, w.Flush())

	assert.Equal(t, "id\tgene_symbol\n1\tNAT2,A2MP1,NA\n2\t\n", buf.String())
	assert.Equal(t, ColumnGeneSymbol, w.Column())
}

func TestFileSet(t *testing.T) {
	dir := t.TempDir()

	fs, err := CreateFileSet(dir, GeneAliasesFile, GeneIDsFile)
	require.NoError(t, err)

	require.NoError(t, fs.Write(ColumnGeneAliases, "1", []string{"ABC1", "BDBS5"}))
	require.NoError(t, fs.Write(ColumnGeneID, "1", []string{"10", "NA"}))
	assert.Error(t, fs.Write(ColumnOmim, "1", []string{"123"}))
	require.NoError(t, fs.Close())

	data, err := os.ReadFile(filepath.Join(dir, "gene_aliases.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "id\tgene_aliases\n1\tABC1,BDBS5\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "gene_ids.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "id\tgene_id\n1\t10,NA\n", string(data))

	assert.NoFileExists(t, filepath.Join(dir, "omims.tsv"))
}

func TestCreateFileSet_BadDir(t *testing.T) {
	_, err := CreateFileSet(filepath.Join(t.TempDir(), "missing"), GeneIDsFile)
	assert.Error(t, err)
}
