package contract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cassc/smart-contract-database-builder/src/utils/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSources(t *testing.T) {
	dir := t.TempDir()

	err := WriteSources(dir, []model.SourceFile{
		{Name: "contracts/Counter.sol", Content: "contract Counter {}"},
		{Name: "contracts/interfaces/ICounter.sol", Content: "interface ICounter {}"},
	})
	require.Nil(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "contracts", "Counter.sol"))
	require.Nil(t, err)
	assert.Equal(t, "contract Counter {}", string(content))

	_, err = os.Stat(filepath.Join(dir, "contracts", "interfaces", "ICounter.sol"))
	require.Nil(t, err)
}

// Traversal components never escape the output directory
func TestWriteSourcesSanitized(t *testing.T) {
	dir := t.TempDir()

	err := WriteSources(dir, []model.SourceFile{
		{Name: "../../etc/evil.sol", Content: "contract Evil {}"},
	})
	require.Nil(t, err)

	_, err = os.Stat(filepath.Join(dir, "etc", "evil.sol"))
	require.Nil(t, err)
}

func TestWriteSourcesAddsExtension(t *testing.T) {
	dir := t.TempDir()

	err := WriteSources(dir, []model.SourceFile{
		{Name: "Counter", Content: "contract Counter {}"},
	})
	require.Nil(t, err)

	_, err = os.Stat(filepath.Join(dir, "Counter.sol"))
	require.Nil(t, err)
}
