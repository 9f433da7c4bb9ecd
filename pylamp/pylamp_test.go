package pylamp

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/2x3systems/golamp/golamp"
	"github.com/2x3systems/golamp/liblamp"
	"github.com/2x3systems/golamp/liblamp/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallSchemeExpr = `nBits=8 maxZeros=2 minZeros=1 require="00" marker="1001"`

const buildScript = `
import golamp

if golamp.MAX_NUM_BITS != 24:
    raise ValueError("MAX_NUM_BITS")

enum = golamp.enumerate(%q)
if enum.NumClasses() != 11:
    raise ValueError("NumClasses " + str(enum.NumClasses()))
canonicals = enum.Canonicals()
lamps = enum.Lamps()
if canonicals[0] != 37 or canonicals[-1] != 63:
    raise ValueError("canonicals")
if lamps[0] != 2 or lamps[-1] != 15:
    raise ValueError("lamps")

cls = enum.ClassOf(37)
if cls[0] != 37 or cls[1] != 2 or len(cls[2]) != 8:
    raise ValueError("ClassOf")
if enum.ClassOf(0) is not None:
    raise ValueError("ClassOf(0)")

want = [91, 107, 109, 173, 181, 182, 214, 218]
obs = golamp.observed_ids(2, 4, "1001")
if len(obs) != len(want):
    raise ValueError("observed_ids")
for i in range(len(want)):
    if obs[i] != want[i]:
        raise ValueError("observed_ids " + str(i))

d = golamp.build_dictionary(enum)
if d.Lookup(91) != 2 or d.Lookup(218) != 2:
    raise ValueError("Lookup")
if d.Lookup(1) != golamp.UNMAPPED:
    raise ValueError("Lookup(1)")
if d.MappedCount() != 84:
    raise ValueError("MappedCount")
d.Verify(enum)

golamp.save_artifact(d, %q, "bin", "zstd")
if golamp.load_artifact(%q).MappedCount() != 84:
    raise ValueError("load_artifact")

cat = golamp.open_catalog(%q)
cat.Put(enum)
if cat.NumClasses() != 11:
    raise ValueError("catalog NumClasses")
if cat.Lookup(37)[0] != 2:
    raise ValueError("catalog Lookup")
if cat.Lookup(36) is not None:
    raise ValueError("catalog Lookup(36)")
`

func writeScript(t *testing.T, dir, script string) string {
	t.Helper()
	pathname := filepath.Join(dir, "script.py")
	require.NoError(t, os.WriteFile(pathname, []byte(script), 0644))
	return pathname
}

func TestRunScript(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "small.bin.zst")
	classes := filepath.Join(dir, "classes")

	script := writeScript(t, dir, fmt.Sprintf(buildScript, smallSchemeExpr, artifact, artifact, classes))
	require.NoError(t, RunScript(script))

	art, err := liblamp.LoadArtifact(artifact)
	require.NoError(t, err)
	dict, err := liblamp.DictionaryFromArtifact(art)
	require.NoError(t, err)
	assert.Equal(t, 84, dict.MappedCount())

	// The script left its catalog open; closing the script's context closed it
	cat, err := catalog.OpenCatalog(nil, golamp.CatalogOpts{
		DbPathName: classes,
		ReadOnly:   true,
	})
	require.NoError(t, err)
	defer cat.Close()
	assert.Equal(t, int64(11), cat.NumClasses())
}

func TestRunScriptErrors(t *testing.T) {
	dir := t.TempDir()

	scripts := map[string]string{
		"raise":             "raise ValueError('lamp mismatch')\n",
		"bad scheme":        "import golamp\ngolamp.enumerate('nBits=99')\n",
		"scheme type":       "import golamp\ngolamp.enumerate(16)\n",
		"no lamp":           "import golamp\ngolamp.observed_ids()\n",
		"not an enum":       "import golamp\ngolamp.build_dictionary('x')\n",
		"no pathname":       "import golamp\ngolamp.save_artifact(golamp.build_dictionary(golamp.enumerate()), '')\n",
		"missing file":      "import golamp\ngolamp.load_artifact('" + filepath.Join(dir, "missing.json") + "')\n",
		"read-only no path": "import golamp\ngolamp.open_catalog('', golamp.READ_ONLY)\n",
	}
	for name, script := range scripts {
		t.Run(name, func(t *testing.T) {
			require.Error(t, RunScript(writeScript(t, t.TempDir(), script)))
		})
	}
}
