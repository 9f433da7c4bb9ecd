package pylamp

import (
	"time"

	"github.com/2x3systems/golamp/golamp"
	"github.com/2x3systems/golamp/liblamp"
	"github.com/2x3systems/golamp/liblamp/catalog"
	"github.com/go-python/gpython/py"
	"github.com/plan-systems/klog"

	_ "github.com/go-python/gpython/stdlib"
)

var (
	LIB_VERSION = "v1.2024.1"
)

var (
	pyEnumerationType = py.NewType("Enumeration", "canonical classes and lamp IDs of a scheme")
	pyDictionaryType  = py.NewType("Dictionary", "observed ID to lamp ID table")
	pyCatalogType     = py.NewType("Catalog", "golamp.Catalog")
	pyWorkspaceType   = py.NewType("Workspace", "collects active session resources and catalogs")
)

const (
	READ_ONLY = 0x01

	kWorkspaceAttr = "_Workspace"
)

// RunScript executes the Python script at pathname.  The script reaches golamp via `import golamp`.
func RunScript(pathname string) error {
	ctx := py.NewContext(py.DefaultContextOpts())

	startTime := time.Now()
	klog.V(1).Infof("executing '%s'", pathname)

	_, err := py.RunFile(ctx, pathname, py.CompileOpts{}, nil)

	ctx.Close()
	<-ctx.Done()

	if err == nil {
		klog.V(1).Infof("execution complete: %v", time.Since(startTime))
	}
	return err
}

type pyEnumeration struct {
	*golamp.Enumeration
}

func (enum pyEnumeration) Type() *py.Type {
	return pyEnumerationType
}

type pyDictionary struct {
	*liblamp.Dictionary
}

func (dict pyDictionary) Type() *py.Type {
	return pyDictionaryType
}

type pyCatalog struct {
	golamp.Catalog
}

func (cat pyCatalog) Type() *py.Type {
	return pyCatalogType
}

// Workspace owns the catalogs a script opens; they close with the script's context.
type Workspace struct {
	CatalogCtx golamp.CatalogContext
}

func (ws *Workspace) Type() *py.Type {
	return pyWorkspaceType
}

func (ws *Workspace) Close() {
	ws.CatalogCtx.Close()
	<-ws.CatalogCtx.Done()
}

func getWorkspace(module py.Object) *Workspace {
	wsObj, _ := py.GetAttrString(module, kWorkspaceAttr)
	if wsObj == nil {
		ws := &Workspace{
			CatalogCtx: golamp.NewCatalogContext(),
		}
		wsObj = ws
		py.SetAttrString(module, kWorkspaceAttr, wsObj)
	}
	return wsObj.(*Workspace)
}

func valueError(err error) error {
	return py.ExceptionNewf(py.ValueError, "%v", err)
}

func intArg(args py.Tuple, i int, def int64) (int64, error) {
	if i >= len(args) {
		return def, nil
	}
	val, err := py.GetInt(args[i])
	if err != nil {
		return 0, err
	}
	return int64(val), nil
}

func strArg(args py.Tuple, i int, def string) (string, error) {
	if i >= len(args) {
		return def, nil
	}
	str, ok := args[i].(py.String)
	if !ok {
		return "", py.ExceptionNewf(py.TypeError, "arg %d: expected str (got %v)", i+1, args[i].Type().Name)
	}
	return string(str), nil
}

func enumArg(args py.Tuple, i int) (*golamp.Enumeration, error) {
	if i < len(args) {
		if enum, ok := args[i].(pyEnumeration); ok {
			return enum.Enumeration, nil
		}
	}
	return nil, py.ExceptionNewf(py.TypeError, "arg %d: expected Enumeration", i+1)
}

func idTuple[T golamp.ID | golamp.LampID](ids []T) py.Tuple {
	tuple := make(py.Tuple, len(ids))
	for i, id := range ids {
		tuple[i] = py.Int(id)
	}
	return tuple
}

// Arg 1 (str, optional): scheme expression, e.g. 'nBits=8 marker="1001"'
func py_Enumerate(module py.Object, args py.Tuple) (py.Object, error) {
	expr, err := strArg(args, 0, "")
	if err != nil {
		return nil, err
	}
	scheme, err := liblamp.ParseScheme(expr)
	if err != nil {
		return nil, valueError(err)
	}
	enum, err := liblamp.Enumerate(scheme)
	if err != nil {
		return nil, valueError(err)
	}
	return pyEnumeration{enum}, nil
}

// Arg 1 (int): lamp ID
// Arg 2 (int, optional): lamp ID width
// Arg 3 (str, optional): start marker
func py_ObservedIDs(module py.Object, args py.Tuple) (py.Object, error) {
	defaults := golamp.DefaultScheme()

	lamp, err := intArg(args, 0, -1)
	if err != nil {
		return nil, err
	}
	if lamp < 0 {
		return nil, py.ExceptionNewf(py.ValueError, "lamp ID required")
	}
	lampBits, err := intArg(args, 1, int64(defaults.LampBits))
	if err != nil {
		return nil, err
	}
	markerStr, err := strArg(args, 2, defaults.StartMarker)
	if err != nil {
		return nil, err
	}
	marker, err := golamp.ParseBits(markerStr)
	if err != nil {
		return nil, valueError(err)
	}

	obsIDs, err := liblamp.ObservedIDs(golamp.LampID(lamp), int(lampBits), marker)
	if err != nil {
		return nil, valueError(err)
	}
	return idTuple(obsIDs), nil
}

// Arg 1 (Enumeration)
func py_BuildDictionary(module py.Object, args py.Tuple) (py.Object, error) {
	enum, err := enumArg(args, 0)
	if err != nil {
		return nil, err
	}
	dict, err := liblamp.BuildDictionary(enum)
	if err == nil {
		err = dict.Verify(enum)
	}
	if err != nil {
		return nil, valueError(err)
	}
	return pyDictionary{dict}, nil
}

// Arg 1 (Dictionary)
// Arg 2 (str): pathname
// Arg 3 (str, optional): format, "json" or "bin"
// Arg 4 (str, optional): compression, "none", "zstd" or "lz4"
func py_SaveArtifact(module py.Object, args py.Tuple) (py.Object, error) {
	var dict pyDictionary
	if len(args) > 0 {
		dict, _ = args[0].(pyDictionary)
	}
	if dict.Dictionary == nil {
		return nil, py.ExceptionNewf(py.TypeError, "arg 1: expected Dictionary")
	}
	pathname, err := strArg(args, 1, "")
	if err != nil {
		return nil, err
	}
	format, err := strArg(args, 2, string(golamp.FormatJSON))
	if err != nil {
		return nil, err
	}
	comp, err := strArg(args, 3, string(golamp.CompressNone))
	if err != nil {
		return nil, err
	}
	if pathname == "" {
		return nil, py.ExceptionNewf(py.ValueError, "pathname required")
	}

	err = liblamp.SaveArtifact(pathname, dict.Artifact(), golamp.Format(format), golamp.Compression(comp))
	if err != nil {
		return nil, py.ExceptionNewf(py.OSError, "%v", err)
	}
	return py.None, nil
}

// Arg 1 (str): pathname
func py_LoadArtifact(module py.Object, args py.Tuple) (py.Object, error) {
	pathname, err := strArg(args, 0, "")
	if err != nil {
		return nil, err
	}
	art, err := liblamp.LoadArtifact(pathname)
	if err != nil {
		return nil, py.ExceptionNewf(py.OSError, "%v", err)
	}
	dict, err := liblamp.DictionaryFromArtifact(art)
	if err != nil {
		return nil, valueError(err)
	}
	return pyDictionary{dict}, nil
}

// Arg 1 (str): catalog pathname, "" for in-memory
// Arg 2 (int, optional): flags (READ_ONLY)
func py_OpenCatalog(module py.Object, args py.Tuple) (py.Object, error) {
	ws := getWorkspace(module)

	pathname, err := strArg(args, 0, "")
	if err != nil {
		return nil, err
	}
	flags, err := intArg(args, 1, 0)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.OpenCatalog(ws.CatalogCtx, golamp.CatalogOpts{
		DbPathName: pathname,
		ReadOnly:   (flags & READ_ONLY) != 0,
	})
	if err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return pyCatalog{cat}, nil
}

func py_Enumeration_NumClasses(self py.Object, args py.Tuple) (py.Object, error) {
	enum := self.(pyEnumeration)
	return py.Int(enum.NumClasses()), nil
}

func py_Enumeration_Canonicals(self py.Object, args py.Tuple) (py.Object, error) {
	enum := self.(pyEnumeration)
	return idTuple(enum.Canonicals), nil
}

func py_Enumeration_Lamps(self py.Object, args py.Tuple) (py.Object, error) {
	enum := self.(pyEnumeration)
	return idTuple(enum.Lamps), nil
}

func py_Enumeration_Scheme(self py.Object, args py.Tuple) (py.Object, error) {
	enum := self.(pyEnumeration)
	return py.String(enum.Scheme.String()), nil
}

// Returns (canonical, lamp, orbit) for the class containing the given ID, or None.
func py_Enumeration_ClassOf(self py.Object, args py.Tuple) (py.Object, error) {
	enum := self.(pyEnumeration)
	id, err := intArg(args, 0, -1)
	if err != nil {
		return nil, err
	}
	if id < 0 {
		return py.None, nil
	}
	cls, ok := enum.ClassOf(golamp.ID(id))
	if !ok {
		return py.None, nil
	}
	return py.Tuple{py.Int(cls.Canonical), py.Int(cls.Lamp), idTuple(cls.Orbit)}, nil
}

// Returns the lamp ID for an observed ID, or UNMAPPED.
func py_Dictionary_Lookup(self py.Object, args py.Tuple) (py.Object, error) {
	dict := self.(pyDictionary)
	obsID, err := intArg(args, 0, -1)
	if err != nil {
		return nil, err
	}
	if obsID >= 0 {
		if lamp, ok := dict.Lookup(golamp.ID(obsID)); ok {
			return py.Int(lamp), nil
		}
	}
	return py.Int(golamp.Unmapped), nil
}

func py_Dictionary_MappedCount(self py.Object, args py.Tuple) (py.Object, error) {
	dict := self.(pyDictionary)
	return py.Int(dict.MappedCount()), nil
}

func py_Dictionary_Verify(self py.Object, args py.Tuple) (py.Object, error) {
	dict := self.(pyDictionary)
	enum, err := enumArg(args, 0)
	if err != nil {
		return nil, err
	}
	if err = dict.Verify(enum); err != nil {
		return nil, valueError(err)
	}
	return py.None, nil
}

func py_Catalog_Put(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	enum, err := enumArg(args, 0)
	if err != nil {
		return nil, err
	}
	if err = cat.PutEnumeration(enum); err != nil {
		if err == golamp.ErrCatalogReadOnly {
			return nil, py.ExceptionNewf(py.PermissionError, "%v", err)
		}
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return py.None, nil
}

func py_Catalog_NumClasses(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	return py.Int(cat.NumClasses()), nil
}

// Returns (lamp, orbit) of the class with the given canonical ID, or None.
func py_Catalog_Lookup(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	canonical, err := intArg(args, 0, -1)
	if err != nil {
		return nil, err
	}
	if canonical < 0 {
		return py.None, nil
	}
	cls, found, err := cat.LookupClass(golamp.ID(canonical))
	if err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	if !found {
		return py.None, nil
	}
	return py.Tuple{py.Int(cls.Lamp), idTuple(cls.Orbit)}, nil
}

func py_Catalog_Close(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	if err := cat.Close(); err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return py.None, nil
}

func init() {

	/////////////////////////////////
	// Enumeration
	{
		pyEnumerationType.Dict["NumClasses"] = py.MustNewMethod("NumClasses", py_Enumeration_NumClasses, 0, "number of valid classes")
		pyEnumerationType.Dict["Canonicals"] = py.MustNewMethod("Canonicals", py_Enumeration_Canonicals, 0, "canonical IDs, ascending")
		pyEnumerationType.Dict["Lamps"] = py.MustNewMethod("Lamps", py_Enumeration_Lamps, 0, "lamp IDs, in canonical order")
		pyEnumerationType.Dict["Scheme"] = py.MustNewMethod("Scheme", py_Enumeration_Scheme, 0, "scheme expression")
		pyEnumerationType.Dict["ClassOf"] = py.MustNewMethod("ClassOf", py_Enumeration_ClassOf, 0, "")
	}

	/////////////////////////////////
	// Dictionary
	{
		pyDictionaryType.Dict["Lookup"] = py.MustNewMethod("Lookup", py_Dictionary_Lookup, 0, "")
		pyDictionaryType.Dict["MappedCount"] = py.MustNewMethod("MappedCount", py_Dictionary_MappedCount, 0, "")
		pyDictionaryType.Dict["Verify"] = py.MustNewMethod("Verify", py_Dictionary_Verify, 0, "")
	}

	/////////////////////////////////
	// Catalog
	{
		pyCatalogType.Dict["Put"] = py.MustNewMethod("Put", py_Catalog_Put, 0, "replaces the stored classes with those of an Enumeration")
		pyCatalogType.Dict["NumClasses"] = py.MustNewMethod("NumClasses", py_Catalog_NumClasses, 0, "")
		pyCatalogType.Dict["Lookup"] = py.MustNewMethod("Lookup", py_Catalog_Lookup, 0, "")
		pyCatalogType.Dict["Close"] = py.MustNewMethod("Close", py_Catalog_Close, 0, "")
	}

	{
		methods := []*py.Method{
			py.MustNewMethod("enumerate", py_Enumerate, 0, "enumerate(scheme_expr='') -> Enumeration"),
			py.MustNewMethod("observed_ids", py_ObservedIDs, 0, "observed_ids(lamp, lampBits=12, marker='1001') -> tuple"),
			py.MustNewMethod("build_dictionary", py_BuildDictionary, 0, "build_dictionary(enum) -> Dictionary"),
			py.MustNewMethod("save_artifact", py_SaveArtifact, 0, "save_artifact(dict, pathname, format='json', compression='none')"),
			py.MustNewMethod("load_artifact", py_LoadArtifact, 0, "load_artifact(pathname) -> Dictionary"),
			py.MustNewMethod("open_catalog", py_OpenCatalog, 0, "open_catalog(pathname, flags=0) -> Catalog"),
		}

		globals := py.StringDict{
			"LIB_VERSION":    py.String(LIB_VERSION),
			"MAX_NUM_BITS":   py.Int(golamp.MaxNumBits),
			"UNMAPPED":       py.Int(golamp.Unmapped),
			"READ_ONLY":      py.Int(READ_ONLY),
			"DEFAULT_SCHEME": py.String(golamp.DefaultScheme().String()),
		}

		py.RegisterModule(&py.ModuleImpl{
			Info: py.ModuleInfo{
				Name: "golamp",
				Doc:  "lamp ID dictionary generator",
			},
			Methods: methods,
			Globals: globals,
			OnContextClosed: func(m *py.Module) {
				wsObj, _ := py.GetAttrString(m, kWorkspaceAttr)
				if wsObj != nil {
					wsObj.(*Workspace).Close()
				}
			},
		})
	}
}
