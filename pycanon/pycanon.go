package pycanon

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fine-structures/canon/canon"
	"github.com/fine-structures/canon/libcanon"
	"github.com/fine-structures/canon/libcanon/catalog"
	"github.com/go-python/gpython/py"
)

var (
	LIB_VERSION = "v1.2023.1"
)

var (
	pyMoleculeType  = py.NewType("Molecule", "a molecule graph: atoms joined by bonds")
	pyMolStreamType = py.NewType("MolStream", "canon.MolStream")
	pyCatalogType   = py.NewType("Catalog", "canon.Catalog")
	pyWorkspaceType = py.NewType("Workspace", "collects active session resources and catalogs")
)

const (
	IGNORE_ELEMENTS   = 0x01
	IGNORE_BOND_ORDER = 0x02

	READ_ONLY = 0x01

	kWorkspaceAttr = "_Workspace"
)

type pyMolecule struct {
	*libcanon.Molecule
}

func (X pyMolecule) Type() *py.Type {
	return pyMoleculeType
}

func (X pyMolecule) M__str__() (py.Object, error) {
	return py.String(X.String()), nil
}

func (X pyMolecule) M__repr__() (py.Object, error) {
	if err := X.Canonize(); err != nil {
		return nil, py.ExceptionNewf(py.ValueError, "%v", err)
	}
	writer := strings.Builder{}
	X.WriteAsString(&writer, canon.DefaultPrintOpts)
	return py.String(writer.String()), nil
}

func getMolecule(obj py.Object) (pyMolecule, error) {
	X, ok := obj.(pyMolecule)
	if !ok {
		return X, py.ExceptionNewf(py.TypeError, "expected Molecule object (got %v)", obj.Type().Name)
	}
	return X, nil
}

func atomOptsFromFlags(flags int) libcanon.AtomOpts {
	return libcanon.AtomOpts{
		IgnoreElements:  flags&IGNORE_ELEMENTS != 0,
		IgnoreBondOrder: flags&IGNORE_BOND_ORDER != 0,
	}
}

// Arg 1 (str): molecule expression, e.g. "C C O; 0-1, 1=2"
// Arg 2 (int, optional): IGNORE_ELEMENTS | IGNORE_BOND_ORDER
func py_NewMolecule(module py.Object, args py.Tuple) (py.Object, error) {
	var exprObj, flagsObj py.Object = py.String(""), py.Int(0)
	err := py.ParseTuple(args, "|Ui", &exprObj, &flagsObj)
	if err != nil {
		return nil, err
	}

	X, err := libcanon.ParseMolecule(string(exprObj.(py.String)))
	if err != nil {
		return nil, py.ExceptionNewf(py.ValueError, "%v", err)
	}
	X.Opts = atomOptsFromFlags(int(flagsObj.(py.Int)))
	return pyMolecule{X}, nil
}

// canonized canonizes self if needed, raising ValueError on failure.
func canonized(self py.Object) (pyMolecule, error) {
	X, err := getMolecule(self)
	if err != nil {
		return X, err
	}
	if err = X.Canonize(); err != nil {
		return X, py.ExceptionNewf(py.ValueError, "%v", err)
	}
	return X, nil
}

func py_Molecule_NumAtoms(self py.Object, args py.Tuple) (py.Object, error) {
	X, err := getMolecule(self)
	if err != nil {
		return nil, err
	}
	return py.Int(X.AtomCount()), nil
}

func py_Molecule_NumBonds(self py.Object, args py.Tuple) (py.Object, error) {
	X, err := getMolecule(self)
	if err != nil {
		return nil, err
	}
	return py.Int(X.BondCount()), nil
}

func py_Molecule_AutPartition(self py.Object, args py.Tuple) (py.Object, error) {
	X, err := canonized(self)
	if err != nil {
		return nil, err
	}
	return py.String(X.AutPartition().String()), nil
}

// Arg 1 (int, optional): IGNORE_BOND_ORDER
func py_Molecule_BondAutPartition(self py.Object, args py.Tuple) (py.Object, error) {
	X, err := getMolecule(self)
	if err != nil {
		return nil, err
	}
	var flagsObj py.Object = py.Int(0)
	if err = py.ParseTuple(args, "|i", &flagsObj); err != nil {
		return nil, err
	}

	refiner := libcanon.NewBondRefiner(libcanon.BondOpts{
		IgnoreBondOrder: int(flagsObj.(py.Int))&IGNORE_BOND_ORDER != 0,
	})
	P, err := refiner.AutomorphismPartition(X.Molecule)
	if err != nil {
		return nil, py.ExceptionNewf(py.ValueError, "%v", err)
	}
	return py.String(P.String()), nil
}

func py_Molecule_GroupOrder(self py.Object, args py.Tuple) (py.Object, error) {
	X, err := canonized(self)
	if err != nil {
		return nil, err
	}
	return py.Int(X.GroupOrder()), nil
}

func py_Molecule_IsCanonical(self py.Object, args py.Tuple) (py.Object, error) {
	X, err := canonized(self)
	if err != nil {
		return nil, err
	}
	return py.NewBool(X.IsCanonical()), nil
}

func py_Molecule_Key(self py.Object, args py.Tuple) (py.Object, error) {
	X, err := canonized(self)
	if err != nil {
		return nil, err
	}
	return py.String(X.CanonicalKey()), nil
}

// Canonize returns a new Molecule: this molecule with its atoms in canonical order.
func py_Molecule_Canonize(self py.Object, args py.Tuple) (py.Object, error) {
	X, err := getMolecule(self)
	if err != nil {
		return nil, err
	}
	Xc, _, err := libcanon.Canonize(X.Molecule, X.Opts)
	if err != nil {
		return nil, py.ExceptionNewf(py.ValueError, "%v", err)
	}
	return pyMolecule{Xc}, nil
}

func py_Molecule_Stream(self py.Object, args py.Tuple) (py.Object, error) {
	X, err := getMolecule(self)
	if err != nil {
		return nil, err
	}
	return wrapMolStream(canon.StreamMolecules(X.Molecule)), nil
}

// Args: molecule expressions (str) or Molecule objects
func py_StreamMolecules(module py.Object, args py.Tuple) (py.Object, error) {
	mols := make([]canon.MolState, 0, len(args))
	for i, arg := range args {
		if expr, isStr := arg.(py.String); isStr {
			X, err := libcanon.ParseMolecule(string(expr))
			if err != nil {
				return nil, py.ExceptionNewf(py.ValueError, "molecule %d: %v", i, err)
			}
			mols = append(mols, X)
		} else {
			X, err := getMolecule(arg)
			if err != nil {
				return nil, err
			}
			mols = append(mols, X.Molecule)
		}
	}
	return wrapMolStream(canon.StreamMolecules(mols...)), nil
}

type Workspace struct {
	CatalogCtx canon.CatalogContext
}

func (ws *Workspace) Close() {
	ws.CatalogCtx.Close()
	<-ws.CatalogCtx.Done()
}

func (ws *Workspace) Type() *py.Type {
	return pyWorkspaceType
}

func py_GetWorkspace(module py.Object, args py.Tuple) (py.Object, error) {
	wsObj, _ := py.GetAttrString(module, kWorkspaceAttr)
	if wsObj == nil {
		ws := &Workspace{
			CatalogCtx: canon.NewCatalogContext(),
		}
		wsObj = ws
		py.SetAttrString(module, kWorkspaceAttr, wsObj)
	}
	return wsObj, nil
}

func py_Workspace_CatalogExists(self py.Object, args py.Tuple) (py.Object, error) {
	var pathObj py.Object
	if err := py.ParseTuple(args, "U", &pathObj); err != nil {
		return nil, err
	}
	_, err := os.Stat(string(pathObj.(py.String)))
	if os.IsNotExist(err) {
		return py.False, nil
	}
	return py.True, nil
}

// Arg 1 (str): catalog pathname ("" for an in-memory catalog)
// Arg 2 (int, optional): READ_ONLY
func py_Workspace_OpenCatalog(self py.Object, args py.Tuple) (py.Object, error) {
	ws := self.(*Workspace)

	var pathObj, flagsObj py.Object = py.String(""), py.Int(0)
	if err := py.ParseTuple(args, "|Ui", &pathObj, &flagsObj); err != nil {
		return nil, err
	}

	opts := canon.CatalogOpts{
		DbPathName: string(pathObj.(py.String)),
		ReadOnly:   int(flagsObj.(py.Int))&READ_ONLY != 0,
	}

	cat, err := catalog.OpenCatalog(ws.CatalogCtx, opts)
	if err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return pyCatalog{cat}, nil
}

type pyCatalog struct {
	canon.Catalog
}

func (cat pyCatalog) Type() *py.Type {
	return pyCatalogType
}

func py_Catalog_Close(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	if err := cat.Close(); err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	return py.None, nil
}

// Args (int, optional): min atom count, max atom count
func py_Catalog_Select(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	sel, err := getMolSelector(args)
	if err != nil {
		return nil, err
	}
	return wrapMolStream(canon.SelectFromCatalog(cat, sel)), nil
}

func py_Catalog_NumMolecules(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	var NaObj py.Object
	if err := py.ParseTuple(args, "i", &NaObj); err != nil {
		return nil, err
	}
	return py.Int(cat.NumMolecules(int(NaObj.(py.Int)))), nil
}

func getMolSelector(args py.Tuple) (canon.MolSelector, error) {
	sel := canon.DefaultMolSelector
	var minObj, maxObj py.Object = py.Int(sel.Min.NumAtoms), py.Int(sel.Max.NumAtoms)
	if err := py.ParseTuple(args, "|ii", &minObj, &maxObj); err != nil {
		return sel, err
	}
	sel.Min.NumAtoms = int(minObj.(py.Int))
	sel.Max.NumAtoms = int(maxObj.(py.Int))
	if sel.Min.NumAtoms < 0 || sel.Max.NumAtoms > canon.MaxAtoms || sel.Min.NumAtoms > sel.Max.NumAtoms {
		return sel, py.ExceptionNewf(py.ValueError, "bad atom count range [%d, %d]", sel.Min.NumAtoms, sel.Max.NumAtoms)
	}
	return sel, nil
}

type molStream struct {
	*canon.MolStream
}

func (stream molStream) Type() *py.Type {
	return pyMolStreamType
}

func wrapMolStream(stream *canon.MolStream) py.Object {
	return molStream{stream}
}

func py_MolStream_Go(self py.Object, args py.Tuple) (py.Object, error) {
	stream := self.(molStream)
	count := stream.PullAll()
	return py.Int(count), nil
}

type echoToWriter struct {
	stdout *os.File
	to     io.WriteCloser
}

func (echo *echoToWriter) Write(buf []byte) (int, error) {
	if echo.to == nil {
		return echo.stdout.Write(buf)
	}
	return echo.to.Write(buf)
}

func (echo *echoToWriter) Close() error {
	if echo.to != nil {
		return echo.to.Close()
	}
	return nil
}

var gOutCount = int32(0)

func kwargBool(kwargs py.StringDict, key string, dst *bool) error {
	if obj, exists := kwargs[key]; exists {
		truth, err := py.MakeBool(obj)
		if err != nil {
			return err
		}
		*dst = truth == py.True
	}
	return nil
}

// Arg 1 (str, optional): label
// kwargs: label, expr, symmetry, labeling, cert (bool), file (str)
func py_MolStream_Print(self py.Object, args py.Tuple, kwargs py.StringDict) (py.Object, error) {
	stream := self.(molStream)
	opts := canon.DefaultPrintOpts

	var labelObj py.Object = py.String("")
	if err := py.ParseTuple(args, "|U", &labelObj); err != nil {
		return nil, err
	}
	opts.Label = string(labelObj.(py.String))
	if label, exists := kwargs["label"]; exists && opts.Label == "" {
		opts.Label = fmt.Sprint(label)
	}

	outCount := atomic.AddInt32(&gOutCount, 1)
	if opts.Label == "" {
		opts.Label = fmt.Sprintf("out[%d]", outCount)
	}

	for key, dst := range map[string]*bool{
		"expr":     &opts.Expr,
		"symmetry": &opts.Symmetry,
		"labeling": &opts.Labeling,
		"cert":     &opts.Certificate,
	} {
		if err := kwargBool(kwargs, key, dst); err != nil {
			return nil, err
		}
	}

	writer := &echoToWriter{
		stdout: os.Stdout,
	}
	if fileObj, exists := kwargs["file"]; exists {
		pathname := fmt.Sprint(fileObj)
		os.MkdirAll(filepath.Dir(pathname), 0700)

		file, err := os.OpenFile(pathname, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0600)
		if err != nil {
			return nil, py.ExceptionNewf(py.FileNotFoundError, "%v", err)
		}
		writer.to = file
	}

	next := stream.Print(writer, opts)
	return wrapMolStream(next), nil
}

func py_MolStream_AddTo(self py.Object, args py.Tuple) (py.Object, error) {
	stream := self.(molStream)
	if len(args) != 1 {
		return nil, py.ExceptionNewf(py.TypeError, "AddTo() takes a Catalog")
	}
	cat, ok := args[0].(pyCatalog)
	if !ok {
		return nil, py.ExceptionNewf(py.TypeError, "expected Catalog object (got %v)", args[0].Type().Name)
	}
	if cat.IsReadOnly() {
		return nil, py.ExceptionNewf(py.PermissionError, "%v", canon.ErrCatalogReadOnly)
	}

	next := stream.AddTo(cat, canon.AddOpts{})
	return wrapMolStream(next), nil
}

func py_MolStream_DropDupes(self py.Object, args py.Tuple) (py.Object, error) {
	stream := self.(molStream)

	// A memory resident set that is released when the stream closes
	set := libcanon.NewDropDupes(libcanon.DropDupeOpts{})
	next := stream.AddTo(set, canon.AddOpts{
		AutoClose: set,
	})
	return wrapMolStream(next), nil
}

// Arg 1 (int, optional): number of workers (0 for one per CPU)
func py_MolStream_Canonize(self py.Object, args py.Tuple) (py.Object, error) {
	stream := self.(molStream)
	var workersObj py.Object = py.Int(0)
	if err := py.ParseTuple(args, "|i", &workersObj); err != nil {
		return nil, err
	}
	next := stream.Canonize(int(workersObj.(py.Int)))
	return wrapMolStream(next), nil
}

// Args (int, optional): min atom count, max atom count
func py_MolStream_Select(self py.Object, args py.Tuple) (py.Object, error) {
	stream := self.(molStream)
	sel, err := getMolSelector(args)
	if err != nil {
		return nil, err
	}
	return wrapMolStream(stream.SelectFromStream(sel)), nil
}

func init() {

	/////////////////////////////////
	// Molecule
	{
		pyMoleculeType.Dict["NumAtoms"] = py.MustNewMethod("NumAtoms", py_Molecule_NumAtoms, 0, "")
		pyMoleculeType.Dict["NumBonds"] = py.MustNewMethod("NumBonds", py_Molecule_NumBonds, 0, "")
		pyMoleculeType.Dict["AutPartition"] = py.MustNewMethod("AutPartition", py_Molecule_AutPartition, 0, "classes of symmetry-equivalent atoms, e.g. '0,4|1,3|2'")
		pyMoleculeType.Dict["BondAutPartition"] = py.MustNewMethod("BondAutPartition", py_Molecule_BondAutPartition, 0, "classes of symmetry-equivalent bonds")
		pyMoleculeType.Dict["GroupOrder"] = py.MustNewMethod("GroupOrder", py_Molecule_GroupOrder, 0, "order of the automorphism group")
		pyMoleculeType.Dict["IsCanonical"] = py.MustNewMethod("IsCanonical", py_Molecule_IsCanonical, 0, "True if the atom order is already canonical")
		pyMoleculeType.Dict["Key"] = py.MustNewMethod("Key", py_Molecule_Key, 0, "canonical key, equal for isomorphic molecules")
		pyMoleculeType.Dict["Canonize"] = py.MustNewMethod("Canonize", py_Molecule_Canonize, 0, "returns this molecule with its atoms in canonical order")
		pyMoleculeType.Dict["Stream"] = py.MustNewMethod("Stream", py_Molecule_Stream, 0, "")
	}

	/////////////////////////////////
	// Catalog
	{
		pyCatalogType.Dict["Select"] = py.MustNewMethod("Select", py_Catalog_Select, 0, "")
		pyCatalogType.Dict["NumMolecules"] = py.MustNewMethod("NumMolecules", py_Catalog_NumMolecules, 0, "")
		pyCatalogType.Dict["Close"] = py.MustNewMethod("Close", py_Catalog_Close, 0, "")
	}

	/////////////////////////////////
	// Workspace
	{
		pyWorkspaceType.Dict["OpenCatalog"] = py.MustNewMethod("OpenCatalog", py_Workspace_OpenCatalog, 0, "")
		pyWorkspaceType.Dict["CatalogExists"] = py.MustNewMethod("CatalogExists", py_Workspace_CatalogExists, 0, "")
	}

	/////////////////////////////////
	// MolStream
	{
		pyMolStreamType.Dict["Go"] = py.MustNewMethod("Go", py_MolStream_Go, 0, "counts the number of molecules output from the stream")
		pyMolStreamType.Dict["Print"] = py.MustNewMethod("Print", py_MolStream_Print, 0, "prints each molecule from the stream")
		pyMolStreamType.Dict["AddTo"] = py.MustNewMethod("AddTo", py_MolStream_AddTo, 0, "")
		pyMolStreamType.Dict["Canonize"] = py.MustNewMethod("Canonize", py_MolStream_Canonize, 0, "")
		pyMolStreamType.Dict["DropDupes"] = py.MustNewMethod("DropDupes", py_MolStream_DropDupes, 0, "")
		pyMolStreamType.Dict["Select"] = py.MustNewMethod("Select", py_MolStream_Select, 0, "")
	}

	{
		methods := []*py.Method{
			py.MustNewMethod("NewMolecule", py_NewMolecule, 0, ""),
			py.MustNewMethod("StreamMolecules", py_StreamMolecules, 0, ""),
			py.MustNewMethod("GetWorkspace", py_GetWorkspace, 0, ""),
		}

		globals := py.StringDict{
			"LIB_VERSION":       py.String(LIB_VERSION),
			"MAX_ATOMS":         py.Int(canon.MaxAtoms),
			"IGNORE_ELEMENTS":   py.Int(IGNORE_ELEMENTS),
			"IGNORE_BOND_ORDER": py.Int(IGNORE_BOND_ORDER),
			"READ_ONLY":         py.Int(READ_ONLY),
		}

		py.RegisterModule(&py.ModuleImpl{
			Info: py.ModuleInfo{
				Name: "_pycanon",
				Doc:  "molecule canonicalization gpython module",
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
