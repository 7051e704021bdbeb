package main

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
	"golang.org/x/xerrors"

	"github.com/sleuthgo/sleuthgo/ir"
)

// supportedMajor is the only ir_version major line this loader
// accepts (SPEC_FULL §B: "golang.org/x/mod/semver validates the
// ir_version field of a loaded module description against the
// supported range"). Only the v1 major line is understood; a module
// built for a future incompatible layout fails to load rather than
// being silently misread.
const supportedMajor = "v1"

// moduleJSON is the on-disk shape of a hand-authored module description,
// the minimal frontend the CLI provides in place of the out-of-scope
// object-file/bitcode loader (§1, §6). It mirrors ir.Builder's
// construction API closely enough that encoding one by hand (or
// generating one from a real front end later) is mechanical.
type moduleJSON struct {
	IRVersion string       `json:"ir_version"`
	Name      string       `json:"name"`
	Globals   []globalJSON `json:"globals"`
	Functions []funcJSON   `json:"functions"`
}

type globalJSON struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type funcJSON struct {
	Name   string      `json:"name"`
	Params []string    `json:"params"` // element types, one per formal parameter
	Blocks []blockJSON `json:"blocks"`
}

type blockJSON struct {
	Instrs []instrJSON `json:"instrs"`
}

type edgeJSON struct {
	Pred  int    `json:"pred"` // predecessor block index within the function
	Value string `json:"value"`
}

type posJSON struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

// instrJSON is a tagged union over every instruction kind ir.Builder can
// construct (§6's per-instruction-kind dispatch surface); unused fields
// for a given Op are simply absent from the source JSON.
type instrJSON struct {
	Op  string  `json:"op"`
	ID  string  `json:"id"`
	Pos posJSON `json:"pos"`

	Type string `json:"type"` // const, phi, bitcast/sext/zext (target type), call (result type)
	Value int64 `json:"value"` // const

	Elem  string `json:"elem"`  // alloc, constaggregate
	N     int    `json:"n"`     // alloc (fixed count), constaggregate (length)
	Count string `json:"count"` // alloc (dynamic count operand)
	Heap  bool   `json:"heap"`  // alloc

	Opcode string `json:"opcode"` // binop: + - * /
	X      string `json:"x"`      // binop, icmp, bitcast/sext/zext operand X
	Y      string `json:"y"`      // binop, icmp

	Addr string `json:"addr"` // load, store
	Val  string `json:"val"`  // store

	Base string `json:"base"` // gep
	Idx  string `json:"idx"`  // gep

	Pred string `json:"pred_op"` // icmp: eq ne slt sle sgt sge ult ule ugt uge

	Edges []edgeJSON `json:"edges"` // phi

	Cond string `json:"cond"` // if
	Then int    `json:"then"` // if: block index
	Else int    `json:"else"` // if: block index

	Target int `json:"target"` // jump: block index

	Result string `json:"result"` // return (empty for void)

	Callee string   `json:"callee"` // call
	Args   []string `json:"args"`   // call
}

// loadModule reads and validates a JSON module description and builds it
// into an ir.Module via ir.Builder. Any malformed input is reported as a
// wrapped error surfaced to the driver (§7: "module load failure... abort
// the run with diagnostic").
func loadModule(path string) (*ir.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("reading module file: %w", err)
	}
	var mj moduleJSON
	if err := json.Unmarshal(data, &mj); err != nil {
		return nil, xerrors.Errorf("parsing module JSON: %w", err)
	}
	if err := checkIRVersion(mj.IRVersion); err != nil {
		return nil, err
	}

	b := ir.NewBuilder(mj.Name)
	l := &loader{b: b, funcsByName: make(map[string]*ir.Function)}

	if err := l.declareGlobals(mj.Globals); err != nil {
		return nil, err
	}
	if err := l.declareFunctions(mj.Functions); err != nil {
		return nil, err
	}
	if err := l.buildFunctions(mj.Functions); err != nil {
		return nil, err
	}
	return b.Module(), nil
}

func checkIRVersion(v string) error {
	if v == "" {
		return xerrors.New("module load failure: missing ir_version")
	}
	if !semver.IsValid(v) {
		return xerrors.Errorf("module load failure: ir_version %q is not valid semver", v)
	}
	if semver.Major(v) != supportedMajor {
		return xerrors.Errorf("module load failure: ir_version %q is unsupported (this build understands %s.x)", v, supportedMajor)
	}
	return nil
}

// loader holds the cross-function state a single module decode needs:
// the shared Builder, a name->Function map (populated before any
// function body is built, so a call to a function declared later in the
// file still resolves — §6's "per-instruction kind dispatch... call with
// callee"), and per-function symbol tables built fresh for each
// function.
type loader struct {
	b           *ir.Builder
	funcsByName map[string]*ir.Function
	funcBlocks  map[string][]*ir.BasicBlock
}

func (l *loader) declareGlobals(gs []globalJSON) error {
	for _, g := range gs {
		t, err := parseType(g.Type)
		if err != nil {
			return xerrors.Errorf("global %q: %w", g.ID, err)
		}
		l.b.Global(g.ID, t)
	}
	return nil
}

// declareFunctions creates every function's shell (params + blocks, no
// instructions) up front, so instruction construction in buildFunctions
// can resolve a call to any function in the module regardless of JSON
// ordering.
func (l *loader) declareFunctions(fs []funcJSON) error {
	l.funcBlocks = make(map[string][]*ir.BasicBlock, len(fs))
	for _, fj := range fs {
		paramTypes := make([]ir.Type, len(fj.Params))
		for i, pt := range fj.Params {
			t, err := parseType(pt)
			if err != nil {
				return xerrors.Errorf("function %q param %d: %w", fj.Name, i, err)
			}
			paramTypes[i] = t
		}
		fn := l.b.Func(fj.Name, paramTypes...)
		l.funcsByName[fj.Name] = fn

		blocks := make([]*ir.BasicBlock, len(fj.Blocks))
		blocks[0] = fn.Blocks[0] // Func() already created the entry block
		for i := 1; i < len(fj.Blocks); i++ {
			blocks[i] = l.b.Block()
		}
		l.funcBlocks[fj.Name] = blocks
	}
	return nil
}

// buildFunctions fills in every function's instruction bodies.
func (l *loader) buildFunctions(fs []funcJSON) error {
	for _, fj := range fs {
		if err := l.buildFunction(fj); err != nil {
			return xerrors.Errorf("function %q: %w", fj.Name, err)
		}
	}
	return nil
}

// posSetter is implemented (via instrBase's promoted method) by every
// concrete ir instruction type the builder returns.
type posSetter interface {
	SetPos(ir.Position)
}

func (l *loader) buildFunction(fj funcJSON) error {
	fn := l.funcsByName[fj.Name]
	blocks := l.funcBlocks[fj.Name]

	sym := make(map[string]ir.Value)
	for i, p := range fn.Params {
		sym["arg"+strconv.Itoa(i)] = p
		sym[p.Name()] = p
	}

	// Phis can be referenced by a later instruction (the loop-carried
	// back edge), so every phi in the function gets its placeholder
	// built and registered before any edge is wired — mirroring how a
	// real SSA builder pre-allocates phi nodes ahead of filling operands
	// for a not-yet-sealed block.
	type pendingPhi struct {
		phi *ir.Phi
		ij  instrJSON
	}
	var pending []pendingPhi

	for bi, blk := range fj.Blocks {
		l.b.SetBlock(blocks[bi])
		for _, ij := range blk.Instrs {
			if ij.Op != "phi" {
				continue
			}
			t, err := parseType(ij.Type)
			if err != nil {
				return xerrors.Errorf("phi %q: %w", ij.ID, err)
			}
			phi := l.b.Phi(t)
			if ij.Pos != (posJSON{}) {
				phi.SetPos(ir.Position{File: ij.Pos.File, Line: ij.Pos.Line, Col: ij.Pos.Col})
			}
			sym[ij.ID] = phi
			pending = append(pending, pendingPhi{phi: phi, ij: ij})
		}
	}

	for bi, blk := range fj.Blocks {
		l.b.SetBlock(blocks[bi])
		for _, ij := range blk.Instrs {
			if ij.Op == "phi" {
				continue
			}
			v, err := l.buildInstr(ij, sym, blocks)
			if err != nil {
				return err
			}
			if ij.ID != "" && v != nil {
				sym[ij.ID] = v
			}
			if v != nil {
				if ps, ok := v.(posSetter); ok && ij.Pos != (posJSON{}) {
					ps.SetPos(ir.Position{File: ij.Pos.File, Line: ij.Pos.Line, Col: ij.Pos.Col})
				}
			}
		}
	}

	for _, pp := range pending {
		for _, e := range pp.ij.Edges {
			if e.Pred < 0 || e.Pred >= len(blocks) {
				return xerrors.Errorf("phi %q: predecessor block index %d out of range", pp.ij.ID, e.Pred)
			}
			val, err := resolve(sym, e.Value)
			if err != nil {
				return xerrors.Errorf("phi %q edge: %w", pp.ij.ID, err)
			}
			l.b.AddEdge(pp.phi, blocks[e.Pred], val, nil)
		}
	}
	return nil
}

func (l *loader) buildInstr(ij instrJSON, sym map[string]ir.Value, blocks []*ir.BasicBlock) (ir.Value, error) {
	switch ij.Op {
	case "const":
		t, err := parseType(ij.Type)
		if err != nil {
			return nil, err
		}
		return l.b.Const(t, ij.Value), nil

	case "constaggregate":
		elem, err := parseType(ij.Elem)
		if err != nil {
			return nil, err
		}
		return l.b.ConstAggregate(elem, ij.N), nil

	case "alloc":
		elem, err := parseType(ij.Elem)
		if err != nil {
			return nil, err
		}
		if ij.Count != "" {
			count, err := resolve(sym, ij.Count)
			if err != nil {
				return nil, err
			}
			return l.b.AllocDynamic(elem, count, ij.Heap), nil
		}
		return l.b.Alloc(elem, ij.N), nil

	case "binop":
		op, err := parseOpcode(ij.Opcode)
		if err != nil {
			return nil, err
		}
		x, err := resolve(sym, ij.X)
		if err != nil {
			return nil, err
		}
		y, err := resolve(sym, ij.Y)
		if err != nil {
			return nil, err
		}
		return l.b.BinOp(op, x, y), nil

	case "load":
		addr, err := resolve(sym, ij.Addr)
		if err != nil {
			return nil, err
		}
		return l.b.Load(addr), nil

	case "store":
		addr, err := resolve(sym, ij.Addr)
		if err != nil {
			return nil, err
		}
		val, err := resolve(sym, ij.Val)
		if err != nil {
			return nil, err
		}
		return l.b.Store(addr, val), nil

	case "gep":
		base, err := resolve(sym, ij.Base)
		if err != nil {
			return nil, err
		}
		idx, err := resolve(sym, ij.Idx)
		if err != nil {
			return nil, err
		}
		return l.b.GEP(base, idx), nil

	case "bitcast":
		x, err := resolve(sym, ij.X)
		if err != nil {
			return nil, err
		}
		t, err := parseType(ij.Type)
		if err != nil {
			return nil, err
		}
		return l.b.BitCast(x, t), nil

	case "sext":
		x, err := resolve(sym, ij.X)
		if err != nil {
			return nil, err
		}
		t, err := parseType(ij.Type)
		if err != nil {
			return nil, err
		}
		return l.b.SExt(x, t), nil

	case "zext":
		x, err := resolve(sym, ij.X)
		if err != nil {
			return nil, err
		}
		t, err := parseType(ij.Type)
		if err != nil {
			return nil, err
		}
		return l.b.ZExt(x, t), nil

	case "icmp":
		pred, err := parsePred(ij.Pred)
		if err != nil {
			return nil, err
		}
		x, err := resolve(sym, ij.X)
		if err != nil {
			return nil, err
		}
		y, err := resolve(sym, ij.Y)
		if err != nil {
			return nil, err
		}
		return l.b.ICmp(pred, x, y), nil

	case "if":
		cond, err := resolve(sym, ij.Cond)
		if err != nil {
			return nil, err
		}
		if ij.Then < 0 || ij.Then >= len(blocks) || ij.Else < 0 || ij.Else >= len(blocks) {
			return nil, xerrors.New("if: then/else block index out of range")
		}
		return l.b.If(cond, blocks[ij.Then], blocks[ij.Else]), nil

	case "jump":
		if ij.Target < 0 || ij.Target >= len(blocks) {
			return nil, xerrors.New("jump: target block index out of range")
		}
		return l.b.Jump(blocks[ij.Target]), nil

	case "return":
		if ij.Result == "" {
			return l.b.Return(nil), nil
		}
		v, err := resolve(sym, ij.Result)
		if err != nil {
			return nil, err
		}
		return l.b.Return(v), nil

	case "call":
		callee := l.funcsByName[ij.Callee] // nil is a valid "indirect/unresolved call" (§7)
		args := make([]ir.Value, len(ij.Args))
		for i, a := range ij.Args {
			v, err := resolve(sym, a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		var resultType ir.Type
		if ij.Type != "" {
			t, err := parseType(ij.Type)
			if err != nil {
				return nil, err
			}
			resultType = t
		}
		return l.b.Call(callee, resultType, args...), nil

	default:
		return nil, xerrors.Errorf("unrecognized instruction kind %q", ij.Op)
	}
}

func resolve(sym map[string]ir.Value, name string) (ir.Value, error) {
	if v, ok := sym[name]; ok {
		return v, nil
	}
	return nil, xerrors.Errorf("undefined operand %q", name)
}

func parseOpcode(s string) (ir.Opcode, error) {
	switch s {
	case "+":
		return ir.Add, nil
	case "-":
		return ir.Sub, nil
	case "*":
		return ir.Mul, nil
	case "/":
		return ir.SDiv, nil
	default:
		return 0, xerrors.Errorf("unrecognized binop opcode %q", s)
	}
}

func parsePred(s string) (ir.Pred, error) {
	switch s {
	case "eq":
		return ir.EQ, nil
	case "ne":
		return ir.NE, nil
	case "slt":
		return ir.SLT, nil
	case "sle":
		return ir.SLE, nil
	case "sgt":
		return ir.SGT, nil
	case "sge":
		return ir.SGE, nil
	case "ult":
		return ir.ULT, nil
	case "ule":
		return ir.ULE, nil
	case "ugt":
		return ir.UGT, nil
	case "uge":
		return ir.UGE, nil
	default:
		return 0, xerrors.Errorf("unrecognized icmp predicate %q", s)
	}
}

// parseType parses the minimal type grammar the JSON loader accepts:
// "iN" for an N-bit integer, and a trailing "*" for a pointer to the
// preceding type (repeatable, e.g. "i8**").
func parseType(s string) (ir.Type, error) {
	if s == "" {
		return nil, xerrors.New("empty type")
	}
	depth := 0
	for strings.HasSuffix(s, "*") {
		s = strings.TrimSuffix(s, "*")
		depth++
	}
	if !strings.HasPrefix(s, "i") {
		return nil, xerrors.Errorf("unrecognized type %q", s)
	}
	width, err := strconv.Atoi(s[1:])
	if err != nil {
		return nil, xerrors.Errorf("unrecognized integer width in type %q: %w", s, err)
	}
	var t ir.Type = ir.IntT(width)
	for i := 0; i < depth; i++ {
		t = ir.PtrT(t)
	}
	return t, nil
}
