package config

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// mapWrapper is the lazy, AST-backed form of a mapping: its keys are known
// from the parse, but each value's AST is only evaluated when looked up.
// It is the InternalMapping variant of Value - it must be unwrapped before
// it can cross the public API boundary.
type mapWrapper struct {
	cfg  *Config
	node *MappingNode
}

func (*mapWrapper) Kind() Kind { return KindMapping }

func (w *mapWrapper) lookup(key string) (Node, Pos, bool) {
	for _, kv := range w.node.Items {
		if keyName(kv.Key) == key {
			return kv.Value, kv.Key.Start, true
		}
	}
	return nil, Pos{}, false
}

// seqWrapper is the lazy, AST-backed form of a list: the InternalList
// variant of Value.
type seqWrapper struct {
	cfg  *Config
	node *ListNode
}

func (*seqWrapper) Kind() Kind { return KindList }

func (w *seqWrapper) len() int { return len(w.node.Items) }

func keyName(tok Token) string {
	if tok.Kind == StringToken {
		if s, ok := tok.Value.(string); ok {
			return s
		}
	}
	return tok.Text
}

// checkDuplicates walks the whole AST once at load time, rejecting any
// mapping literal with two entries sharing a key.
func checkDuplicates(node Node) error {
	switch n := node.(type) {
	case *MappingNode:
		seen := make(map[string]Pos, len(n.Items))
		for _, kv := range n.Items {
			k := keyName(kv.Key)
			if prev, ok := seen[k]; ok {
				return errf("duplicate key %s seen at %s (previously at %s)", k, kv.Key.Start, prev)
			}
			seen[k] = kv.Key.Start
			if err := checkDuplicates(kv.Value); err != nil {
				return err
			}
		}
	case *ListNode:
		for _, item := range n.Items {
			if err := checkDuplicates(item); err != nil {
				return err
			}
		}
	case *UnaryNode:
		return checkDuplicates(n.Operand)
	case *BinaryNode:
		if err := checkDuplicates(n.Left); err != nil {
			return err
		}
		return checkDuplicates(n.Right)
	case *SliceNode:
		for _, sub := range []Node{n.Start, n.Stop, n.Step} {
			if sub == nil {
				continue
			}
			if err := checkDuplicates(sub); err != nil {
				return err
			}
		}
	}
	return nil
}

// evaluate computes the Value of an AST node in cfg's context. Containers
// (mapping and list literals) stay lazy: their elements are only
// evaluated on demand, which is what lets a circular $-reference inside
// one entry be detected without forcing every sibling entry first.
func evaluate(cfg *Config, node Node) (Value, error) {
	switch n := node.(type) {
	case *TokenNode:
		return evalToken(cfg, n)
	case *UnaryNode:
		return evalUnary(cfg, n)
	case *BinaryNode:
		return evalBinary(cfg, n)
	case *ListNode:
		return &seqWrapper{cfg: cfg, node: n}, nil
	case *MappingNode:
		return &mapWrapper{cfg: cfg, node: n}, nil
	default:
		return nil, errf("unable to evaluate node")
	}
}

func evalToken(cfg *Config, n *TokenNode) (Value, error) {
	tok := n.Token
	switch tok.Kind {
	case IntegerNumber:
		return IntegerValue(tok.Value.(int64)), nil
	case FloatNumber:
		return FloatValue(tok.Value.(float64)), nil
	case Complex:
		return ComplexValue(tok.Value.(complex128)), nil
	case StringToken:
		return StringValue(tok.Value.(string)), nil
	case True:
		return BoolValue(true), nil
	case False:
		return BoolValue(false), nil
	case None:
		return NoneValue{}, nil
	case BackTick:
		return cfg.converter.Convert(cfg, tok.Value.(string), tok.Start)
	case Word:
		v, ok := cfg.context[tok.Text]
		if !ok {
			return nil, errAt(tok.Start, "unknown variable: %s", tok.Text)
		}
		return v, nil
	default:
		return nil, errAt(tok.Start, "unable to evaluate token: %s", tok.Kind)
	}
}

func evalUnary(cfg *Config, n *UnaryNode) (Value, error) {
	switch n.Op {
	case At:
		return evalInclude(cfg, n)
	case Dollar:
		return cfg.evalReference(n)
	case Not:
		v, err := evalAndUnwrap(cfg, n.Operand)
		if err != nil {
			return nil, err
		}
		b, ok := v.(BoolValue)
		if !ok {
			return nil, errAt(n.OpPos, "cannot negate %s", v.Kind())
		}
		return BoolValue(!b), nil
	case Plus, Minus, BitwiseComplement:
		v, err := evalAndUnwrap(cfg, n.Operand)
		if err != nil {
			return nil, err
		}
		return evalArithUnary(n.OpPos, n.Op, v)
	default:
		return nil, errAt(n.OpPos, "unable to evaluate unary operator: %s", n.Op)
	}
}

func evalArithUnary(pos Pos, op TokenKind, v Value) (Value, error) {
	switch op {
	case Plus:
		if !isNumeric(v) {
			return nil, errAt(pos, "cannot negate %s", v.Kind())
		}
		return v, nil
	case Minus:
		switch vv := v.(type) {
		case IntegerValue:
			return IntegerValue(-vv), nil
		case FloatValue:
			return FloatValue(-vv), nil
		case ComplexValue:
			return ComplexValue(-vv), nil
		}
		return nil, errAt(pos, "cannot negate %s", v.Kind())
	case BitwiseComplement:
		iv, ok := v.(IntegerValue)
		if !ok {
			return nil, errAt(pos, "cannot invert %s", v.Kind())
		}
		return IntegerValue(^iv), nil
	}
	return nil, errAt(pos, "unable to evaluate unary operator: %s", op)
}

// evalInclude resolves `@ operand`: operand must evaluate to a string
// path, which is resolved against the current file's directory and then
// cfg's include path.
func evalInclude(cfg *Config, n *UnaryNode) (Value, error) {
	operand, err := evalAndUnwrap(cfg, n.Operand)
	if err != nil {
		return nil, err
	}
	s, ok := operand.(StringValue)
	if !ok {
		return nil, errAt(n.OpPos, "include path must be a string, but is %s", operand.Kind())
	}
	path := string(s)

	resolved, err := cfg.resolveIncludePath(path)
	if err != nil {
		return nil, errAt(n.OpPos, "%s", err.Error())
	}
	if cfg.path != "" {
		if abs1, err1 := filepath.Abs(resolved); err1 == nil {
			if abs2, err2 := filepath.Abs(cfg.path); err2 == nil && abs1 == abs2 {
				return nil, errAt(n.OpPos, "configuration cannot include itself: %s", path)
			}
		}
	}

	f, err := os.Open(resolved)
	if err != nil {
		return nil, errAt(n.OpPos, "unable to locate %s", path)
	}
	defer f.Close()

	root, err := parseContainer(f)
	if err != nil {
		return nil, err
	}
	if cfg.noDuplicates {
		if err := checkDuplicates(root); err != nil {
			return nil, err
		}
	}

	switch rn := root.(type) {
	case *ListNode:
		return &seqWrapper{cfg: cfg, node: rn}, nil
	case *MappingNode:
		child := &Config{
			rootNode:          rn,
			path:              resolved,
			rootDir:           filepath.Dir(resolved),
			includePath:       cfg.includePath,
			context:           cfg.context,
			noDuplicates:      cfg.noDuplicates,
			strictConversions: cfg.strictConversions,
			converter:         cfg.converter,
			useCache:          cfg.useCache,
			parent:            cfg,
		}
		child.root = &mapWrapper{cfg: child, node: rn}
		if child.useCache {
			child.cache = make(map[string]Value)
		}
		return &NestedValue{Config: child}, nil
	default:
		return nil, errAt(n.OpPos, "root configuration must be a mapping")
	}
}

// resolveIncludePath finds the file named by path relative to cfg's own
// directory and then each entry of its include path.
func (cfg *Config) resolveIncludePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	candidates := []string{}
	if cfg.rootDir != "" {
		candidates = append(candidates, filepath.Join(cfg.rootDir, path))
	}
	for _, dir := range cfg.includePath {
		candidates = append(candidates, filepath.Join(dir, path))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("unable to locate %s", path)
}

// evalReference resolves `$ operand`: operand must be a primary path
// (a Word with Dot/LeftBracket/Colon trailers). Before walking, the
// UnaryNode's identity is recorded as in-flight; re-entering it indicates
// a cycle.
func (cfg *Config) evalReference(n *UnaryNode) (Value, error) {
	root, steps, err := unpackPath(n.Operand)
	if err != nil {
		return nil, err
	}

	if cfg.refsSeen == nil {
		cfg.refsSeen = make(map[Node]refInfo)
	}
	if _, seen := cfg.refsSeen[n]; seen {
		return nil, cfg.circularReferenceError(n)
	}

	pathText := formatIdentifierPath(root, steps)
	cfg.refsSeen[n] = refInfo{path: pathText, pos: n.OpPos}
	defer delete(cfg.refsSeen, n)

	return getFromPath(cfg, root, steps)
}

type refInfo struct {
	path string
	pos  Pos
}

func (cfg *Config) circularReferenceError(n *UnaryNode) error {
	entries := make([]refInfo, 0, len(cfg.refsSeen))
	for _, info := range cfg.refsSeen {
		entries = append(entries, info)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].pos.Before(entries[j].pos) })
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s %s", e.path, e.pos)
	}
	return errf("circular reference: %s", strings.Join(parts, ", "))
}

// getFromPath walks root.steps against cfg's root container, evaluating
// each step's AST lazily: a Dot step only evaluates the one key it names,
// never its siblings.
func getFromPath(cfg *Config, root string, steps []PathStep) (Value, error) {
	astNode, _, ok := cfg.root.lookup(root)
	if !ok {
		return nil, errf("not found in configuration: %s", root)
	}
	val, err := evaluate(cfg.root.cfg, astNode)
	if err != nil {
		return nil, err
	}
	curCfg := cfg.root.cfg

	for _, step := range steps {
		switch step.Op {
		case Dot:
			val, curCfg, err = memberLookup(curCfg, val, step.Key)
		case LeftBracket:
			val, err = indexLookup(curCfg, val, step.Index)
		case Colon:
			val, err = sliceLookupStep(curCfg, val, step.Slice)
		}
		if err != nil {
			return nil, err
		}
	}
	return val, nil
}

// memberLookup resolves one ".key" step against val, which must be a
// lazy mapping, a nested config, or (once evaluated further) an already
// unwrapped mapping.
func memberLookup(cfg *Config, val Value, key string) (Value, *Config, error) {
	switch vv := val.(type) {
	case *mapWrapper:
		astNode, _, ok := vv.lookup(key)
		if !ok {
			return nil, nil, errf("not found in configuration: %s", key)
		}
		next, err := evaluate(vv.cfg, astNode)
		if err != nil {
			return nil, nil, err
		}
		return next, vv.cfg, nil
	case *NestedValue:
		astNode, _, ok := vv.Config.root.lookup(key)
		if !ok {
			return nil, nil, errf("not found in configuration: %s", key)
		}
		next, err := evaluate(vv.Config, astNode)
		if err != nil {
			return nil, nil, err
		}
		return next, vv.Config, nil
	case *MappingValue:
		next, ok := vv.Get(key)
		if !ok {
			return nil, nil, errf("not found in configuration: %s", key)
		}
		return next, cfg, nil
	default:
		return nil, nil, errf("invalid container for key access: %s", val.Kind())
	}
}

// indexLookup resolves one "[index]" step; only list-like containers
// accept a numeric subscript.
func indexLookup(cfg *Config, val Value, indexNode Node) (Value, error) {
	idxVal, err := evalAndUnwrap(cfg, indexNode)
	if err != nil {
		return nil, err
	}
	iv, ok := idxVal.(IntegerValue)
	if !ok {
		return nil, errf("index must be an integer, but is %s", idxVal.Kind())
	}

	switch vv := val.(type) {
	case *seqWrapper:
		n := vv.len()
		i, err := normalizeIndex(int64(iv), n)
		if err != nil {
			return nil, err
		}
		return evaluate(vv.cfg, vv.node.Items[i])
	case ListValue:
		n := len(vv)
		i, err := normalizeIndex(int64(iv), n)
		if err != nil {
			return nil, err
		}
		return vv[i], nil
	default:
		return nil, errf("invalid container for numeric index: %s", val.Kind())
	}
}

func normalizeIndex(i int64, n int) (int, error) {
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return 0, errf("index out of range: is %d, must be between 0 and %d", i, n-1)
	}
	return int(i), nil
}

func sliceLookupStep(cfg *Config, val Value, sl *SliceNode) (Value, error) {
	items, err := materializeList(cfg, val)
	if err != nil {
		return nil, err
	}
	return sliceList(cfg, items, sl)
}

// materializeList realizes a list-like Value (lazy or already evaluated)
// into a concrete, fully-evaluated ListValue for slicing.
func materializeList(cfg *Config, val Value) (ListValue, error) {
	switch vv := val.(type) {
	case *seqWrapper:
		out := make(ListValue, 0, vv.len())
		for _, item := range vv.node.Items {
			ev, err := evaluate(vv.cfg, item)
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}
		return out, nil
	case ListValue:
		return vv, nil
	default:
		return nil, errf("invalid container for slicing: %s", val.Kind())
	}
}

// evalAndUnwrap evaluates node and fully realizes any internal variant it
// produces, for use where an operator needs a concrete operand.
func evalAndUnwrap(cfg *Config, node Node) (Value, error) {
	v, err := evaluate(cfg, node)
	if err != nil {
		return nil, err
	}
	return unwrap(v)
}

// unwrap converts an internal (AST-backed) variant to its public
// equivalent, recursively.
func unwrap(v Value) (Value, error) {
	switch vv := v.(type) {
	case *mapWrapper:
		out := NewMapping()
		for _, kv := range vv.node.Items {
			val, err := evaluate(vv.cfg, kv.Value)
			if err != nil {
				return nil, err
			}
			uval, err := unwrap(val)
			if err != nil {
				return nil, err
			}
			out.Set(keyName(kv.Key), uval)
		}
		return out, nil
	case *seqWrapper:
		out := make(ListValue, 0, len(vv.node.Items))
		for _, item := range vv.node.Items {
			val, err := evaluate(vv.cfg, item)
			if err != nil {
				return nil, err
			}
			uval, err := unwrap(val)
			if err != nil {
				return nil, err
			}
			out = append(out, uval)
		}
		return out, nil
	case *NestedValue:
		return vv.Config.AsDict()
	default:
		return v, nil
	}
}

func evalBinary(cfg *Config, n *BinaryNode) (Value, error) {
	switch n.Op {
	case And:
		return evalAnd(cfg, n)
	case Or:
		return evalOr(cfg, n)
	case Dot:
		return evalMemberExpr(cfg, n)
	case LeftBracket:
		return evalIndexExpr(cfg, n)
	case Colon:
		return evalSliceExpr(cfg, n)
	}

	lhs, err := evalAndUnwrap(cfg, n.Left)
	if err != nil {
		return nil, err
	}
	rhs, err := evalAndUnwrap(cfg, n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case Plus:
		v, err := addValues(lhs, rhs)
		return withPos(n.Pos(), v, err)
	case Minus:
		v, err := subtractValues(lhs, rhs)
		return withPos(n.Pos(), v, err)
	case Star:
		v, err := multiplyValues(lhs, rhs)
		return withPos(n.Pos(), v, err)
	case Slash:
		v, err := divideValues(lhs, rhs)
		return withPos(n.Pos(), v, err)
	case SlashSlash:
		v, err := floorDivideValues(lhs, rhs)
		return withPos(n.Pos(), v, err)
	case Modulo:
		v, err := moduloValues(lhs, rhs)
		return withPos(n.Pos(), v, err)
	case Power:
		v, err := powerValues(lhs, rhs)
		return withPos(n.Pos(), v, err)
	case LeftShift:
		v, err := shiftValues(lhs, rhs, true)
		return withPos(n.Pos(), v, err)
	case RightShift:
		v, err := shiftValues(lhs, rhs, false)
		return withPos(n.Pos(), v, err)
	case BitwiseAnd:
		v, err := bitwiseValues(lhs, rhs, BitwiseAnd)
		return withPos(n.Pos(), v, err)
	case BitwiseOr:
		v, err := bitwiseValues(lhs, rhs, BitwiseOr)
		return withPos(n.Pos(), v, err)
	case BitwiseXor:
		v, err := bitwiseValues(lhs, rhs, BitwiseXor)
		return withPos(n.Pos(), v, err)
	case LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual:
		v, err := orderValues(lhs, rhs, n.Op)
		return withPos(n.Pos(), v, err)
	case Equal, Is:
		return BoolValue(deepEqual(lhs, rhs)), nil
	case Unequal, AltUnequal, IsNot:
		return BoolValue(!deepEqual(lhs, rhs)), nil
	case In:
		v, err := membershipValue(lhs, rhs)
		return withPos(n.Pos(), v, err)
	case NotIn:
		v, err := membershipValue(lhs, rhs)
		if err != nil {
			return nil, errAt(n.Pos(), "%s", err.Error())
		}
		return BoolValue(!bool(v.(BoolValue))), nil
	}
	return nil, errAt(n.Pos(), "unable to evaluate binary operator: %s", n.Op)
}

func withPos(pos Pos, v Value, err error) (Value, error) {
	if err != nil {
		if ce, ok := err.(*ConfigError); ok && !ce.HasPos {
			ce.HasPos = true
			ce.Pos = pos
		}
		return nil, err
	}
	return v, nil
}

func evalAnd(cfg *Config, n *BinaryNode) (Value, error) {
	lv, err := evalAndUnwrap(cfg, n.Left)
	if err != nil {
		return nil, err
	}
	lb, ok := lv.(BoolValue)
	if !ok {
		return nil, errAt(n.Pos(), "cannot evaluate 'and' on %s", lv.Kind())
	}
	if !bool(lb) {
		return BoolValue(false), nil
	}
	rv, err := evalAndUnwrap(cfg, n.Right)
	if err != nil {
		return nil, err
	}
	rb, ok := rv.(BoolValue)
	if !ok {
		return nil, errAt(n.Pos(), "cannot evaluate 'and' on %s", rv.Kind())
	}
	return rb, nil
}

func evalOr(cfg *Config, n *BinaryNode) (Value, error) {
	lv, err := evalAndUnwrap(cfg, n.Left)
	if err != nil {
		return nil, err
	}
	lb, ok := lv.(BoolValue)
	if !ok {
		return nil, errAt(n.Pos(), "cannot evaluate 'or' on %s", lv.Kind())
	}
	if bool(lb) {
		return BoolValue(true), nil
	}
	rv, err := evalAndUnwrap(cfg, n.Right)
	if err != nil {
		return nil, err
	}
	rb, ok := rv.(BoolValue)
	if !ok {
		return nil, errAt(n.Pos(), "cannot evaluate 'or' on %s", rv.Kind())
	}
	return rb, nil
}

// evalMemberExpr handles a plain ".name" trailer used outside of a $
// reference, e.g. a context variable that holds a mapping.
func evalMemberExpr(cfg *Config, n *BinaryNode) (Value, error) {
	lhs, err := evalAndUnwrap(cfg, n.Left)
	if err != nil {
		return nil, err
	}
	word := n.Right.(*TokenNode).Token.Text
	m, ok := lhs.(*MappingValue)
	if !ok {
		return nil, errAt(n.Pos(), "invalid container for key access: %s", lhs.Kind())
	}
	v, ok := m.Get(word)
	if !ok {
		return nil, errAt(n.Pos(), "not found in configuration: %s", word)
	}
	return v, nil
}

func evalIndexExpr(cfg *Config, n *BinaryNode) (Value, error) {
	lhs, err := evalAndUnwrap(cfg, n.Left)
	if err != nil {
		return nil, err
	}
	idxVal, err := evalAndUnwrap(cfg, n.Right)
	if err != nil {
		return nil, err
	}
	iv, ok := idxVal.(IntegerValue)
	if !ok {
		return nil, errAt(n.Pos(), "index must be an integer, but is %s", idxVal.Kind())
	}
	list, ok := lhs.(ListValue)
	if !ok {
		return nil, errAt(n.Pos(), "invalid container for numeric index: %s", lhs.Kind())
	}
	i, err := normalizeIndex(int64(iv), len(list))
	if err != nil {
		return nil, errAt(n.Pos(), "%s", err.Error())
	}
	return list[i], nil
}

func evalSliceExpr(cfg *Config, n *BinaryNode) (Value, error) {
	lhs, err := evalAndUnwrap(cfg, n.Left)
	if err != nil {
		return nil, err
	}
	list, ok := lhs.(ListValue)
	if !ok {
		return nil, errAt(n.Pos(), "invalid container for slicing: %s", lhs.Kind())
	}
	sl := n.Right.(*SliceNode)
	v, err := sliceList(cfg, list, sl)
	if err != nil {
		return nil, errAt(n.Pos(), "%s", err.Error())
	}
	return v, nil
}

func isNumeric(v Value) bool {
	switch v.(type) {
	case IntegerValue, FloatValue, ComplexValue:
		return true
	}
	return false
}

func asFloat(v Value) float64 {
	switch vv := v.(type) {
	case IntegerValue:
		return float64(vv)
	case FloatValue:
		return float64(vv)
	}
	return 0
}

func asComplex(v Value) complex128 {
	switch vv := v.(type) {
	case IntegerValue:
		return complex(float64(vv), 0)
	case FloatValue:
		return complex(float64(vv), 0)
	case ComplexValue:
		return complex128(vv)
	}
	return 0
}

func opError(verb, prep string, lhs, rhs Kind) error {
	return errf("cannot %s %s %s %s", verb, lhs, prep, rhs)
}

func addValues(lhs, rhs Value) (Value, error) {
	if s1, ok := lhs.(StringValue); ok {
		if s2, ok := rhs.(StringValue); ok {
			return s1 + s2, nil
		}
	}
	if l1, ok := lhs.(ListValue); ok {
		if l2, ok := rhs.(ListValue); ok {
			out := make(ListValue, 0, len(l1)+len(l2))
			out = append(out, l1...)
			out = append(out, l2...)
			return out, nil
		}
	}
	if m1, ok := lhs.(*MappingValue); ok {
		if m2, ok := rhs.(*MappingValue); ok {
			return mergeMappings(m1, m2), nil
		}
	}
	if lhs.Kind() == KindComplex || rhs.Kind() == KindComplex {
		if isNumeric(lhs) && isNumeric(rhs) {
			return ComplexValue(asComplex(lhs) + asComplex(rhs)), nil
		}
	}
	if i1, ok := lhs.(IntegerValue); ok {
		if i2, ok := rhs.(IntegerValue); ok {
			return i1 + i2, nil
		}
	}
	if isNumeric(lhs) && isNumeric(rhs) {
		return FloatValue(asFloat(lhs) + asFloat(rhs)), nil
	}
	return nil, opError("add", "and", lhs.Kind(), rhs.Kind())
}

func subtractValues(lhs, rhs Value) (Value, error) {
	if m1, ok := lhs.(*MappingValue); ok {
		if m2, ok := rhs.(*MappingValue); ok {
			return subtractMappings(m1, m2), nil
		}
	}
	if lhs.Kind() == KindComplex || rhs.Kind() == KindComplex {
		if isNumeric(lhs) && isNumeric(rhs) {
			return ComplexValue(asComplex(lhs) - asComplex(rhs)), nil
		}
	}
	if i1, ok := lhs.(IntegerValue); ok {
		if i2, ok := rhs.(IntegerValue); ok {
			return i1 - i2, nil
		}
	}
	if isNumeric(lhs) && isNumeric(rhs) {
		return FloatValue(asFloat(lhs) - asFloat(rhs)), nil
	}
	return nil, opError("subtract", "from", rhs.Kind(), lhs.Kind())
}

func multiplyValues(lhs, rhs Value) (Value, error) {
	if lhs.Kind() == KindComplex || rhs.Kind() == KindComplex {
		if isNumeric(lhs) && isNumeric(rhs) {
			return ComplexValue(asComplex(lhs) * asComplex(rhs)), nil
		}
	}
	if i1, ok := lhs.(IntegerValue); ok {
		if i2, ok := rhs.(IntegerValue); ok {
			return i1 * i2, nil
		}
	}
	if isNumeric(lhs) && isNumeric(rhs) {
		return FloatValue(asFloat(lhs) * asFloat(rhs)), nil
	}
	return nil, opError("multiply", "by", lhs.Kind(), rhs.Kind())
}

func divideValues(lhs, rhs Value) (Value, error) {
	if isNumeric(lhs) && isNumeric(rhs) {
		if lhs.Kind() == KindComplex || rhs.Kind() == KindComplex {
			return ComplexValue(asComplex(lhs) / asComplex(rhs)), nil
		}
		return FloatValue(asFloat(lhs) / asFloat(rhs)), nil
	}
	return nil, opError("divide", "by", lhs.Kind(), rhs.Kind())
}

func floorDivideValues(lhs, rhs Value) (Value, error) {
	i1, ok1 := lhs.(IntegerValue)
	i2, ok2 := rhs.(IntegerValue)
	if !ok1 || !ok2 {
		return nil, opError("integer divide", "by", lhs.Kind(), rhs.Kind())
	}
	if i2 == 0 {
		return nil, errf("division by zero")
	}
	q := int64(i1) / int64(i2)
	if (int64(i1)%int64(i2) != 0) && ((int64(i1) < 0) != (int64(i2) < 0)) {
		q--
	}
	return IntegerValue(q), nil
}

func moduloValues(lhs, rhs Value) (Value, error) {
	i1, ok1 := lhs.(IntegerValue)
	i2, ok2 := rhs.(IntegerValue)
	if !ok1 || !ok2 {
		return nil, opError("modulo", "by", lhs.Kind(), rhs.Kind())
	}
	if i2 == 0 {
		return nil, errf("division by zero")
	}
	m := int64(i1) % int64(i2)
	if m != 0 && (m < 0) != (int64(i2) < 0) {
		m += int64(i2)
	}
	return IntegerValue(m), nil
}

func powerValues(lhs, rhs Value) (Value, error) {
	if lhs.Kind() == KindComplex || rhs.Kind() == KindComplex {
		if isNumeric(lhs) && isNumeric(rhs) {
			return ComplexValue(cmplx.Pow(asComplex(lhs), asComplex(rhs))), nil
		}
	}
	if i1, ok := lhs.(IntegerValue); ok {
		if i2, ok := rhs.(IntegerValue); ok && i2 >= 0 {
			return IntegerValue(intPow(int64(i1), int64(i2))), nil
		}
	}
	if isNumeric(lhs) && isNumeric(rhs) {
		return FloatValue(math.Pow(asFloat(lhs), asFloat(rhs))), nil
	}
	return nil, opError("exponentiate", "and", lhs.Kind(), rhs.Kind())
}

func intPow(base, exp int64) int64 {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func shiftValues(lhs, rhs Value, left bool) (Value, error) {
	i1, ok1 := lhs.(IntegerValue)
	i2, ok2 := rhs.(IntegerValue)
	if !ok1 || !ok2 {
		verb := "left-shift"
		if !left {
			verb = "right-shift"
		}
		return nil, opError(verb, "and", lhs.Kind(), rhs.Kind())
	}
	if left {
		return IntegerValue(int64(i1) << uint(i2)), nil
	}
	return IntegerValue(int64(i1) >> uint(i2)), nil
}

func bitwiseValues(lhs, rhs Value, op TokenKind) (Value, error) {
	if op == BitwiseOr {
		if m1, ok := lhs.(*MappingValue); ok {
			if m2, ok := rhs.(*MappingValue); ok {
				return mergeMappings(m1, m2), nil
			}
		}
	}
	i1, ok1 := lhs.(IntegerValue)
	i2, ok2 := rhs.(IntegerValue)
	if !ok1 || !ok2 {
		verb := map[TokenKind]string{BitwiseAnd: "bitwise-and", BitwiseOr: "bitwise-or", BitwiseXor: "bitwise-xor"}[op]
		return nil, opError(verb, "and", lhs.Kind(), rhs.Kind())
	}
	switch op {
	case BitwiseAnd:
		return i1 & i2, nil
	case BitwiseOr:
		return i1 | i2, nil
	case BitwiseXor:
		return i1 ^ i2, nil
	}
	return nil, errf("unreachable bitwise operator")
}

func orderValues(lhs, rhs Value, op TokenKind) (Value, error) {
	var cmp int
	switch {
	case isNumeric(lhs) && isNumeric(rhs) && lhs.Kind() != KindComplex && rhs.Kind() != KindComplex:
		a, b := asFloat(lhs), asFloat(rhs)
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	case lhs.Kind() == KindString && rhs.Kind() == KindString:
		cmp = strings.Compare(string(lhs.(StringValue)), string(rhs.(StringValue)))
	default:
		return nil, errf("cannot order %s and %s", lhs.Kind(), rhs.Kind())
	}
	switch op {
	case LessThan:
		return BoolValue(cmp < 0), nil
	case LessThanOrEqual:
		return BoolValue(cmp <= 0), nil
	case GreaterThan:
		return BoolValue(cmp > 0), nil
	case GreaterThanOrEqual:
		return BoolValue(cmp >= 0), nil
	}
	return nil, errf("unreachable comparison operator")
}

func membershipValue(lhs, rhs Value) (Value, error) {
	switch container := rhs.(type) {
	case ListValue:
		for _, item := range container {
			if deepEqual(lhs, item) {
				return BoolValue(true), nil
			}
		}
		return BoolValue(false), nil
	case *MappingValue:
		s, ok := lhs.(StringValue)
		if !ok {
			return nil, errf("cannot test membership of %s in a mapping", lhs.Kind())
		}
		_, ok = container.Get(string(s))
		return BoolValue(ok), nil
	case StringValue:
		s, ok := lhs.(StringValue)
		if !ok {
			return nil, errf("cannot test membership of %s in a string", lhs.Kind())
		}
		return BoolValue(strings.Contains(string(container), string(s))), nil
	default:
		return nil, errf("cannot test membership in %s", rhs.Kind())
	}
}

func deepEqual(a, b Value) bool {
	if isNumeric(a) && isNumeric(b) {
		if a.Kind() == KindComplex || b.Kind() == KindComplex {
			return asComplex(a) == asComplex(b)
		}
		return asFloat(a) == asFloat(b)
	}
	switch av := a.(type) {
	case BoolValue:
		bv, ok := b.(BoolValue)
		return ok && av == bv
	case NoneValue:
		_, ok := b.(NoneValue)
		return ok
	case StringValue:
		bv, ok := b.(StringValue)
		return ok && av == bv
	case ListValue:
		bv, ok := b.(ListValue)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *MappingValue:
		bv, ok := b.(*MappingValue)
		if !ok || len(av.keys) != len(bv.keys) {
			return false
		}
		for _, k := range av.keys {
			v1, _ := av.Get(k)
			v2, ok := bv.Get(k)
			if !ok || !deepEqual(v1, v2) {
				return false
			}
		}
		return true
	}
	return false
}

// mergeMappings implements `+`/`|` on two mappings: a key present in both
// merges recursively when both sides are themselves mappings; otherwise
// rhs overrides lhs.
func mergeMappings(a, b *MappingValue) *MappingValue {
	out := a.clone()
	for _, k := range b.keys {
		bv, _ := b.Get(k)
		if av, ok := out.Get(k); ok {
			am, aok := av.(*MappingValue)
			bm, bok := bv.(*MappingValue)
			if aok && bok {
				out.Set(k, mergeMappings(am, bm))
				continue
			}
		}
		out.Set(k, bv)
	}
	return out
}

// subtractMappings implements `-` on two mappings: removes from a every
// key that is present in b.
func subtractMappings(a, b *MappingValue) *MappingValue {
	out := NewMapping()
	for _, k := range a.keys {
		if _, ok := b.Get(k); ok {
			continue
		}
		v, _ := a.Get(k)
		out.Set(k, v)
	}
	return out
}

// parseContainer parses a full CFG source read from r into its root AST
// node (a MappingNode or ListNode).
func parseContainer(r io.Reader) (Node, error) {
	src := newSource(bufio.NewReader(r))
	tz := newTokenizer(src)
	p, err := newParser(tz)
	if err != nil {
		return nil, err
	}
	return p.container()
}
