package config

import "fmt"

// parser turns a Token stream into an AST. It holds exactly one token of
// lookahead.
type parser struct {
	tz  *tokenizer
	tok Token
}

func newParser(tz *tokenizer) (*parser, error) {
	p := &parser{tz: tz}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) advance() error {
	t, err := p.tz.nextToken()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expectAdvance(kind TokenKind) error {
	if p.tok.Kind != kind {
		return &RecognizerError{Pos: p.tok.Start, Msg: fmt.Sprintf("expected %s but got %s", kind, p.tok.Kind)}
	}
	return p.advance()
}

func (p *parser) skipSeparators() error {
	for p.tok.Kind == Newline || p.tok.Kind == Comma {
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) skipNewlines() error {
	for p.tok.Kind == Newline {
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

// container parses a whole configuration source: a braced mapping, a
// bracketed list, or a bare top-level mapping body with no enclosing
// braces.
func (p *parser) container() (Node, error) {
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	switch p.tok.Kind {
	case LeftCurly:
		return p.mapping()
	case LeftBracket:
		return p.list()
	case EOF:
		return &MappingNode{LBracePos: p.tok.Start}, nil
	default:
		node, err := p.mappingBody(EOF)
		if err != nil {
			return nil, err
		}
		if p.tok.Kind != EOF {
			return nil, &RecognizerError{Pos: p.tok.Start, Msg: fmt.Sprintf("unexpected following value: %s", p.tok.Kind)}
		}
		return node, nil
	}
}

func (p *parser) mapping() (*MappingNode, error) {
	lb := p.tok.Start
	if err := p.expectAdvance(LeftCurly); err != nil {
		return nil, err
	}
	node, err := p.mappingBody(RightCurly)
	if err != nil {
		return nil, err
	}
	node.LBracePos = lb
	if err := p.expectAdvance(RightCurly); err != nil {
		return nil, err
	}
	return node, nil
}

// mappingBody parses zero or more `key: value` entries separated by commas
// and/or newlines, tolerating a trailing separator, up to (but not
// consuming) end.
func (p *parser) mappingBody(end TokenKind) (*MappingNode, error) {
	node := &MappingNode{LBracePos: p.tok.Start}
	if err := p.skipSeparators(); err != nil {
		return nil, err
	}
	for p.tok.Kind != end && p.tok.Kind != EOF {
		kv, err := p.keyValue()
		if err != nil {
			return nil, err
		}
		node.Items = append(node.Items, kv)

		if p.tok.Kind == Comma || p.tok.Kind == Newline {
			if err := p.skipSeparators(); err != nil {
				return nil, err
			}
			continue
		}
		if p.tok.Kind == end || p.tok.Kind == EOF {
			break
		}
		return nil, &RecognizerError{Pos: p.tok.Start, Msg: fmt.Sprintf("unexpected following value: %s", p.tok.Kind)}
	}
	return node, nil
}

func (p *parser) keyValue() (KeyValue, error) {
	if p.tok.Kind != Word && p.tok.Kind != StringToken {
		return KeyValue{}, &RecognizerError{Pos: p.tok.Start, Msg: fmt.Sprintf("unexpected type for key: %s", p.tok.Kind)}
	}
	key := p.tok
	if err := p.advance(); err != nil {
		return KeyValue{}, err
	}
	for p.tok.Kind == StringToken && key.Kind == StringToken {
		key.Text += p.tok.Text
		key.Value = key.Value.(string) + p.tok.Value.(string)
		key.End = p.tok.End
		if err := p.advance(); err != nil {
			return KeyValue{}, err
		}
	}

	if p.tok.Kind != Colon && p.tok.Kind != Assign {
		return KeyValue{}, &RecognizerError{Pos: p.tok.Start, Msg: fmt.Sprintf("expected key-value separator, found %s", p.tok.Kind)}
	}
	if err := p.advance(); err != nil {
		return KeyValue{}, err
	}
	value, err := p.expr()
	if err != nil {
		return KeyValue{}, err
	}
	return KeyValue{Key: key, Value: value}, nil
}

func (p *parser) list() (*ListNode, error) {
	lb := p.tok.Start
	if err := p.expectAdvance(LeftBracket); err != nil {
		return nil, err
	}
	node := &ListNode{LBracketPos: lb}
	if err := p.skipSeparators(); err != nil {
		return nil, err
	}
	for p.tok.Kind != RightBracket && p.tok.Kind != EOF {
		item, err := p.expr()
		if err != nil {
			return nil, err
		}
		node.Items = append(node.Items, item)

		if p.tok.Kind == Comma || p.tok.Kind == Newline {
			if err := p.skipSeparators(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expectAdvance(RightBracket); err != nil {
		return nil, err
	}
	return node, nil
}

// expr is the grammar's entry point: expr := andExpr ("or" andExpr)*
func (p *parser) expr() (Node, error) {
	return p.binaryLevel(p.andExpr, Or)
}

func (p *parser) andExpr() (Node, error) {
	return p.binaryLevel(p.notExpr, And)
}

// notExpr := "not" notExpr | comparison
func (p *parser) notExpr() (Node, error) {
	if p.tok.Kind == Not {
		opPos := p.tok.Start
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{Op: Not, OpPos: opPos, Operand: operand}, nil
	}
	return p.comparison()
}

// comparison := bitOr (compOp bitOr)?
// compOp is one of <, <=, >, >=, ==, !=, <>, is, is not, in, not in.
func (p *parser) comparison() (Node, error) {
	left, err := p.bitOr()
	if err != nil {
		return nil, err
	}

	var op TokenKind
	switch p.tok.Kind {
	case LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual, Equal, Unequal, AltUnequal:
		op = p.tok.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
	case Is:
		op = Is
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind == Not {
			op = IsNot
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	case In:
		op = In
		if err := p.advance(); err != nil {
			return nil, err
		}
	case Not:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != In {
			return nil, &RecognizerError{Pos: p.tok.Start, Msg: fmt.Sprintf("expected %s but got %s", In, p.tok.Kind)}
		}
		op = NotIn
		if err := p.advance(); err != nil {
			return nil, err
		}
	default:
		return left, nil
	}

	right, err := p.bitOr()
	if err != nil {
		return nil, err
	}
	return &BinaryNode{Op: op, Left: left, Right: right}, nil
}

func (p *parser) bitOr() (Node, error) {
	return p.binaryLevel(p.bitXor, BitwiseOr)
}

func (p *parser) bitXor() (Node, error) {
	return p.binaryLevel(p.bitAnd, BitwiseXor)
}

func (p *parser) bitAnd() (Node, error) {
	return p.binaryLevel(p.shift, BitwiseAnd)
}

func (p *parser) shift() (Node, error) {
	return p.binaryLevel(p.additive, LeftShift, RightShift)
}

func (p *parser) additive() (Node, error) {
	return p.binaryLevel(p.multiplicative, Plus, Minus)
}

func (p *parser) multiplicative() (Node, error) {
	return p.binaryLevel(p.unary, Star, Slash, SlashSlash, Modulo)
}

// binaryLevel implements one left-associative precedence level: it parses
// one operand via next, then folds in as many (op operand) pairs as match
// one of ops.
func (p *parser) binaryLevel(next func() (Node, error), ops ...TokenKind) (Node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		matched := false
		for _, op := range ops {
			if p.tok.Kind == op {
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}
		op := p.tok.Kind
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: op, Left: left, Right: right}
	}
}

// unary := ("+" | "-" | "~" | "@") unary | power
func (p *parser) unary() (Node, error) {
	switch p.tok.Kind {
	case Plus, Minus, BitwiseComplement, At:
		op := p.tok.Kind
		opPos := p.tok.Start
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{Op: op, OpPos: opPos, Operand: operand}, nil
	default:
		return p.power()
	}
}

// power := primary ("**" unary)?
func (p *parser) power() (Node, error) {
	base, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind == Power {
		if err := p.advance(); err != nil {
			return nil, err
		}
		exp, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &BinaryNode{Op: Power, Left: base, Right: exp}, nil
	}
	return base, nil
}

// primary := atom trailer*, trailer := "." Word | "[" indexOrSlice "]"
func (p *parser) primary() (Node, error) {
	node, err := p.atom()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.Kind {
		case Dot:
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.Kind != Word {
				return nil, &RecognizerError{Pos: p.tok.Start, Msg: fmt.Sprintf("expected %s but got %s", Word, p.tok.Kind)}
			}
			word := p.tok
			if err := p.advance(); err != nil {
				return nil, err
			}
			node = &BinaryNode{Op: Dot, Left: node, Right: &TokenNode{Token: word}}
		case LeftBracket:
			lb := p.tok.Start
			if err := p.advance(); err != nil {
				return nil, err
			}
			idx, err := p.indexOrSlice(lb)
			if err != nil {
				return nil, err
			}
			if err := p.expectAdvance(RightBracket); err != nil {
				return nil, err
			}
			if sl, ok := idx.(*SliceNode); ok {
				node = &BinaryNode{Op: Colon, Left: node, Right: sl}
			} else {
				node = &BinaryNode{Op: LeftBracket, Left: node, Right: idx}
			}
		default:
			return node, nil
		}
	}
}

// indexOrSlice parses the contents of a trailer's "[...]": either a single
// index expression or a start:stop:step slice.
func (p *parser) indexOrSlice(lb Pos) (Node, error) {
	if p.tok.Kind == Colon {
		return p.sliceTail(lb, nil)
	}

	first, err := p.expr()
	if err != nil {
		return nil, err
	}
	switch p.tok.Kind {
	case Colon:
		return p.sliceTail(lb, first)
	case Comma:
		n := 1
		for p.tok.Kind == Comma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if _, err := p.expr(); err != nil {
				return nil, err
			}
			n++
		}
		return nil, &RecognizerError{Pos: lb, Msg: fmt.Sprintf("expected 1 expression, found %d", n)}
	default:
		return first, nil
	}
}

func (p *parser) sliceTail(lb Pos, start Node) (*SliceNode, error) {
	node := &SliceNode{StartPos: lb, Start: start}
	if err := p.expectAdvance(Colon); err != nil {
		return nil, err
	}
	if p.tok.Kind != Colon && p.tok.Kind != RightBracket {
		stop, err := p.expr()
		if err != nil {
			return nil, err
		}
		node.Stop = stop
	}
	if p.tok.Kind == Colon {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != RightBracket {
			step, err := p.expr()
			if err != nil {
				return nil, err
			}
			node.Step = step
		}
	}
	return node, nil
}

// atom := mapping | list | value | "(" expr ")" | "$" "{" primary "}"
func (p *parser) atom() (Node, error) {
	switch p.tok.Kind {
	case LeftCurly:
		return p.mapping()
	case LeftBracket:
		return p.list()
	case LeftParenthesis:
		if err := p.advance(); err != nil {
			return nil, err
		}
		node, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expectAdvance(RightParenthesis); err != nil {
			return nil, err
		}
		return node, nil
	case Dollar:
		dpos := p.tok.Start
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectAdvance(LeftCurly); err != nil {
			return nil, err
		}
		inner, err := p.primary()
		if err != nil {
			return nil, err
		}
		if err := p.expectAdvance(RightCurly); err != nil {
			return nil, err
		}
		return &UnaryNode{Op: Dollar, OpPos: dpos, Operand: inner}, nil
	default:
		return p.value()
	}
}

func (p *parser) value() (Node, error) {
	switch p.tok.Kind {
	case Word, IntegerNumber, FloatNumber, Complex, StringToken, BackTick, True, False, None:
		tok := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &TokenNode{Token: tok}, nil
	default:
		return nil, &RecognizerError{Pos: p.tok.Start, Msg: fmt.Sprintf("unexpected when looking for value: %s", p.tok.Kind)}
	}
}
