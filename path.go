package config

import (
	"bufio"
	"fmt"
	"strings"
)

// PathStep is one element of an unpacked reference path: a `.name` lookup,
// a `[index]` lookup, or a `[start:stop:step]` slice.
type PathStep struct {
	Op    TokenKind // Dot, LeftBracket, or Colon
	Key   string     // set when Op == Dot
	Index Node       // set when Op == LeftBracket
	Slice *SliceNode
}

// parsePath parses text as a standalone reference path: a leading Word
// followed by any number of ".name" / "[index]" / "[slice]" trailers. It
// is used to resolve `${path}` interpolations in back-tick literals and to
// implement the string-keyed lookup entry points of the public API.
func parsePath(text string) (Node, error) {
	src := newSource(bufio.NewReader(strings.NewReader(text)))
	tz := newTokenizer(src)
	p, err := newParser(tz)
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != Word {
		return nil, &RecognizerError{Pos: p.tok.Start, Msg: fmt.Sprintf("expected %s but got %s", Word, p.tok.Kind)}
	}
	node, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != EOF {
		return nil, &RecognizerError{Pos: p.tok.Start, Msg: fmt.Sprintf("unexpected following value: %s", p.tok.Kind)}
	}
	return node, nil
}

// unpackPath flattens the trailer chain built by primary() into a root
// name and an ordered list of steps, outermost trailer last. It rejects
// any node that isn't a plain path (a non-path operator, or a root that
// isn't a Word); the expression inside an "[index]" is not checked.
func unpackPath(node Node) (string, []PathStep, error) {
	var steps []PathStep

	for {
		bn, ok := node.(*BinaryNode)
		if !ok {
			break
		}
		switch bn.Op {
		case Dot:
			word, ok := bn.Right.(*TokenNode)
			if !ok || word.Token.Kind != Word {
				return "", nil, errf("invalid path: expected a name after '.'")
			}
			steps = append([]PathStep{{Op: Dot, Key: word.Token.Text}}, steps...)
			node = bn.Left
		case LeftBracket:
			steps = append([]PathStep{{Op: LeftBracket, Index: bn.Right}}, steps...)
			node = bn.Left
		case Colon:
			sl, ok := bn.Right.(*SliceNode)
			if !ok {
				return "", nil, errf("invalid path: malformed slice")
			}
			steps = append([]PathStep{{Op: Colon, Slice: sl}}, steps...)
			node = bn.Left
		default:
			return "", nil, errf("invalid path: unexpected operator %s", bn.Op)
		}
	}

	root, ok := node.(*TokenNode)
	if !ok || root.Token.Kind != Word {
		return "", nil, errf("invalid path: must start with a name")
	}
	return root.Token.Text, steps, nil
}

// toSource renders a path-shaped Node back to config source text, for use
// in diagnostics such as circular reference chains.
func toSource(node Node) string {
	var b strings.Builder
	writeSource(&b, node)
	return b.String()
}

func writeSource(b *strings.Builder, node Node) {
	switch n := node.(type) {
	case *TokenNode:
		b.WriteString(n.Token.Text)
	case *UnaryNode:
		switch n.Op {
		case Dollar:
			b.WriteString("$")
			writeSource(b, n.Operand)
		case At:
			b.WriteString("@")
			writeSource(b, n.Operand)
		default:
			b.WriteString(n.Op.String())
			writeSource(b, n.Operand)
		}
	case *BinaryNode:
		switch n.Op {
		case Dot:
			writeSource(b, n.Left)
			b.WriteString(".")
			writeSource(b, n.Right)
		case LeftBracket:
			writeSource(b, n.Left)
			b.WriteString("[")
			writeSource(b, n.Right)
			b.WriteString("]")
		case Colon:
			writeSource(b, n.Left)
			b.WriteString("[")
			writeSource(b, n.Right)
			b.WriteString("]")
		default:
			writeSource(b, n.Left)
			b.WriteString(" ")
			b.WriteString(n.Op.String())
			b.WriteString(" ")
			writeSource(b, n.Right)
		}
	case *SliceNode:
		if n.Start != nil {
			writeSource(b, n.Start)
		}
		b.WriteString(":")
		if n.Stop != nil {
			writeSource(b, n.Stop)
		}
		if n.Step != nil {
			b.WriteString(":")
			writeSource(b, n.Step)
		}
	case *ListNode:
		b.WriteString("[")
		for i, item := range n.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			writeSource(b, item)
		}
		b.WriteString("]")
	case *MappingNode:
		b.WriteString("{...}")
	}
}

// isIdentifier reports whether s is a valid bare identifier: a non-digit
// start character (letter or underscore) followed by any number of
// letters, digits, or underscores, with nothing left over.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !isWordStart(r) {
				return false
			}
			continue
		}
		if !isWordContinue(r) {
			return false
		}
	}
	return true
}

// formatIdentifierPath renders a root name and its steps as dotted/bracket
// path text, used for diagnostics.
func formatIdentifierPath(root string, steps []PathStep) string {
	var b strings.Builder
	b.WriteString(root)
	for _, s := range steps {
		switch s.Op {
		case Dot:
			b.WriteString(".")
			b.WriteString(s.Key)
		case LeftBracket:
			b.WriteString("[")
			b.WriteString(toSource(s.Index))
			b.WriteString("]")
		case Colon:
			b.WriteString("[")
			if s.Slice.Start != nil {
				b.WriteString(toSource(s.Slice.Start))
			}
			b.WriteString(":")
			if s.Slice.Stop != nil {
				b.WriteString(toSource(s.Slice.Stop))
			}
			if s.Slice.Step != nil {
				b.WriteString(":")
				b.WriteString(toSource(s.Slice.Step))
			}
			b.WriteString("]")
		}
	}
	return b.String()
}
