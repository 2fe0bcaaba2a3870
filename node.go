package config

// Node is a parsed AST element: a literal/identifier leaf, a unary or
// binary expression, a slice, or a list/mapping container.
type Node interface {
	Pos() Pos
}

// TokenNode wraps a single Token as a leaf of the expression tree -
// literals, words, and back-tick strings.
type TokenNode struct {
	Token Token
}

func (n *TokenNode) Pos() Pos { return n.Token.Start }

// UnaryNode is a prefix operator applied to a single operand: `-x`, `~x`,
// `not x`, `@"path"`, or `${a.b}`, whose operand is a chain of BinaryNode
// trailers (`x.y`/`x[i]`) rooted at a Word TokenNode.
type UnaryNode struct {
	Op      TokenKind
	OpPos   Pos
	Operand Node
}

func (n *UnaryNode) Pos() Pos { return n.OpPos }

// BinaryNode is an infix operator with a left and right operand. Path
// steps (`.name`, `[index]`, `[slice]`) are represented as BinaryNode
// whose Op is Dot, LeftBracket, or Colon and whose Right is, respectively,
// a TokenNode(Word), an expression Node, or a SliceNode.
type BinaryNode struct {
	Op    TokenKind
	Left  Node
	Right Node
}

func (n *BinaryNode) Pos() Pos { return n.Left.Pos() }

// SliceNode represents `[start:stop:step]`; any of the three may be nil
// when omitted.
type SliceNode struct {
	StartPos          Pos
	Start, Stop, Step Node
}

func (n *SliceNode) Pos() Pos { return n.StartPos }

// ListNode is an ordered sequence of expression nodes: `[a, b, c]`.
type ListNode struct {
	LBracketPos Pos
	Items       []Node
}

func (n *ListNode) Pos() Pos { return n.LBracketPos }

// KeyValue is one `key: value` entry of a MappingNode, keeping the key
// token around so duplicate-key and other errors can cite its location.
type KeyValue struct {
	Key   Token
	Value Node
}

// MappingNode is an ordered sequence of key/value pairs, in source order.
type MappingNode struct {
	LBracePos Pos
	Items     []KeyValue
}

func (n *MappingNode) Pos() Pos { return n.LBracePos }
