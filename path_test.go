package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPathRoundTrip(t *testing.T) {
	paths := []string{
		"name",
		"name.sub",
		"name.sub.deeper",
		"name[0]",
		"name[1:2:3]",
		"name[:]",
		"name[::2]",
		"name.sub[0].other",
		"name[0][1]",
	}
	for _, s := range paths {
		node, err := parsePath(s)
		if err != nil {
			t.Errorf("parsePath(%q): %v", s, err)
			continue
		}
		rendered := toSource(node)
		node2, err := parsePath(rendered)
		if err != nil {
			t.Errorf("parsePath(toSource(parsePath(%q))) = parsePath(%q): %v", s, rendered, err)
			continue
		}

		root1, steps1, err := unpackPath(node)
		if err != nil {
			t.Errorf("unpackPath(%q): %v", s, err)
			continue
		}
		root2, steps2, err := unpackPath(node2)
		if err != nil {
			t.Errorf("unpackPath(toSource(%q)): %v", s, err)
			continue
		}
		if root1 != root2 {
			t.Errorf("%q: root %q != round-tripped root %q", s, root1, root2)
		}
		if diff := cmp.Diff(steps1, steps2); diff != "" {
			t.Errorf("%q: steps mismatch after round-trip:\n%s", s, diff)
		}
	}
}

func TestUnpackPathRejectsNonPathOperator(t *testing.T) {
	// a BinaryNode built with an arithmetic operator never comes out of
	// parsePath's primary()-only grammar, but unpackPath must still reject
	// one defensively rather than silently drop the operator.
	node := &BinaryNode{
		Op:    Plus,
		Left:  &TokenNode{Token: Token{Kind: Word, Text: "a"}},
		Right: &TokenNode{Token: Token{Kind: IntegerNumber, Value: int64(1)}},
	}
	if _, _, err := unpackPath(node); err == nil {
		t.Error("unpackPath should reject a non-path operator")
	}
}

func TestUnpackPathSteps(t *testing.T) {
	node, err := parsePath("a.b[0][1:2:3]")
	if err != nil {
		t.Fatalf("parsePath: %v", err)
	}
	root, steps, err := unpackPath(node)
	if err != nil {
		t.Fatalf("unpackPath: %v", err)
	}
	if root != "a" {
		t.Errorf("root = %q, want a", root)
	}
	if len(steps) != 3 {
		t.Fatalf("steps = %v, want 3 entries", steps)
	}
	if steps[0].Op != Dot || steps[0].Key != "b" {
		t.Errorf("steps[0] = %+v, want Dot b", steps[0])
	}
	if steps[1].Op != LeftBracket {
		t.Errorf("steps[1] = %+v, want LeftBracket", steps[1])
	}
	if steps[2].Op != Colon || steps[2].Slice == nil {
		t.Errorf("steps[2] = %+v, want Colon with a slice", steps[2])
	}
}

func TestIsIdentifier(t *testing.T) {
	cases := []struct {
		s    string
		want bool
	}{
		{"", false},
		{"_", true},
		{"a", true},
		{"_foo", true},
		{"foo_bar123", true},
		{"1foo", false},
		{"123", false},
		{"foo!", false},
		{"foo bar", false},
		{"foo.bar", false},
		{"café", true},
		{"Ωmega", true},
		{"foo-bar", false},
	}
	for _, c := range cases {
		if got := isIdentifier(c.s); got != c.want {
			t.Errorf("isIdentifier(%q) = %v, want %v", c.s, got, c.want)
		}
	}
}
