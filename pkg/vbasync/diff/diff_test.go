package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	for _, text := range []string{
		"",
		"x\r\n",
		"Sub A()\r\n    MsgBox \"hi\"\r\nEnd Sub\r\n",
		"a\r\na\r\na\r\nb\r\na\r\n",
	} {
		res := Compute(text, text)
		assert.True(t, res.Equal(), "%q", text)
		assert.Empty(t, res.Blocks)
	}
}

func TestInsertionFromEmpty(t *testing.T) {
	res := Compute("", "a\r\nb\r\nc\r\n")
	assert.Equal(t, []Block{{OldStart: 0, OldLen: 0, NewStart: 0, NewLen: 3}}, res.Blocks)

	res = Compute("a\r\nb\r\nc\r\n", "")
	assert.Equal(t, []Block{{OldStart: 0, OldLen: 3, NewStart: 0, NewLen: 0}}, res.Blocks)
}

func TestBlocks(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want []Block
	}{
		{
			name: "replace",
			a:    []string{"x"},
			b:    []string{"y"},
			want: []Block{{0, 1, 0, 1}},
		},
		{
			name: "insert in the middle",
			a:    []string{"a", "c"},
			b:    []string{"a", "b", "c"},
			want: []Block{{1, 0, 1, 1}},
		},
		{
			name: "delete at the end",
			a:    []string{"a", "b", "c"},
			b:    []string{"a", "b"},
			want: []Block{{2, 1, 2, 0}},
		},
		{
			name: "swap keeps the first line",
			a:    []string{"A", "B"},
			b:    []string{"B", "A"},
			want: []Block{{0, 0, 0, 1}, {1, 1, 2, 0}},
		},
		{
			name: "two separate changes",
			a:    []string{"1", "2", "3", "4", "5"},
			b:    []string{"1", "x", "3", "4", "y"},
			want: []Block{{1, 1, 1, 1}, {4, 1, 4, 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Blocks(tt.a, tt.b))
		})
	}
}

func TestBlocksReproduceNew(t *testing.T) {
	a := []string{"a", "b", "c", "a", "b", "b", "a"}
	b := []string{"c", "b", "a", "b", "a", "c"}
	blocks := Blocks(a, b)

	var out []string
	at := 0
	for _, bl := range blocks {
		out = append(out, a[at:bl.OldStart]...)
		out = append(out, b[bl.NewStart:bl.NewStart+bl.NewLen]...)
		at = bl.OldStart + bl.OldLen
	}
	out = append(out, a[at:]...)
	assert.Equal(t, b, out)

	edits := 0
	for _, bl := range blocks {
		edits += bl.OldLen + bl.NewLen
	}
	assert.Equal(t, 5, edits)
}

func TestTokenizeLine(t *testing.T) {
	tests := []struct {
		line string
		in   LineState
		want string
		out  LineState
	}{
		{`If a = "Bb" Then ' Cc`, LineState{}, `IF A = "Bb" THEN ' Cc`, LineState{}},
		{`Rem Keep This`, LineState{}, `REM Keep This`, LineState{}},
		{`x = 1: rem Keep`, LineState{}, `X = 1: REM Keep`, LineState{}},
		{`Remove = 1`, LineState{}, `REMOVE = 1`, LineState{}},
		{`' Note _`, LineState{}, `' Note _`, LineState{InComment: true}},
		{`still Comment`, LineState{InComment: true}, `still Comment`, LineState{}},
		{`x = "it""s" & y`, LineState{}, `X = "it""s" & Y`, LineState{}},
		{`s = "a ' b" ' c`, LineState{}, `S = "a ' b" ' c`, LineState{}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, st := TokenizeLine(tt.line, tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.out, st)
		})
	}
}

func TestCaseInsensitiveCompare(t *testing.T) {
	tests := []struct {
		name     string
		old, new string
		equal    bool
	}{
		{"code", "Dim x As Long\r\n", "DIM X AS LONG\r\n", true},
		{"string literal", "MsgBox \"Hi\"\r\n", "MsgBox \"hi\"\r\n", false},
		{"comment", "' Note\r\n", "' note\r\n", false},
		{"rem keyword", "Rem hello\r\n", "rem hello\r\n", true},
		{"continued comment", "' a _\r\ncontinued Text\r\n", "' a _\r\ncontinued text\r\n", false},
		{"no continuation", "x = 1\r\ncontinued Text\r\n", "x = 1\r\nCONTINUED TEXT\r\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, Compute(tt.old, tt.new).Equal())
		})
	}
}

func TestFixCase(t *testing.T) {
	old := "Sub Foo()\r\n  x = 1\r\nEnd Sub\r\n"

	t.Run("case only", func(t *testing.T) {
		assert.Equal(t, old, FixCase(old, "SUB FOO()\r\n  X = 1\r\nEND SUB\r\n"))
	})

	t.Run("insertion", func(t *testing.T) {
		got := FixCase(old, "SUB FOO()\r\n  X = 1\r\n  Y = 2\r\nEND SUB\r\n")
		assert.Equal(t, "Sub Foo()\r\n  x = 1\r\n  Y = 2\r\nEnd Sub\r\n", got)
	})

	t.Run("deletion", func(t *testing.T) {
		got := FixCase(old, "sub foo()\r\nend sub\r\n")
		assert.Equal(t, "Sub Foo()\r\nEnd Sub\r\n", got)
	})

	t.Run("replacement", func(t *testing.T) {
		got := FixCase(old, "SUB FOO()\r\n  x = 2\r\nEND SUB\r\n")
		assert.Equal(t, "Sub Foo()\r\n  x = 2\r\nEnd Sub\r\n", got)
	})

	t.Run("unterminated last line", func(t *testing.T) {
		assert.Equal(t, "Sub Foo()\r\nEnd Sub", FixCase("Sub Foo()\r\nEnd Sub\r\n", "SUB FOO()\r\nEND SUB"))
	})
}

func TestFixCaseKeepsVBBase(t *testing.T) {
	old := "Attribute VB_Name = \"Sheet1\"\r\nAttribute VB_Base = \"X\"\r\nSub A()\r\nEnd Sub\r\n"
	new := "Attribute VB_Name = \"Sheet1\"\r\nAttribute VB_Base = \"x\"\r\nSub B()\r\nEnd Sub\r\n"
	want := "Attribute VB_Name = \"Sheet1\"\r\nAttribute VB_Base = \"X\"\r\nSub B()\r\nEnd Sub\r\n"
	assert.Equal(t, want, FixCase(old, new))
}

func TestLinesJoin(t *testing.T) {
	assert.Nil(t, Lines(""))
	assert.Equal(t, []string{"a", "b"}, Lines("a\r\nb\r\n"))
	assert.Equal(t, []string{"a", "b"}, Lines("a\nb"))
	assert.Equal(t, []string{""}, Lines("\r\n"))
	assert.Equal(t, "a\r\nb\r\n", Join([]string{"a", "b"}))
	assert.Equal(t, "", Join(nil))
}

func TestUnified(t *testing.T) {
	out, err := Unified("old/Module1.bas", "new/Module1.bas", "x\r\ny\r\n", "x\r\nz\r\n")
	require.NoError(t, err)
	assert.Contains(t, out, "--- old/Module1.bas\n+++ new/Module1.bas\n")
	assert.Contains(t, out, "-y\n+z\n")

	out, err = Unified("a", "b", "same\r\n", "same\r\n")
	require.NoError(t, err)
	assert.Empty(t, out)
}
