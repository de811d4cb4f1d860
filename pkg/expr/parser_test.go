package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	p := NewParser("add(@0, mul(@1,@23))")
	p.Tokenize(false)

	wantTypes := []TokenType{
		TokenAdd, TokenLeftParen, TokenInputNumber, TokenComma,
		TokenMul, TokenLeftParen, TokenInputNumber, TokenComma, TokenInputNumber,
		TokenRightParen, TokenRightParen,
	}
	tokens := p.Tokens()
	require.Len(t, tokens, len(wantTypes))
	for i, token := range tokens {
		assert.Equal(t, wantTypes[i], token.Type, "token %d", i)
	}

	wantStrs := []string{"add", "(", "@0", ",", "mul", "(", "@1", ",", "@23", ")", ")"}
	assert.Equal(t, wantStrs, p.TokenStrs())
}

func TestTokenizeIsIdempotent(t *testing.T) {
	p := NewParser("add(@0,@1)")
	p.Tokenize(false)
	count := len(p.Tokens())
	p.Tokenize(false)
	assert.Len(t, p.Tokens(), count, "second lex without retokenize must be a no-op")
}

func TestTokenizeStripsWhitespace(t *testing.T) {
	p := NewParser("  add( @0 ,\t@1 ) ")
	p.Tokenize(false)
	assert.Equal(t, []string{"add", "(", "@0", ",", "@1", ")"}, p.TokenStrs())
}

func TestTokenizePanics(t *testing.T) {
	tests := []struct {
		name      string
		statement string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"illegal character", "sub(@0,@1)"},
		{"truncated add", "ad(@0,@1)"},
		{"truncated mul", "mu@0"},
		{"at without digit", "add(@,@1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(tt.statement)
			assert.Panics(t, func() { p.Tokenize(true) })
		})
	}
}

func TestGenerateSimple(t *testing.T) {
	p := NewParser("add(@0,@1)")
	rpn := p.Generate()

	require.Len(t, rpn, 3)
	assert.Equal(t, 0, rpn[0].Num)
	assert.Equal(t, 1, rpn[1].Num)
	assert.Equal(t, int(TokenAdd), rpn[2].Num)
}

func TestGenerateNested(t *testing.T) {
	p := NewParser("mul(add(@0,@1),add(@2,@3))")
	rpn := p.Generate()

	nums := make([]int, len(rpn))
	for i, node := range rpn {
		nums[i] = node.Num
	}
	assert.Equal(t, []int{0, 1, int(TokenAdd), 2, 3, int(TokenAdd), int(TokenMul)}, nums)
}

func TestGenerateDeepNesting(t *testing.T) {
	p := NewParser("add(add(add(add(add(@0,@1),@2),@3),@4),@5)")
	rpn := p.Generate()

	require.Len(t, rpn, 11)
	operators := 0
	for _, node := range rpn {
		if node.Num < 0 {
			operators++
			assert.Equal(t, int(TokenAdd), node.Num)
		}
	}
	assert.Equal(t, 5, operators)
	// post-order: the root operator comes last
	assert.Equal(t, int(TokenAdd), rpn[len(rpn)-1].Num)
}

func TestGenerateLeafOnly(t *testing.T) {
	p := NewParser("@42")
	rpn := p.Generate()
	require.Len(t, rpn, 1)
	assert.Equal(t, 42, rpn[0].Num)
}

func TestGeneratePanicsOnMalformed(t *testing.T) {
	tests := []struct {
		name      string
		statement string
	}{
		{"missing comma", "add(@0@1)"},
		{"missing left paren", "add@0,@1)"},
		{"missing right paren", "add(@0,@1"},
		{"dangling subexpression", "add(@0,@1))"},
		{"operand missing", "add(,@1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(tt.statement)
			assert.Panics(t, func() { p.Generate() })
		})
	}
}
