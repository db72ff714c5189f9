package codes

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	toks := Tokenize("1.10a")
	assert.Len(t, toks, 4)
	assert.True(t, toks[0].IsNum)
	assert.EqualValues(t, 1, toks[0].Num)
	assert.Equal(t, ".", toks[1].Text)
	assert.EqualValues(t, 10, toks[2].Num)
	assert.Equal(t, "a", toks[3].Text)
}

func TestTokenizeDropsWhitespace(t *testing.T) {
	toks := Tokenize(" 12 ")
	assert.Len(t, toks, 1)
	assert.EqualValues(t, 12, toks[0].Num)
}

func TestHumanSort(t *testing.T) {
	in := []string{"1.10", "1.2", "10", "2", "1.2.1"}
	sort.Slice(in, func(i, j int) bool { return Less(in[i], in[j]) })
	assert.Equal(t, []string{"1.2", "1.2.1", "1.10", "2", "10"}, in)
}

func TestNextIncrementsLastToken(t *testing.T) {
	none := func(string) bool { return false }
	assert.Equal(t, "1.3", Next("1.2", false, 1, none))
	assert.Equal(t, "1.4", Next("1.2", false, 2, none))
	assert.Equal(t, "1.2.1", Next("1.2", true, 1, none))
}

func TestNextFallsBackToPool(t *testing.T) {
	taken := map[string]bool{"1.3": true, "_1": true}
	exists := func(c string) bool { return taken[c] }
	assert.Equal(t, "_2", Next("1.2", false, 1, exists))
	assert.Equal(t, "_1", Next("", false, 1, func(string) bool { return false }))
}

func TestNumberFormatting(t *testing.T) {
	assert.Equal(t, "2.003", ResourceNumber(2, 3, false))
	assert.Equal(t, "003", ResourceNumber(2, 3, true))
	assert.Equal(t, "2.3", ItemNumber(2, 3, false))
	assert.Equal(t, "3", ItemNumber(2, 3, true))
}
