package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlice(t *testing.T) {
	a := make([]int, 0, 5)
	b := append(a[:0], 1, 2, 3, 4)
	c := append(a[:0], 4, 5, 6)

	assert.Equal(t, []int{}, a)
	assert.Equal(t, []int{4, 5, 6, 4}, b)
	assert.Equal(t, []int{4, 5, 6}, c)
}

func TestSliceHelpers(t *testing.T) {
	moves := []string{"e2e4", "e7e5", "g1f3"}

	assert.True(t, Contains(moves, "e7e5"))
	assert.False(t, Contains(moves, "d2d4"))

	assert.Equal(t, []int{4, 4, 4}, MapSlice(moves, func(m string) int { return len(m) }))
	assert.Equal(t, []string{"e2e4", "e7e5"}, FilterSlice(moves, func(m string) bool { return m[0] == 'e' }))

	found := FindInSlice(moves, func(m string) bool { return m[0] == 'g' })
	assert.True(t, found.HasValue())
	assert.Equal(t, "g1f3", found.Value())

	missing := FindInSlice(moves, func(m string) bool { return m[0] == 'a' })
	assert.True(t, missing.IsEmpty())
	assert.Equal(t, "none", missing.ValueOr("none"))

	assert.Equal(t, "g1f3", Last(moves))
}

func TestIndentAndEllipses(t *testing.T) {
	assert.Equal(t, "> a\n> b", Indent("a\nb", "> "))
	assert.Equal(t, "info d...", Ellipses("info depth 10", 9))
	assert.Equal(t, "readyok", Ellipses("readyok", 9))
}

func TestFuncAndPrefixLogger(t *testing.T) {
	messages := []string{}
	logger := PrefixLogger(FuncLogger(func(s string) {
		messages = append(messages, s)
	}), "engine: ")

	logger.Println("uciok")
	logger.Printf("sent %v", "isready")
	logger.Print("readyok")

	assert.Equal(t, []string{
		"engine: uciok\n",
		"engine: sent isready\n",
		"engine: readyok",
	}, messages)
}
