// Package codes holds the human-sortable code tokeniser and the
// fresh-code generators used by renumbering and insertion.
package codes

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Token is one run of a tokenised code: either an integer run or a
// non-integer run.
type Token struct {
	Num   int64
	Text  string
	IsNum bool
}

// Tokenize splits s into alternating integer and non-integer runs,
// dropping empty and all-whitespace tokens. "1.10a" becomes
// [1, ".", 10, "a"].
func Tokenize(s string) []Token {
	var out []Token
	var buf strings.Builder
	var numeric bool

	flush := func() {
		t := buf.String()
		buf.Reset()
		if strings.TrimSpace(t) == "" {
			return
		}
		if numeric {
			n, _ := strconv.ParseInt(t, 10, 64)
			out = append(out, Token{Num: n, IsNum: true, Text: t})
			return
		}
		out = append(out, Token{Text: t})
	}

	for i, r := range s {
		isDigit := unicode.IsDigit(r)
		if i > 0 && isDigit != numeric {
			flush()
		}
		numeric = isDigit
		buf.WriteRune(r)
	}
	flush()
	return out
}

// Less orders codes human-style: integer runs compare numerically, so
// "1.10" sorts after "1.2".
func Less(a, b string) bool {
	ta, tb := Tokenize(a), Tokenize(b)
	for i := 0; i < len(ta) && i < len(tb); i++ {
		x, y := ta[i], tb[i]
		switch {
		case x.IsNum && y.IsNum:
			if x.Num != y.Num {
				return x.Num < y.Num
			}
		case x.IsNum != y.IsNum:
			// Numeric runs sort before text at the same position.
			return x.IsNum
		default:
			if x.Text != y.Text {
				return x.Text < y.Text
			}
		}
	}
	return len(ta) < len(tb)
}

// Next derives a fresh unused code near an existing one. With nextLevel
// it appends ".shift"; otherwise the last integer token is incremented
// by shift. When the derived code clashes, or near is empty, the
// generator falls back to the "_K" pool.
func Next(near string, nextLevel bool, shift int, exists func(string) bool) string {
	if shift <= 0 {
		shift = 1
	}
	if near != "" {
		if cand := derive(near, nextLevel, shift); cand != "" && !exists(cand) {
			return cand
		}
	}
	for k := 1; ; k++ {
		cand := fmt.Sprintf("_%d", k)
		if !exists(cand) {
			return cand
		}
	}
}

func derive(near string, nextLevel bool, shift int) string {
	if nextLevel {
		return fmt.Sprintf("%s.%d", near, shift)
	}
	toks := Tokenize(near)
	for i := len(toks) - 1; i >= 0; i-- {
		if !toks[i].IsNum {
			continue
		}
		var b strings.Builder
		for j, t := range toks {
			if j == i {
				b.WriteString(strconv.FormatInt(t.Num+int64(shift), 10))
			} else {
				b.WriteString(t.Text)
			}
		}
		return b.String()
	}
	return ""
}

// ResourceNumber formats an auto-assigned resource code "C.NNN", with
// the category prefix omitted in single-category projects.
func ResourceNumber(category, n int, singleCategory bool) string {
	if singleCategory {
		return fmt.Sprintf("%03d", n)
	}
	return fmt.Sprintf("%d.%03d", category, n)
}

// ItemNumber formats an auto-assigned parent item code, with the
// category prefix omitted in single-category projects.
func ItemNumber(category, n int, singleCategory bool) string {
	if singleCategory {
		return strconv.Itoa(n)
	}
	return fmt.Sprintf("%d.%d", category, n)
}
