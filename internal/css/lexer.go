package css

import (
	"bytes"
	"fmt"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

type token struct {
	tt   css.TokenType
	data string
}

// tokenize lexes text into tokens, comments removed. The lexer is lossless so
// concatenating the token data reproduces the input minus its comments.
func tokenize(text string) []token {
	toks, _ := lex(text)
	return toks
}

// lex is tokenize reporting a comment left open at the end of text.
func lex(text string) ([]token, error) {
	var (
		l    = css.NewLexer(parse.NewInputString(text))
		toks []token
		err  error
	)
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			return toks, err
		case css.CommentToken:
			if len(data) < 4 || !bytes.HasSuffix(data, []byte("*/")) {
				err = fmt.Errorf("%w: unterminated comment", ErrMalformedRule)
			}
			continue
		}
		toks = append(toks, token{tt: tt, data: string(data)})
	}
}

func join(toks []token) string {
	var sb strings.Builder
	for _, t := range toks {
		sb.WriteString(t.data)
	}
	return sb.String()
}

func opens(tt css.TokenType) bool {
	return tt == css.LeftParenthesisToken || tt == css.FunctionToken || tt == css.LeftBracketToken
}

func closes(tt css.TokenType) bool {
	return tt == css.RightParenthesisToken || tt == css.RightBracketToken
}

// scanPrelude returns the index of the first '{' or ';' at nesting depth zero
// at or after i, or len(toks) when there is none.
func scanPrelude(toks []token, i int) int {
	depth := 0
	for ; i < len(toks); i++ {
		switch tt := toks[i].tt; {
		case opens(tt):
			depth++
		case closes(tt):
			if depth > 0 {
				depth--
			}
		case tt == css.LeftBraceToken, tt == css.SemicolonToken:
			if depth == 0 {
				return i
			}
		}
	}
	return i
}

// matchBrace returns the index of the '}' closing the '{' at open, or
// len(toks) when the block is unterminated.
func matchBrace(toks []token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i].tt {
		case css.LeftBraceToken:
			depth++
		case css.RightBraceToken:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(toks)
}

// split cuts toks at every sep token found at nesting depth zero. The
// separators themselves are not part of the returned segments.
func split(toks []token, sep css.TokenType) [][]token {
	var (
		parts [][]token
		depth int
		start int
	)
	for i, t := range toks {
		switch {
		case opens(t.tt), t.tt == css.LeftBraceToken:
			depth++
		case closes(t.tt), t.tt == css.RightBraceToken:
			if depth > 0 {
				depth--
			}
		case t.tt == sep && depth == 0:
			parts = append(parts, toks[start:i])
			start = i + 1
		}
	}
	return append(parts, toks[start:])
}
