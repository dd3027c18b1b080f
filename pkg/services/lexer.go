package services

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokWord        tokenKind = iota // keywords, plain and dotted identifiers, numbers
	tokQuotedIdent                  // `backtick` identifiers
	tokString                       // 'single' or "double" quoted literals
	tokOperator                     // comparison operators
	tokPunct                        // everything else, one rune each
)

// token is one lexical unit of HiveQL. For strings and quoted identifiers
// text holds the unquoted value.
type token struct {
	kind  tokenKind
	text  string
	upper string
	pos   int
	end   int
	// unterminated is set on strings, quoted identifiers and block comments
	// that run to the end of input.
	unterminated bool
}

func (t token) isWord(kw string) bool {
	return t.kind == tokWord && t.upper == kw
}

func (t token) isPunct(p string) bool {
	return t.kind == tokPunct && t.text == p
}

func (t token) isIdent() bool {
	return t.kind == tokWord || t.kind == tokQuotedIdent
}

// lexResult is the token stream of a statement plus lexical defects found
// while scanning.
type lexResult struct {
	tokens              []token
	unterminatedComment bool
}

// lex splits HiveQL text into tokens, dropping whitespace and comments.
func lex(src string) lexResult {
	var res lexResult
	rs := []rune(src)
	// byte offsets of each rune so token positions index into src
	offs := make([]int, len(rs)+1)
	b := 0
	for i, r := range rs {
		offs[i] = b
		b += len(string(r))
	}
	offs[len(rs)] = b

	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '-' && i+1 < len(rs) && rs[i+1] == '-':
			for i < len(rs) && rs[i] != '\n' {
				i++
			}

		case r == '/' && i+1 < len(rs) && rs[i+1] == '*':
			j := i + 2
			for j < len(rs) && !(rs[j] == '*' && j+1 < len(rs) && rs[j+1] == '/') {
				j++
			}
			if j >= len(rs) {
				res.unterminatedComment = true
				i = len(rs)
			} else {
				i = j + 2
			}

		case r == '\'' || r == '"':
			var sb strings.Builder
			j := i + 1
			closed := false
			for j < len(rs) {
				c := rs[j]
				if c == '\\' && j+1 < len(rs) {
					sb.WriteRune(rs[j+1])
					j += 2
					continue
				}
				if c == r {
					closed = true
					j++
					break
				}
				sb.WriteRune(c)
				j++
			}
			res.tokens = append(res.tokens, token{
				kind: tokString, text: sb.String(), upper: strings.ToUpper(sb.String()),
				pos: offs[i], end: offs[j], unterminated: !closed,
			})
			i = j

		case r == '`':
			var sb strings.Builder
			j := i + 1
			closed := false
			for j < len(rs) {
				if rs[j] == '`' {
					// `` escapes a backtick inside a quoted identifier
					if j+1 < len(rs) && rs[j+1] == '`' {
						sb.WriteRune('`')
						j += 2
						continue
					}
					closed = true
					j++
					break
				}
				sb.WriteRune(rs[j])
				j++
			}
			res.tokens = append(res.tokens, token{
				kind: tokQuotedIdent, text: sb.String(), upper: strings.ToUpper(sb.String()),
				pos: offs[i], end: offs[j], unterminated: !closed,
			})
			i = j

		case isWordRune(r):
			j := i
			for j < len(rs) && isWordRune(rs[j]) {
				j++
			}
			text := string(rs[i:j])
			res.tokens = append(res.tokens, token{
				kind: tokWord, text: text, upper: strings.ToUpper(text), pos: offs[i], end: offs[j],
			})
			i = j

		case r == '=' || r == '<' || r == '>' || r == '!':
			j := i + 1
			if i+2 < len(rs) && string(rs[i:i+3]) == "<=>" {
				j = i + 3
			} else if j < len(rs) {
				switch string(rs[i : j+1]) {
				case "<=", ">=", "<>", "!=", "==":
					j++
				}
			}
			text := string(rs[i:j])
			kind := tokOperator
			if text == "!" {
				kind = tokPunct
			}
			res.tokens = append(res.tokens, token{kind: kind, text: text, upper: text, pos: offs[i], end: offs[j]})
			i = j

		default:
			res.tokens = append(res.tokens, token{
				kind: tokPunct, text: string(r), upper: string(r), pos: offs[i], end: offs[i+1],
			})
			i++
		}
	}

	res.tokens = joinDotted(res.tokens)
	return res
}

func isWordRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// joinDotted merges `a . b` identifier chains into a single token so that
// db.table and `db`.`table` are one identifier.
func joinDotted(toks []token) []token {
	out := make([]token, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if !t.isIdent() {
			out = append(out, t)
			continue
		}
		for i+2 < len(toks) && toks[i+1].isPunct(".") && toks[i+2].isIdent() &&
			toks[i+1].pos == t.end && toks[i+2].pos == toks[i+1].end {
			next := toks[i+2]
			t.text += "." + next.text
			t.upper = strings.ToUpper(t.text)
			t.end = next.end
			if next.kind == tokQuotedIdent {
				t.kind = tokQuotedIdent
			}
			t.unterminated = next.unterminated
			i += 2
		}
		out = append(out, t)
	}
	return out
}
