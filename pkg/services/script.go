package services

import (
	"strings"
)

// SplitScript splits a HiveQL script into statements on top-level semicolons.
// Semicolons inside string literals, quoted identifiers and comments do not
// split. Segments holding only whitespace or comments are dropped.
func SplitScript(script string) []string {
	lx := lex(script)

	var stmts []string
	start := 0
	count := 0
	flush := func(end int) {
		if count > 0 {
			if s := strings.TrimSpace(script[start:end]); s != "" {
				stmts = append(stmts, s)
			}
		}
		count = 0
	}

	for _, t := range lx.tokens {
		if t.isPunct(";") {
			flush(t.pos)
			start = t.end
			continue
		}
		count++
	}
	flush(len(script))
	return stmts
}
