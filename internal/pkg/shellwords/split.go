// Package shellwords splits a command line into words the way a shell would,
// without expansion.
package shellwords

import (
	"fmt"
	"strings"
)

// Split breaks line into words. Single and double quotes group
// words; a backslash escapes the next rune outside single quotes.
func Split(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		current.WriteRune('\\')
	}
	if inWord {
		args = append(args, current.String())
	}
	return args, nil
}
