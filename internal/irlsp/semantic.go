package irlsp

import (
	"strings"
)

// SemanticToken is one LSP semantic token entry (0-based line/column,
// token-type and modifier indices into SemanticTokenTypes/Modifiers).
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int
	TokenModifiers int
}

var keywords = map[string]bool{
	"fun": true, "reg": true, "goto": true, "if": true, "nop": true,
	"phi": true, "fun_arg": true, "fun_result": true,
}

// collectSemanticTokens walks the raw source text line by line — the IR
// format has no nested expressions worth an AST walk, so a flat lexical
// scan of each line, in source order, is enough to produce a legend-valid
// token stream.
func collectSemanticTokens(text string) []SemanticToken {
	var tokens []SemanticToken
	for lineNum, line := range strings.Split(text, "\n") {
		tokens = append(tokens, tokenizeLine(uint32(lineNum), line)...)
	}
	return tokens
}

func tokenizeLine(lineNum uint32, line string) []SemanticToken {
	var tokens []SemanticToken

	i := 0
	n := len(line)
	for i < n {
		c := line[i]

		switch {
		case c == '#':
			tokens = append(tokens, SemanticToken{
				Line: lineNum, StartChar: uint32(i), Length: uint32(n - i),
				TokenType: indexOf("comment", SemanticTokenTypes),
			})
			i = n

		case c == ' ' || c == '\t':
			i++

		case c == '_' && i+1 < n && isDigit(line[i+1]):
			start := i
			i++
			for i < n && isDigit(line[i]) {
				i++
			}
			labelEnd := i
			if i < n && line[i] == ':' {
				i++
			}
			tokens = append(tokens, SemanticToken{
				Line: lineNum, StartChar: uint32(start), Length: uint32(labelEnd - start),
				TokenType: indexOf("label", SemanticTokenTypes),
			})

		case isDigit(c):
			start := i
			for i < n && isDigit(line[i]) {
				i++
			}
			tokens = append(tokens, SemanticToken{
				Line: lineNum, StartChar: uint32(start), Length: uint32(i - start),
				TokenType: indexOf("number", SemanticTokenTypes),
			})

		case isIdentStart(c):
			start := i
			for i < n && isIdentCont(line[i]) {
				i++
			}
			word := line[start:i]
			tokType := "variable"
			if keywords[word] {
				tokType = "keyword"
			} else if word == "phi_fun_inp" {
				tokType = "keyword"
			}
			tokens = append(tokens, SemanticToken{
				Line: lineNum, StartChar: uint32(start), Length: uint32(i - start),
				TokenType: indexOf(tokType, SemanticTokenTypes),
			})

		case c == ':' && i+1 < n && line[i+1] == '=':
			tokens = append(tokens, SemanticToken{
				Line: lineNum, StartChar: uint32(i), Length: 2,
				TokenType: indexOf("operator", SemanticTokenTypes),
			})
			i += 2

		case c == '+' || c == '-' || c == '*' || c == '/':
			tokens = append(tokens, SemanticToken{
				Line: lineNum, StartChar: uint32(i), Length: 1,
				TokenType: indexOf("operator", SemanticTokenTypes),
			})
			i++

		default:
			i++
		}
	}

	return tokens
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '_'
}

func indexOf(target string, list []string) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return -1
}
