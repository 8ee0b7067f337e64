package pysyntax

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const tabSize = 8

var stringPrefixes = map[string]struct{}{
	"r": {}, "u": {}, "b": {}, "f": {}, "br": {}, "rb": {}, "fr": {}, "rf": {},
}

var closingBracket = map[string]string{")": "(", "]": "[", "}": "{"}

type bracket struct {
	text string
	pos  Pos
}

type lexer struct {
	file      string
	src       string
	off       int
	line      int
	lineStart int
	indents   []int
	brackets  []bracket
	tokens    []Token
}

// Tokenize splits src into tokens, emitting NEWLINE/INDENT/DEDENT the way the
// block-structured grammar expects. Newlines inside brackets are joined.
func Tokenize(file, src string) ([]Token, error) {
	src = strings.TrimPrefix(src, "\ufeff")
	src = strings.ReplaceAll(src, "\r\n", "\n")
	src = strings.ReplaceAll(src, "\r", "\n")
	lx := &lexer{file: file, src: src, line: 1, indents: []int{0}}
	if err := lx.run(); err != nil {
		return nil, err
	}
	return lx.tokens, nil
}

func (lx *lexer) pos() Pos {
	return Pos{Line: lx.line, Col: lx.off - lx.lineStart + 1}
}

func (lx *lexer) errorf(pos Pos, format string, args ...any) error {
	return &Error{File: lx.file, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (lx *lexer) emit(kind TokenKind, text string, pos Pos) {
	lx.tokens = append(lx.tokens, Token{Kind: kind, Text: text, Pos: pos})
}

func (lx *lexer) newline() {
	lx.off++
	lx.line++
	lx.lineStart = lx.off
}

func (lx *lexer) lastKind() TokenKind {
	if len(lx.tokens) == 0 {
		return NEWLINE
	}
	return lx.tokens[len(lx.tokens)-1].Kind
}

func (lx *lexer) run() error {
	atLineStart := true
	for {
		if atLineStart && len(lx.brackets) == 0 {
			blank, err := lx.indentation()
			if err != nil {
				return err
			}
			if blank {
				if lx.off >= len(lx.src) {
					return lx.finish()
				}
				continue
			}
			atLineStart = false
		}
		if lx.off >= len(lx.src) {
			return lx.finish()
		}

		c := lx.src[lx.off]
		switch {
		case c == ' ' || c == '\t' || c == '\f':
			lx.off++
		case c == '#':
			lx.skipComment()
		case c == '\\':
			if lx.off+1 >= len(lx.src) || lx.src[lx.off+1] != '\n' {
				return lx.errorf(lx.pos(), "unexpected character after line continuation character")
			}
			lx.off++
			lx.newline()
		case c == '\n':
			if len(lx.brackets) == 0 {
				lx.emit(NEWLINE, "", lx.pos())
				atLineStart = true
			}
			lx.newline()
		case c == '\'' || c == '"':
			if err := lx.scanString(lx.off, ""); err != nil {
				return err
			}
		case isDigit(c) || (c == '.' && lx.off+1 < len(lx.src) && isDigit(lx.src[lx.off+1])):
			lx.scanNumber()
		case c == '_' || c >= utf8.RuneSelf || unicode.IsLetter(rune(c)):
			if err := lx.scanName(); err != nil {
				return err
			}
		default:
			if err := lx.scanOperator(); err != nil {
				return err
			}
		}
	}
}

// indentation measures the leading whitespace of a logical line. It reports
// blank for lines holding only whitespace or a comment, which never affect
// the indent stack.
func (lx *lexer) indentation() (blank bool, err error) {
	width := 0
scan:
	for ; lx.off < len(lx.src); lx.off++ {
		switch lx.src[lx.off] {
		case ' ':
			width++
		case '\t':
			width = (width/tabSize + 1) * tabSize
		case '\f':
			width = 0
		default:
			break scan
		}
	}
	if lx.off >= len(lx.src) {
		return true, nil
	}
	switch lx.src[lx.off] {
	case '#':
		lx.skipComment()
		if lx.off < len(lx.src) {
			lx.newline()
		}
		return true, nil
	case '\n':
		lx.newline()
		return true, nil
	}

	pos := lx.pos()
	top := lx.indents[len(lx.indents)-1]
	switch {
	case width > top:
		lx.indents = append(lx.indents, width)
		lx.emit(INDENT, "", pos)
	case width < top:
		for width < lx.indents[len(lx.indents)-1] {
			lx.indents = lx.indents[:len(lx.indents)-1]
			lx.emit(DEDENT, "", pos)
		}
		if width != lx.indents[len(lx.indents)-1] {
			return false, lx.errorf(pos, "unindent does not match any outer indentation level")
		}
	}
	return false, nil
}

func (lx *lexer) finish() error {
	if n := len(lx.brackets); n > 0 {
		open := lx.brackets[n-1]
		return lx.errorf(open.pos, "'%s' was never closed", open.text)
	}
	pos := lx.pos()
	if k := lx.lastKind(); k != NEWLINE && k != DEDENT && k != INDENT {
		lx.emit(NEWLINE, "", pos)
	}
	for len(lx.indents) > 1 {
		lx.indents = lx.indents[:len(lx.indents)-1]
		lx.emit(DEDENT, "", pos)
	}
	lx.emit(EOF, "", pos)
	return nil
}

func (lx *lexer) skipComment() {
	for lx.off < len(lx.src) && lx.src[lx.off] != '\n' {
		lx.off++
	}
}

func (lx *lexer) scanName() error {
	pos := lx.pos()
	start := lx.off
	for lx.off < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.off:])
		if !isNameRune(r, lx.off > start) {
			break
		}
		lx.off += size
	}
	if lx.off == start {
		r, _ := utf8.DecodeRuneInString(lx.src[lx.off:])
		return lx.errorf(pos, "invalid character '%c' (U+%04X)", r, r)
	}
	text := lx.src[start:lx.off]
	if lx.off < len(lx.src) && (lx.src[lx.off] == '\'' || lx.src[lx.off] == '"') {
		if _, ok := stringPrefixes[strings.ToLower(text)]; ok {
			lx.off = start
			return lx.scanString(start+len(text), strings.ToLower(text))
		}
	}
	lx.emit(NAME, text, pos)
	return nil
}

func (lx *lexer) scanNumber() {
	pos := lx.pos()
	start := lx.off
	src := lx.src
	if src[lx.off] == '0' && lx.off+1 < len(src) && strings.ContainsRune("xXoObB", rune(src[lx.off+1])) {
		lx.off += 2
		for lx.off < len(src) && (isHexDigit(src[lx.off]) || src[lx.off] == '_') {
			lx.off++
		}
	} else {
		for lx.off < len(src) && (isDigit(src[lx.off]) || src[lx.off] == '_' || src[lx.off] == '.') {
			lx.off++
		}
		if lx.off < len(src) && (src[lx.off] == 'e' || src[lx.off] == 'E') {
			exp := lx.off + 1
			if exp < len(src) && (src[exp] == '+' || src[exp] == '-') {
				exp++
			}
			if exp < len(src) && isDigit(src[exp]) {
				lx.off = exp
				for lx.off < len(src) && (isDigit(src[lx.off]) || src[lx.off] == '_') {
					lx.off++
				}
			}
		}
		if lx.off < len(src) && (src[lx.off] == 'j' || src[lx.off] == 'J') {
			lx.off++
		}
	}
	lx.emit(NUMBER, src[start:lx.off], pos)
}

// scanString scans a string literal whose opening quote is at quoteAt and whose
// prefix starts at lx.off.
func (lx *lexer) scanString(quoteAt int, prefix string) error {
	pos := lx.pos()
	start := lx.off
	q := lx.src[quoteAt]
	triple := strings.HasPrefix(lx.src[quoteAt:], strings.Repeat(string(q), 3))
	delim := string(q)
	if triple {
		delim = strings.Repeat(string(q), 3)
	}
	bodyStart := quoteAt + len(delim)
	i, msg := lx.stringEnd(bodyStart, delim, strings.ContainsRune(prefix, 'f'))
	if msg != "" {
		return lx.errorf(pos, "%s", msg)
	}
	body := lx.src[bodyStart:i]
	end := i + len(delim)
	text := lx.src[start:end]

	value := body
	if !strings.ContainsRune(prefix, 'r') {
		value = unescape(body, strings.ContainsRune(prefix, 'b'))
	}
	lx.tokens = append(lx.tokens, Token{Kind: STRING, Text: text, Value: value, Prefix: prefix, Pos: pos})

	if nl := strings.LastIndexByte(text, '\n'); nl >= 0 {
		lx.line += strings.Count(text, "\n")
		lx.lineStart = start + nl + 1
	}
	lx.off = end
	return nil
}

// stringEnd returns the offset of the delimiter closing the literal body that
// starts at i, or an error message. In f-strings the delimiter only counts
// outside replacement fields, and literals nested in a field are skipped whole.
func (lx *lexer) stringEnd(i int, delim string, fstring bool) (int, string) {
	src := lx.src
	depth := 0
	for i < len(src) {
		c := src[i]
		if depth == 0 {
			switch {
			case c == '\\':
				i += 2
			case c == '\n' && len(delim) == 1:
				return 0, "unterminated string literal"
			case strings.HasPrefix(src[i:], delim):
				return i, ""
			case fstring && c == '{' && strings.HasPrefix(src[i:], "{{"):
				i += 2
			case fstring && c == '{':
				depth++
				i++
			default:
				i++
			}
			continue
		}
		switch c {
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		case '\'', '"':
			p := i
			for p > 0 && isASCIILetter(src[p-1]) {
				p--
			}
			nestedPrefix := strings.ToLower(src[p:i])
			if _, ok := stringPrefixes[nestedPrefix]; !ok {
				nestedPrefix = ""
			}
			nested := string(c)
			if strings.HasPrefix(src[i:], strings.Repeat(nested, 3)) {
				nested = strings.Repeat(nested, 3)
			}
			end, msg := lx.stringEnd(i+len(nested), nested, strings.ContainsRune(nestedPrefix, 'f'))
			if msg != "" {
				return 0, msg
			}
			i = end + len(nested)
			continue
		}
		i++
	}
	if len(delim) == 3 {
		return 0, "unterminated triple-quoted string literal"
	}
	return 0, "unterminated string literal"
}

// isNameRune reports whether r may appear in an identifier. Combining marks
// and connector punctuation are only valid after the first rune.
func isNameRune(r rune, continued bool) bool {
	if r == '_' || unicode.IsLetter(r) {
		return true
	}
	if !continued {
		return false
	}
	return unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc, unicode.Pc)
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func (lx *lexer) scanOperator() error {
	pos := lx.pos()
	for _, op := range operators {
		if !strings.HasPrefix(lx.src[lx.off:], op) {
			continue
		}
		switch op {
		case "(", "[", "{":
			lx.brackets = append(lx.brackets, bracket{text: op, pos: pos})
		case ")", "]", "}":
			n := len(lx.brackets)
			if n == 0 {
				return lx.errorf(pos, "unmatched '%s'", op)
			}
			if open := lx.brackets[n-1]; open.text != closingBracket[op] {
				return lx.errorf(pos, "closing parenthesis '%s' does not match opening parenthesis '%s'", op, open.text)
			}
			lx.brackets = lx.brackets[:n-1]
		}
		lx.off += len(op)
		lx.emit(OP, op, pos)
		return nil
	}
	r, _ := utf8.DecodeRuneInString(lx.src[lx.off:])
	return lx.errorf(pos, "invalid character '%c' (U+%04X)", r, r)
}

// unescape decodes backslash escapes in a non-raw literal body.
// Unknown escapes are kept verbatim.
func unescape(body string, bytesLit bool) string {
	if !strings.ContainsRune(body, '\\') {
		return body
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch e := body[i]; e {
		case '\n':
		case '\\', '\'', '"':
			sb.WriteByte(e)
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'a':
			sb.WriteByte('\a')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(body) && j < i+3 && body[j] >= '0' && body[j] <= '7' {
				j++
			}
			n, _ := strconv.ParseUint(body[i:j], 8, 32)
			writeCode(&sb, rune(n), bytesLit)
			i = j - 1
		case 'x':
			if n, ok := hexCode(body, i+1, 2); ok {
				writeCode(&sb, n, bytesLit)
				i += 2
				continue
			}
			sb.WriteString(`\x`)
		case 'u', 'U':
			width := 4
			if e == 'U' {
				width = 8
			}
			if n, ok := hexCode(body, i+1, width); ok && !bytesLit {
				sb.WriteRune(n)
				i += width
				continue
			}
			sb.WriteByte('\\')
			sb.WriteByte(e)
		default:
			sb.WriteByte('\\')
			sb.WriteByte(e)
		}
	}
	return sb.String()
}

func hexCode(s string, at, width int) (rune, bool) {
	if at+width > len(s) {
		return 0, false
	}
	n, err := strconv.ParseUint(s[at:at+width], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(n), true
}

func writeCode(sb *strings.Builder, r rune, bytesLit bool) {
	if bytesLit {
		sb.WriteByte(byte(r))
		return
	}
	sb.WriteRune(r)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
