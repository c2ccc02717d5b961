package textsource

import (
	"encoding/hex"
	"strings"
	"unicode/utf16"
)

// scanContent pulls string operands of text showing operators out of a
// decoded page content stream. Each text object becomes its own line.
func scanContent(data []byte) string {
	var (
		out     strings.Builder
		line    strings.Builder
		pending []string
	)

	flush := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			out.WriteString(s)
			out.WriteByte('\n')
		}
		line.Reset()
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case c == '(':
			s, next := readLiteral(data, i)
			pending = append(pending, s)
			i = next
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			i += 2
		case c == '<':
			s, next := readHex(data, i)
			pending = append(pending, s)
			i = next
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case isSpace(c) || c == '[' || c == ']':
			i++
		default:
			start := i
			for i < len(data) && !isSpace(data[i]) && !isDelimiter(data[i]) {
				i++
			}
			if i == start {
				i++
				continue
			}
			switch op := string(data[start:i]); op {
			case "Tj", "TJ":
				line.WriteString(strings.Join(pending, ""))
				pending = pending[:0]
			case "'", "\"":
				flush()
				line.WriteString(strings.Join(pending, ""))
				pending = pending[:0]
			case "T*":
				flush()
			case "Td", "TD":
				if line.Len() > 0 {
					line.WriteByte(' ')
				}
			case "BT", "ET":
				flush()
				pending = pending[:0]
			default:
				// numbers and names are operands; any other operator
				// discards collected strings
				if !isOperand(op) {
					pending = pending[:0]
				}
			}
		}
	}
	flush()
	return out.String()
}

func isOperand(tok string) bool {
	if tok == "" {
		return false
	}
	if tok[0] == '/' {
		return true
	}
	for _, r := range tok {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' {
			return false
		}
	}
	return true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	return c == '(' || c == ')' || c == '[' || c == ']' || c == '<' || c == '>' || c == '{' || c == '}' || c == '%'
}

// readLiteral decodes a balanced string literal starting at data[start]
// and returns the index just past its closing parenthesis
func readLiteral(data []byte, start int) (string, int) {
	var b strings.Builder
	depth := 0
	i := start
	for i < len(data) {
		c := data[i]
		switch {
		case c == '\\' && i+1 < len(data):
			i++
			switch e := data[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b', 'f':
			case '\n':
			case '\r':
				if i+1 < len(data) && data[i+1] == '\n' {
					i++
				}
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for n := 0; n < 2 && i+1 < len(data) && data[i+1] >= '0' && data[i+1] <= '7'; n++ {
						i++
						v = v*8 + int(data[i]-'0')
					}
					b.WriteRune(rune(v & 0xff))
				} else {
					b.WriteByte(e)
				}
			}
		case c == '(':
			if depth > 0 {
				b.WriteByte(c)
			}
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return b.String(), i + 1
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
		i++
	}
	return b.String(), i
}

// readHex decodes a hex string starting at data[start] and returns the
// index just past its closing angle bracket. An odd final digit is padded
// with zero.
func readHex(data []byte, start int) (string, int) {
	digits := make([]byte, 0, 16)
	i := start + 1
	for ; i < len(data) && data[i] != '>'; i++ {
		if !isSpace(data[i]) {
			digits = append(digits, data[i])
		}
	}
	if i < len(data) {
		i++
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	raw, err := hex.DecodeString(string(digits))
	if err != nil {
		return "", i
	}
	return decodeHexBytes(raw), i
}

// decodeHexBytes reads UTF-16BE when the bytes carry a byte order mark or
// every code has a zero high byte. Anything else is one byte per character.
func decodeHexBytes(raw []byte) string {
	wide := len(raw) > 0 && len(raw)%2 == 0
	if len(raw) >= 2 && raw[0] == 0xfe && raw[1] == 0xff {
		raw = raw[2:]
	} else {
		for j := 0; wide && j < len(raw); j += 2 {
			wide = raw[j] == 0
		}
	}

	if wide {
		units := make([]uint16, 0, len(raw)/2)
		for j := 0; j+1 < len(raw); j += 2 {
			units = append(units, uint16(raw[j])<<8|uint16(raw[j+1]))
		}
		return string(utf16.Decode(units))
	}

	var b strings.Builder
	for _, c := range raw {
		b.WriteRune(rune(c))
	}
	return b.String()
}
