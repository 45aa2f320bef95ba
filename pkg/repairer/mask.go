package repairer

// maskCode returns src with the contents of string literals, char literals
// and comments replaced by spaces. Newlines are preserved so offsets and line
// numbers stay aligned with the original.
func maskCode(src string) string {
	out := []byte(src)
	const (
		stateCode = iota
		stateString
		stateChar
		stateLineComment
		stateBlockComment
	)
	state := stateCode
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch state {
		case stateCode:
			switch {
			case c == '"':
				state = stateString
			case c == '\'':
				state = stateChar
			case c == '/' && i+1 < len(out) && out[i+1] == '/':
				state = stateLineComment
				out[i] = ' '
			case c == '/' && i+1 < len(out) && out[i+1] == '*':
				state = stateBlockComment
				out[i] = ' '
			}
		case stateString:
			if c == '\\' && i+1 < len(out) {
				out[i] = ' '
				i++
				out[i] = ' '
				continue
			}
			if c == '"' {
				state = stateCode
				continue
			}
			if c != '\n' {
				out[i] = ' '
			}
		case stateChar:
			if c == '\\' && i+1 < len(out) {
				out[i] = ' '
				i++
				out[i] = ' '
				continue
			}
			if c == '\'' {
				state = stateCode
				continue
			}
			if c != '\n' {
				out[i] = ' '
			}
		case stateLineComment:
			if c == '\n' {
				state = stateCode
				continue
			}
			out[i] = ' '
		case stateBlockComment:
			if c == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i] = ' '
				i++
				out[i] = ' '
				state = stateCode
				continue
			}
			if c != '\n' {
				out[i] = ' '
			}
		}
	}
	return string(out)
}

// matchingBrace returns the index of the brace closing the one at open, or -1.
// The input must already be masked.
func matchingBrace(masked string, open int) int {
	depth := 0
	for i := open; i < len(masked); i++ {
		switch masked[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// lineOf returns the 1-based line number of offset in src.
func lineOf(src string, offset int) int {
	line := 1
	for i := 0; i < offset && i < len(src); i++ {
		if src[i] == '\n' {
			line++
		}
	}
	return line
}
