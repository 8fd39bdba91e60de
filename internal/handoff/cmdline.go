package handoff

import "strings"

// QuoteCommandLine joins argv into a single raw command line, quoting each
// token so that TokenizeCommandLine recovers the original sequence. Quoting
// follows the conventional rules: backslashes are literal except when they
// precede a double quote, where they must be doubled.
func QuoteCommandLine(args []string) string {
	var b strings.Builder
	for i, arg := range args {
		if i > 0 {
			b.WriteByte(' ')
		}
		quoteArg(&b, arg)
	}
	return b.String()
}

func quoteArg(b *strings.Builder, arg string) {
	if arg != "" && !strings.ContainsAny(arg, " \t\"") {
		b.WriteString(arg)
		return
	}

	b.WriteByte('"')
	backslashes := 0
	for i := 0; i < len(arg); i++ {
		switch arg[i] {
		case '\\':
			backslashes++
		case '"':
			// Double pending backslashes, then escape the quote.
			b.WriteString(strings.Repeat("\\", backslashes*2+1))
			backslashes = 0
			b.WriteByte('"')
		default:
			if backslashes > 0 {
				b.WriteString(strings.Repeat("\\", backslashes))
				backslashes = 0
			}
			b.WriteByte(arg[i])
		}
	}
	// Backslashes before the closing quote must be doubled so the quote
	// survives tokenization.
	if backslashes > 0 {
		b.WriteString(strings.Repeat("\\", backslashes*2))
	}
	b.WriteByte('"')
}

// TokenizeCommandLine splits a raw command line into argv tokens.
// Rules: 2n backslashes before a quote yield n backslashes and toggle quote
// mode; 2n+1 backslashes before a quote yield n backslashes and a literal
// quote; backslashes elsewhere are literal; unquoted space and tab delimit.
func TokenizeCommandLine(cmdline string) []string {
	var args []string
	var cur strings.Builder
	inQuotes := false
	inToken := false

	for i := 0; i < len(cmdline); i++ {
		c := cmdline[i]
		switch {
		case c == '\\':
			// Count the run of backslashes and inspect what follows.
			j := i
			for j < len(cmdline) && cmdline[j] == '\\' {
				j++
			}
			n := j - i
			if j < len(cmdline) && cmdline[j] == '"' {
				cur.WriteString(strings.Repeat("\\", n/2))
				if n%2 == 1 {
					cur.WriteByte('"')
					j++ // Quote was escaped, consume it.
				}
			} else {
				cur.WriteString(strings.Repeat("\\", n))
			}
			inToken = true
			i = j - 1
		case c == '"':
			inQuotes = !inQuotes
			inToken = true
		case (c == ' ' || c == '\t') && !inQuotes:
			if inToken {
				args = append(args, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteByte(c)
			inToken = true
		}
	}
	if inToken {
		args = append(args, cur.String())
	}
	return args
}

// EncodeEnvBlock flattens "NAME=value" entries into a double-terminated
// string table: each entry NUL-terminated, with one extra NUL closing the
// block. An empty environment is the single terminator.
func EncodeEnvBlock(env []string) string {
	var b strings.Builder
	for _, entry := range env {
		b.WriteString(entry)
		b.WriteByte(0)
	}
	b.WriteByte(0)
	return b.String()
}

// ParseEnvBlock splits a double-terminated string table back into its
// "NAME=value" entries, preserving order. Tolerates a missing final
// terminator on malformed but recoverable input.
func ParseEnvBlock(block string) []string {
	var env []string
	for len(block) > 0 {
		i := strings.IndexByte(block, 0)
		if i < 0 {
			env = append(env, block)
			break
		}
		if i == 0 {
			break // Double terminator reached.
		}
		env = append(env, block[:i])
		block = block[i+1:]
	}
	return env
}
