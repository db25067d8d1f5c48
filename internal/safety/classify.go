// Package safety classifies model-suggested commands before they are shown as
// runnable or executed. Matching is structural — tokenized command plus
// arguments — so whitespace, quoting, and path-spelling variants of the
// canonical dangerous forms still match. Anything that cannot be tokenized is
// blocked outright.
package safety

import (
	"strings"
	"unicode"
)

// segment is one pipeline stage: the tokens between two shell operators.
type segment struct {
	tokens []string
	// pipedFrom is set when the segment receives the previous stage's stdout.
	pipedFrom bool
	// escalated is set when a sudo/doas wrapper was stripped off the front.
	escalated bool
}

func (s segment) base() string {
	if len(s.tokens) == 0 {
		return ""
	}
	tok := s.tokens[0]
	if idx := strings.LastIndexByte(tok, '/'); idx >= 0 {
		tok = tok[idx+1:]
	}
	return strings.ToLower(tok)
}

func (s segment) args() []string {
	if len(s.tokens) == 0 {
		return nil
	}
	return s.tokens[1:]
}

// Classify matches a command against the static rule table. It returns nil
// when nothing matches (the command is allowed) and the matched rule
// otherwise. Empty or unparseable input fails closed with a blocking rule.
func Classify(command string) *Rule {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" || strings.ContainsRune(trimmed, 0) {
		return &unparseableRule
	}
	if strings.ContainsAny(trimmed, "\n\r") {
		// Multi-line suggestions cannot be reasoned about as one command.
		return &unparseableRule
	}

	if isForkBomb(trimmed) {
		return &forkBombRule
	}

	tokens, substitution, err := lex(trimmed)
	if err != nil {
		return &unparseableRule
	}

	segments := splitSegments(tokens)
	if len(segments) == 0 {
		return &unparseableRule
	}

	if pipesDownloadIntoShell(segments) {
		return &pipeToShellRule
	}

	var warned *Rule
	for _, seg := range segments {
		for i := range ruleTable {
			rule := &ruleTable[i]
			if !rule.match(seg) {
				continue
			}
			if rule.Severity == SeverityBlock {
				if seg.escalated {
					return privilegeEscalationRule(rule)
				}
				return rule
			}
			if warned == nil {
				warned = rule
			}
		}
	}
	if warned != nil {
		return warned
	}
	if substitution {
		return &commandSubstitutionRule
	}
	return nil
}

// isForkBomb recognizes the `name(){ name|name& };name` self-spawning idiom
// for any function name, with whitespace squashed out first. Matched by shape
// rather than regexp: the name repeats four times, which needs backreferences
// RE2 does not have.
func isForkBomb(command string) bool {
	squashed := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, command)

	for idx := 0; ; {
		open := strings.Index(squashed[idx:], "(){")
		if open < 0 {
			return false
		}
		open += idx
		idx = open + 1

		name := trailingFuncName(squashed[:open])
		if name == "" {
			continue
		}
		body := squashed[open+len("(){"):]
		if strings.HasPrefix(body, name+"|"+name+"&};"+name) {
			return true
		}
	}
}

// trailingFuncName returns the longest run of function-name runes ending s.
func trailingFuncName(s string) string {
	start := len(s)
	for start > 0 && isFuncNameByte(s[start-1]) {
		start--
	}
	return s[start:]
}

func isFuncNameByte(c byte) bool {
	switch {
	case c == ':' || c == '_':
		return true
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return false
}

// pipesDownloadIntoShell catches `curl ... | sh` shapes: a downloader stage
// whose output feeds a later shell-interpreter stage.
func pipesDownloadIntoShell(segments []segment) bool {
	downloaded := false
	for _, seg := range segments {
		if downloaded && seg.pipedFrom && isShellInterpreter(seg.base()) {
			return true
		}
		switch seg.base() {
		case "curl", "wget", "fetch":
			downloaded = true
		}
	}
	return false
}

func isShellInterpreter(name string) bool {
	switch name {
	case "sh", "bash", "zsh", "ksh", "dash", "fish":
		return true
	}
	return false
}

// splitSegments cuts the token stream at shell operators and strips
// environment assignments and privilege/wrapper prefixes from each stage.
func splitSegments(tokens []token) []segment {
	var segments []segment
	current := segment{}
	flush := func(nextOp string) {
		if len(current.tokens) > 0 {
			segments = append(segments, stripWrappers(current))
		}
		current = segment{pipedFrom: nextOp == "|" || nextOp == "|&"}
	}

	for _, tok := range tokens {
		if tok.op {
			flush(tok.text)
			continue
		}
		current.tokens = append(current.tokens, tok.text)
	}
	flush("")
	return segments
}

// stripWrappers removes leading env assignments and wrapper commands (env,
// sudo, doas, nohup, time, command, builtin) so the rule table sees the
// underlying command. Stripping sudo/doas marks the segment as escalated.
func stripWrappers(seg segment) segment {
	tokens := seg.tokens
	for len(tokens) > 0 {
		tok := tokens[0]
		switch {
		case isEnvAssignment(tok):
			tokens = tokens[1:]
		case tok == "env":
			tokens = tokens[1:]
			for len(tokens) > 0 && (strings.HasPrefix(tokens[0], "-") || isEnvAssignment(tokens[0])) {
				tokens = tokens[1:]
			}
		case tok == "sudo" || tok == "doas":
			seg.escalated = true
			tokens = tokens[1:]
			for len(tokens) > 0 && strings.HasPrefix(tokens[0], "-") {
				tokens = tokens[1:]
			}
		case tok == "nohup" || tok == "time" || tok == "command" || tok == "builtin":
			tokens = tokens[1:]
			for len(tokens) > 0 && strings.HasPrefix(tokens[0], "-") {
				tokens = tokens[1:]
			}
		default:
			seg.tokens = tokens
			return seg
		}
	}
	seg.tokens = tokens
	return seg
}

func isEnvAssignment(tok string) bool {
	if strings.HasPrefix(tok, "-") {
		return false
	}
	eq := strings.IndexByte(tok, '=')
	if eq <= 0 {
		return false
	}
	return !strings.ContainsAny(tok[:eq], "/\\")
}

type token struct {
	text string
	op   bool
}

type lexError struct{ msg string }

func (e lexError) Error() string { return e.msg }

// lex splits a command line into words and operators with shell-style quote
// handling. It also reports whether the command contains command substitution
// outside single quotes.
func lex(input string) ([]token, bool, error) {
	var tokens []token
	var current strings.Builder
	haveWord := false
	substitution := false

	flushWord := func() {
		if haveWord {
			tokens = append(tokens, token{text: current.String()})
			current.Reset()
			haveWord = false
		}
	}

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			flushWord()

		case r == '\'':
			haveWord = true
			end := -1
			for j := i + 1; j < len(runes); j++ {
				if runes[j] == '\'' {
					end = j
					break
				}
			}
			if end < 0 {
				return nil, false, lexError{"unterminated single quote"}
			}
			current.WriteString(string(runes[i+1 : end]))
			i = end

		case r == '"':
			haveWord = true
			closed := false
			for j := i + 1; j < len(runes); j++ {
				c := runes[j]
				if c == '\\' && j+1 < len(runes) {
					current.WriteRune(runes[j+1])
					j++
					i = j
					continue
				}
				if c == '"' {
					closed = true
					i = j
					break
				}
				if c == '`' || (c == '$' && j+1 < len(runes) && runes[j+1] == '(') {
					substitution = true
				}
				current.WriteRune(c)
				i = j
			}
			if !closed {
				return nil, false, lexError{"unterminated double quote"}
			}

		case r == '\\':
			if i+1 >= len(runes) {
				return nil, false, lexError{"trailing backslash"}
			}
			haveWord = true
			current.WriteRune(runes[i+1])
			i++

		case r == '|' || r == '&' || r == ';':
			flushWord()
			op := string(r)
			if i+1 < len(runes) {
				next := runes[i+1]
				if (r == '|' && (next == '|' || next == '&')) || (r == '&' && next == '&') {
					op += string(next)
					i++
				}
			}
			tokens = append(tokens, token{text: op, op: true})

		case r == '`':
			substitution = true
			haveWord = true
			current.WriteRune(r)

		case r == '$' && i+1 < len(runes) && runes[i+1] == '(':
			substitution = true
			haveWord = true
			current.WriteRune(r)

		default:
			haveWord = true
			current.WriteRune(r)
		}
	}
	flushWord()
	return tokens, substitution, nil
}
