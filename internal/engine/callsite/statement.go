package callsite

import (
	"regexp"
	"strings"
)

var (
	fencedBlock = regexp.MustCompile("(?s)```[^\n]*\n(.*?)(?:```|$)")
	whitespace  = regexp.MustCompile(`\s+`)
)

// CleanResponse returns the body of the first fenced code block in a model
// response, or the response unchanged when it has none.
func CleanResponse(response string) string {
	if match := fencedBlock.FindStringSubmatch(response); match != nil {
		return strings.TrimSpace(match[1])
	}
	return response
}

// CleanComments drops comment-only lines and trailing `#` comments. A first
// line consisting of a lone "." is dropped as well.
func CleanComments(code string) string {
	var lines []string
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines = append(lines, strings.TrimRight(stripInlineComment(line), " \t"))
	}
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == "." {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

func stripInlineComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '#':
			return line[:i]
		}
	}
	return line
}

// FirstStatement joins the leading lines of code until brackets balance and
// no line continuation or decorator is pending. Runs of whitespace collapse
// to one space, or are removed entirely when removeSpace is set.
func FirstStatement(code string, removeSpace bool) string {
	lines := strings.Split(strings.ReplaceAll(code, "\r\n", "\n"), "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == "." {
		lines = lines[1:]
	}
	if len(lines) == 0 || (len(lines) == 1 && lines[0] == "") {
		return ""
	}

	normalize := func(line string) string {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "@") {
			return strings.TrimLeft(line, " \t") + "\n"
		}
		line = strings.TrimRight(strings.TrimSpace(line), " \\")
		if removeSpace {
			return whitespace.ReplaceAllString(line, "")
		}
		return whitespace.ReplaceAllString(line, " ")
	}

	stmt := normalize(lines[0])
	lines = lines[1:]
	for unclosed(stmt) && len(lines) > 0 {
		stmt += normalize(lines[0])
		lines = lines[1:]
	}
	return stmt
}

func unclosed(stmt string) bool {
	if stmt == "" {
		return true
	}
	parts := strings.Split(strings.TrimRight(stmt, "\n"), "\n")
	last := parts[len(parts)-1]
	switch {
	case strings.HasPrefix(strings.TrimLeft(last, " \t"), "@"):
		return true
	case strings.Count(last, "(") > strings.Count(last, ")"):
		return true
	case strings.Count(last, "[") > strings.Count(last, "]"):
		return true
	case strings.Count(last, "{") > strings.Count(last, "}"):
		return true
	case strings.HasSuffix(strings.TrimRight(last, " \t"), "\\"):
		return true
	}
	return false
}
