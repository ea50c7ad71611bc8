package router

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Template parse errors.
var (
	ErrInvalidTemplate = errors.New("invalid path template")
)

// PathTemplate is a compiled URL template.
type PathTemplate struct {
	pattern   string
	regex     *regexp.Regexp
	variables []string // variables[i] is bound by capture group g<i>
	literals  int
}

type templateSegment struct {
	literal  string
	wildcard string // "*" or "**" when not a literal
	variable string // variable owning this segment, if any
}

// ParseTemplate compiles a URL template.
func ParseTemplate(pattern string) (*PathTemplate, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("%w %q: must start with /", ErrInvalidTemplate, pattern)
	}

	path, verb := splitVerb(pattern)

	t := &PathTemplate{pattern: pattern}

	var re strings.Builder
	re.WriteString("^")

	rest := strings.TrimPrefix(path, "/")
	for rest != "" {
		var token string
		if strings.HasPrefix(rest, "{") {
			end := strings.IndexByte(rest, '}')
			if end < 0 {
				return nil, fmt.Errorf("%w %q: unclosed variable", ErrInvalidTemplate, pattern)
			}
			token, rest = rest[:end+1], rest[end+1:]
			if err := t.compileVariable(&re, token); err != nil {
				return nil, fmt.Errorf("%w %q: %v", ErrInvalidTemplate, pattern, err)
			}
		} else {
			end := strings.IndexByte(rest, '/')
			if end < 0 {
				end = len(rest)
			}
			token, rest = rest[:end], rest[end:]
			if strings.ContainsAny(token, "{}") {
				return nil, fmt.Errorf("%w %q: misplaced brace", ErrInvalidTemplate, pattern)
			}
			t.writeSegments(&re, []templateSegment{parseSegment(token)}, true)
		}

		if rest == "" {
			break
		}
		if !strings.HasPrefix(rest, "/") {
			return nil, fmt.Errorf("%w %q: expected / after %s", ErrInvalidTemplate, pattern, token)
		}
		rest = rest[1:]
		if rest == "" {
			return nil, fmt.Errorf("%w %q: trailing slash", ErrInvalidTemplate, pattern)
		}
	}

	if path == "/" {
		re.WriteString("/")
	}
	if verb != "" {
		re.WriteString(":")
		re.WriteString(regexp.QuoteMeta(verb))
	}
	re.WriteString("$")

	regex, err := regexp.Compile(re.String())
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidTemplate, pattern, err)
	}
	t.regex = regex

	return t, nil
}

// splitVerb separates a trailing ":verb" from the last segment.
func splitVerb(pattern string) (path, verb string) {
	lastSlash := strings.LastIndexByte(pattern, '/')
	lastBrace := strings.LastIndexByte(pattern, '}')
	start := max(lastSlash, lastBrace)
	if i := strings.LastIndexByte(pattern[start+1:], ':'); i >= 0 {
		at := start + 1 + i
		return pattern[:at], pattern[at+1:]
	}
	return pattern, ""
}

func parseSegment(s string) templateSegment {
	if s == "*" || s == "**" {
		return templateSegment{wildcard: s}
	}
	return templateSegment{literal: s}
}

func (t *PathTemplate) compileVariable(re *strings.Builder, token string) error {
	body := token[1 : len(token)-1]
	name, sub, hasSub := strings.Cut(body, "=")
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, "{}/") {
		return fmt.Errorf("bad variable name %q", name)
	}
	for _, v := range t.variables {
		if v == name {
			return fmt.Errorf("duplicate variable %q", name)
		}
	}
	if !hasSub {
		sub = "*"
	}
	if sub == "" || strings.ContainsAny(sub, "{}") {
		return fmt.Errorf("bad sub-template for %q", name)
	}

	parts := strings.Split(sub, "/")
	segs := make([]templateSegment, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("empty segment in variable %q", name)
		}
		seg := parseSegment(p)
		seg.variable = name
		segs = append(segs, seg)
	}

	group := "g" + strconv.Itoa(len(t.variables))
	t.variables = append(t.variables, name)

	if len(segs) == 1 && segs[0].wildcard == "**" {
		re.WriteString("(?:/(?P<" + group + ">.*))?")
		return nil
	}

	re.WriteString("/(?P<" + group + ">")
	t.writeSegments(re, segs, false)
	re.WriteString(")")
	return nil
}

// writeSegments appends the regex for segs. When leadingSlash is false
// the first segment is written without its separator.
func (t *PathTemplate) writeSegments(re *strings.Builder, segs []templateSegment, leadingSlash bool) {
	for i, seg := range segs {
		sep := "/"
		if i == 0 && !leadingSlash {
			sep = ""
		}
		switch seg.wildcard {
		case "*":
			re.WriteString(sep + "[^/]+")
		case "**":
			if sep == "" {
				re.WriteString(".*")
			} else {
				re.WriteString("(?:/.*)?")
			}
		default:
			t.literals++
			re.WriteString(sep + regexp.QuoteMeta(seg.literal))
		}
	}
}

// Match reports whether path matches and returns the variable bindings.
// Bindings is non-nil on every match.
func (t *PathTemplate) Match(path string) (bool, map[string]string) {
	matches := t.regex.FindStringSubmatch(path)
	if matches == nil {
		return false, nil
	}

	bindings := make(map[string]string, len(t.variables))
	for i, group := range t.regex.SubexpNames() {
		if i == 0 || group == "" || i >= len(matches) {
			continue
		}
		idx, err := strconv.Atoi(group[1:])
		if err != nil || idx >= len(t.variables) {
			continue
		}
		bindings[t.variables[idx]] = matches[i]
	}

	return true, bindings
}

// Pattern returns the template source.
func (t *PathTemplate) Pattern() string {
	return t.pattern
}

// Variables returns the variable names in template order.
func (t *PathTemplate) Variables() []string {
	return append([]string(nil), t.variables...)
}
