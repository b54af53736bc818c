package repo

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreFile is the name of the per-repository ignore file.
const IgnoreFile = ".cryptogotignore"

// IgnoreChecker determines if a path should be ignored by "add".
type IgnoreChecker struct {
	patterns []ignorePattern
}

type ignorePattern struct {
	pattern  string
	negated  bool
	dirOnly  bool
	hasSlash bool // match against the full path rather than the base name
	regex    *regexp.Regexp
}

// NewIgnoreChecker creates an IgnoreChecker for the given repository root.
// The metadata directory and .git are always ignored; patterns from
// .cryptogotignore, if present, are applied after them.
func NewIgnoreChecker(repoRoot string) *IgnoreChecker {
	ic := &IgnoreChecker{patterns: []ignorePattern{
		{pattern: MetaDirName, dirOnly: true},
		{pattern: ".git", dirOnly: true},
	}}

	f, err := os.Open(filepath.Join(repoRoot, IgnoreFile))
	if err != nil {
		return ic
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if p := parseIgnoreLine(scanner.Text()); p != nil {
			ic.patterns = append(ic.patterns, *p)
		}
	}
	return ic
}

// parseIgnoreLine returns nil for blank lines and comments.
func parseIgnoreLine(line string) *ignorePattern {
	line = strings.TrimRight(line, " \t")
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	p := &ignorePattern{}
	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimRight(line, "/")
	}
	line = strings.TrimPrefix(line, "/")
	p.hasSlash = strings.Contains(line, "/")
	p.pattern = line
	if strings.Contains(line, "**") {
		if re, err := regexp.Compile(globToRegex(line)); err == nil {
			p.regex = re
		}
	}
	return p
}

// IsIgnored reports whether a slash path relative to the repository root
// is ignored. The last matching pattern wins so "!" can re-include.
func (ic *IgnoreChecker) IsIgnored(path string) bool {
	path = filepath.ToSlash(path)
	ignored := false
	for i := range ic.patterns {
		if ic.patterns[i].matches(path) {
			ignored = !ic.patterns[i].negated
		}
	}
	return ignored
}

func (p *ignorePattern) matches(path string) bool {
	if p.dirOnly {
		// The directory itself, anything below it, or the same name nested
		// anywhere when the pattern has no slash.
		if path == p.pattern || strings.HasPrefix(path, p.pattern+"/") {
			return true
		}
		if !p.hasSlash {
			for _, seg := range strings.Split(path, "/") {
				if p.match(seg) {
					return true
				}
			}
		}
		return false
	}
	if p.hasSlash {
		return p.match(path)
	}
	return p.match(pathBase(path))
}

func (p *ignorePattern) match(target string) bool {
	if p.regex != nil {
		return p.regex.MatchString(target)
	}
	matched, _ := filepath.Match(p.pattern, target)
	return matched
}

func pathBase(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

func globToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch {
		case ch == '*' && i+1 < len(pattern) && pattern[i+1] == '*':
			if i+2 < len(pattern) && pattern[i+2] == '/' {
				b.WriteString("(?:.*/)?")
				i += 2
			} else {
				b.WriteString(".*")
				i++
			}
		case ch == '*':
			b.WriteString("[^/]*")
		case ch == '?':
			b.WriteString("[^/]")
		default:
			if strings.ContainsRune(`.+()|[]{}^$\`, rune(ch)) {
				b.WriteByte('\\')
			}
			b.WriteByte(ch)
		}
	}
	b.WriteString("$")
	return b.String()
}
