package messages

import (
	"regexp"
	"strings"
)

var (
	altPattern = regexp.MustCompile(`\[[^\[^\]]*\]`)
	argPattern = regexp.MustCompile(`%[^%]*%`)
)

// Interpolate renders a server format string.
//
// %name% is replaced by args[name]; unknown names stay as written. %'text'%
// is a literal and renders as text. A bracketed [a|b] alternative keeps the
// side whose arguments have values, and [a] is kept only when its arguments
// have values.
func Interpolate(format string, args map[string]string) string {
	if args == nil || !strings.ContainsAny(format, "%|") {
		return format
	}

	resolved := altPattern.ReplaceAllStringFunc(format, func(match string) string {
		inner := match[1 : len(match)-1]
		if strings.Contains(inner, "|") {
			parts := strings.Split(inner, "|")
			if len(parts) != 2 {
				return ""
			}
			switch {
			case strings.Contains(parts[0], "%"):
				if hasArgValue(parts[0], args) {
					return parts[0]
				}
				return parts[1]
			case strings.Contains(parts[1], "%"):
				if hasArgValue(parts[1], args) {
					return parts[1]
				}
				return parts[0]
			default:
				return match
			}
		}
		if hasArgValue(inner, args) {
			return inner
		}
		if !strings.Contains(inner, "%") {
			return match
		}
		return ""
	})

	return argPattern.ReplaceAllStringFunc(resolved, func(match string) string {
		if isLiteral(match) {
			return match[2 : len(match)-2]
		}
		if v, ok := args[match[1:len(match)-1]]; ok {
			return v
		}
		return match
	})
}

func hasArgValue(s string, args map[string]string) bool {
	for _, match := range argPattern.FindAllString(s, -1) {
		if isLiteral(match) {
			return true
		}
		if args[match[1:len(match)-1]] != "" {
			return true
		}
	}
	return false
}

func isLiteral(match string) bool {
	return len(match) >= 4 && match[1] == '\'' && match[len(match)-2] == '\''
}
