package infrastructure

import "strings"

// shellSpecial lists characters that force quoting in a displayed command line
const shellSpecial = " \t\n\r'\"$`\\!*?[](){}|;<>&~#%"

// shellQuote quotes s for display. exec.Command never sees the result.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, shellSpecial) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// commandLine renders a notifier invocation for the logs
func commandLine(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shellQuote(name))
	for _, arg := range args {
		parts = append(parts, shellQuote(arg))
	}
	return strings.Join(parts, " ")
}
