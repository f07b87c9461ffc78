package job

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var envAssignmentPattern = regexp.MustCompile(`^\s*(\w+)=`)

// EnvResolver resolves a user-provided env-text block into a flat
// key -> values map via a single probe invocation of a CommandRunner.
// See spec.md §4.2 for the exact probe-construction and parsing rules.
type EnvResolver struct {
	log *zap.SugaredLogger
}

func NewEnvResolver(log *zap.SugaredLogger) *EnvResolver {
	return &EnvResolver{log: log}
}

// Resolve builds the probe script, runs it once through runner, and
// parses its stdout into the resolved environment map. Only keys
// assigned in the probe's env text (the USER_ID/GROUP_ID built-ins plus
// envText's own lines) are retained in the result.
func (r *EnvResolver) Resolve(runner CommandRunner, envText string) (map[string][]string, error) {
	builtins := "USER_ID=$(id -u)\nGROUP_ID=$(id -g)"

	fullEnvText := builtins
	if envText != "" {
		fullEnvText = fmt.Sprintf("%s\n%s\n", builtins, envText)
	}

	var control strings.Builder
	for _, line := range strings.Split(fullEnvText, "\n") {
		m := envAssignmentPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[1]
		fmt.Fprintf(&control, "printf %s=; printf '%%s\\n' $%s\n", name, name)
	}

	script := fullEnvText + "\n" + control.String()

	out := runner.Run(script)
	if !out.Succeeded() {
		return nil, fmt.Errorf("resolving environment: probe failed: %s", probeFailureMessage(out))
	}
	if out.Stderr() != "" && r.log != nil {
		r.log.Warnw("env probe wrote to stderr", "stderr", out.Stderr())
	}

	intermediate := ParseEnvIntoMap(strings.TrimSpace(out.Stdout()))

	resolved := make(map[string][]string)
	for _, line := range strings.Split(fullEnvText, "\n") {
		key, _, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		if value, ok := intermediate[key]; ok {
			resolved[key] = value
		}
	}
	return resolved, nil
}

func probeFailureMessage(out Output) string {
	if out.Stderr() != "" {
		return out.Stderr()
	}
	return "probe exited with a non-zero status"
}

// ParseEnvIntoMap implements the flat key-to-value-list parser from
// spec.md §4.2: a single pass, character by character, tracking
// key-capture vs value-capture phases separated by '='.
func ParseEnvIntoMap(s string) map[string][]string {
	runes := []rune(s)
	result := make(map[string][]string)

	const (
		capturingKey = iota
		capturingValue
	)

	state := capturingKey
	var currentKey string
	lastSymbolStart := 0
	lastNewLine := 0

	for pos, ch := range runes {
		switch {
		case state == capturingKey && ch == '=':
			currentKey = string(runes[lastSymbolStart:pos])
			state = capturingValue
			lastSymbolStart = pos + 1
		case state == capturingValue && ch == '=':
			if lastSymbolStart < lastNewLine {
				result[currentKey] = strings.Split(string(runes[lastSymbolStart:lastNewLine]), "\n")
			} else {
				result[currentKey] = []string{}
			}
			currentKey = string(runes[lastNewLine+1 : pos])
			lastSymbolStart = pos + 1
		case ch == '\n':
			lastNewLine = pos
		}
	}

	if state == capturingValue {
		result[currentKey] = strings.Split(string(runes[lastSymbolStart:]), "\n")
	}

	return result
}
