package ports

import (
	"regexp"
	"strconv"
	"strings"
)

// Placeholder is replaced with the assigned port in argument vectors, health
// check targets and environment values.
const Placeholder = "{{port}}"

// Substitute replaces every Placeholder in s with port.
func Substitute(s string, port int) string {
	return strings.ReplaceAll(s, Placeholder, strconv.Itoa(port))
}

// SubstituteAll applies Substitute to every element and returns a new slice.
func SubstituteAll(args []string, port int) []string {
	if args == nil {
		return nil
	}
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = Substitute(a, port)
	}
	return out
}

// RewriteURL points a health check target at the assigned port. Besides the
// placeholder, a literal ":<declared>" host port is rewritten, so
// "http://localhost:8005/health" follows the service to 8006.
func RewriteURL(raw string, declared, assigned int) string {
	out := Substitute(raw, assigned)
	if declared == assigned || declared <= 0 {
		return out
	}
	re := regexp.MustCompile(`:` + strconv.Itoa(declared) + `\b`)
	return re.ReplaceAllString(out, ":"+strconv.Itoa(assigned))
}

// RewriteEnv returns env with key set to port, replacing an existing entry.
// env uses the KEY=value form of os.Environ.
func RewriteEnv(env []string, key string, port int) []string {
	return SetEnv(env, key, strconv.Itoa(port))
}

// SetEnv returns a copy of env with key set to value.
func SetEnv(env []string, key, value string) []string {
	out := make([]string, 0, len(env)+1)
	prefix := key + "="
	replaced := false
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			if !replaced {
				out = append(out, prefix+value)
				replaced = true
			}
			continue
		}
		out = append(out, kv)
	}
	if !replaced {
		out = append(out, prefix+value)
	}
	return out
}
