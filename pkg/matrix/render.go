package matrix

import (
	"fmt"
	"maps"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// renderData is the dot passed to step templates. Commands can reference
// the environment name and the merged env, e.g. {{ .Environment }} or
// {{ .Env.CC }}.
type renderData struct {
	Workflow    string
	Environment string
	Env         map[string]string
}

// renderValue expands one workflow string (a command, a dir, or an env
// value) as a template. Strings without template actions pass through
// unchanged.
func renderValue(name, value string, data renderData) (string, error) {
	if !strings.Contains(value, "{{") {
		return value, nil
	}

	tmpl, err := template.New(name).Funcs(sprig.FuncMap()).Parse(value)
	if err != nil {
		return "", fmt.Errorf("parsing template for %s: %w", name, err)
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return out.String(), nil
}

// mergeEnv performs a shallow merge of overlay over base.
// Overlay keys override base keys.
func mergeEnv(base, overlay map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overlay))
	maps.Copy(merged, base)
	maps.Copy(merged, overlay)
	return merged
}

// processEnv returns the calling process environment as a map, so workflow
// env declarations can overlay it.
func processEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// flattenEnv converts a merged env map into the KEY=VALUE slice expected by
// the process launcher, in deterministic order.
func flattenEnv(env map[string]string) []string {
	flat := make([]string, 0, len(env))
	for k, v := range env {
		flat = append(flat, k+"="+v)
	}
	sort.Strings(flat)
	return flat
}
