// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package schema implements the naming-schema processor and its template
// transformer, the deterministic core that maps a group name into a
// canonical course shape and member-role table.
package schema

import (
	"regexp"
	"strconv"
	"strings"
)

// Vars is the variable bag a template is expanded against: "name",
// "group_id", and the schema's regex capture names.
type Vars map[string]string

// TransformFunc applies one named transform to a value, with its colon-
// separated arguments. Unknown transforms are identity, so schemas remain
// forward-compatible.
type TransformFunc func(value string, args []string, tables map[string]map[string]string) string

var transforms = map[string]TransformFunc{
	"upper": func(v string, _ []string, _ map[string]map[string]string) string {
		return strings.ToUpper(v)
	},
	"lower": func(v string, _ []string, _ map[string]map[string]string) string {
		return strings.ToLower(v)
	},
	"ucfirst": func(v string, _ []string, _ map[string]map[string]string) string {
		return ucfirst(v)
	},
	"titlecase": func(v string, _ []string, _ map[string]map[string]string) string {
		words := strings.FieldsFunc(v, func(r rune) bool { return r == '_' || r == '-' })
		for i, w := range words {
			words[i] = ucfirst(w)
		}
		return strings.Join(words, " ")
	},
	"replace": func(v string, args []string, _ map[string]map[string]string) string {
		if len(args) < 2 {
			return v
		}
		return strings.ReplaceAll(v, args[0], args[1])
	},
	"truncate": func(v string, args []string, _ map[string]map[string]string) string {
		if len(args) < 1 {
			return v
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 || len(v) <= n {
			return v
		}
		if n == 0 {
			return "…"
		}
		return v[:n] + "…"
	},
	"extract_grade": func(v string, _ []string, _ map[string]map[string]string) string {
		re := regexp.MustCompile(`^\d+`)
		return re.FindString(v)
	},
	"map": func(v string, args []string, tables map[string]map[string]string) string {
		if len(args) < 1 {
			return ucfirst(v)
		}
		table, ok := tables[args[0]]
		if !ok {
			return ucfirst(v)
		}
		mapped, ok := table[v]
		if !ok {
			return ucfirst(v)
		}
		return mapped
	},
	"default": func(v string, args []string, _ map[string]map[string]string) string {
		if v != "" || len(args) < 1 {
			return v
		}
		return args[0]
	},
	"clean": func(v string, _ []string, _ map[string]map[string]string) string {
		re := regexp.MustCompile(`[^a-zA-Z0-9_-]`)
		return re.ReplaceAllString(v, "")
	},
	"slug": func(v string, _ []string, _ map[string]map[string]string) string {
		lower := strings.ToLower(v)
		re := regexp.MustCompile(`[^a-z0-9]+`)
		slug := re.ReplaceAllString(lower, "-")
		return strings.Trim(slug, "-")
	},
	"pad": func(v string, args []string, _ map[string]map[string]string) string {
		if len(args) < 1 {
			return v
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || len(v) >= n {
			return v
		}
		return strings.Repeat("0", n-len(v)) + v
	},
}

func ucfirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var templateToken = regexp.MustCompile(`\{([^}]+)\}`)

// Transformer expands `{var|t1|t2:arg:arg|...}` occurrences in a template
// against the given variable bag. Transformers apply left-to-right.
// LookupTables supplies the named dictionaries consulted by map:<name>.
type Transformer struct {
	LookupTables map[string]map[string]string
}

// NewTransformer returns a Transformer with the given lookup tables;
// a nil map is fine, map: falls back to ucfirst.
func NewTransformer(tables map[string]map[string]string) *Transformer {
	if tables == nil {
		tables = map[string]map[string]string{}
	}
	return &Transformer{LookupTables: tables}
}

// Expand replaces every `{...}` occurrence in template with the resolved,
// transformed value.
func (t *Transformer) Expand(template string, vars Vars) string {
	return templateToken.ReplaceAllStringFunc(template, func(match string) string {
		inner := match[1 : len(match)-1]
		parts := strings.Split(inner, "|")

		value := vars[parts[0]]
		for _, step := range parts[1:] {
			name, args := parseStep(step)
			fn, ok := transforms[name]
			if !ok {
				continue // unknown transformer: identity
			}
			value = fn(value, args, t.LookupTables)
		}
		return value
	})
}

func parseStep(step string) (string, []string) {
	parts := strings.Split(step, ":")
	return parts[0], parts[1:]
}
