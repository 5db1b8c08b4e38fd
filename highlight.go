package xlpatch

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultPalette maps highlight names to RGB fill colors.
var DefaultPalette = map[string]string{
	"green":  "90EE90",
	"yellow": "FFFF00",
	"orange": "FFA500",
	"red":    "FF6B6B",
	"blue":   "87CEEB",
	"purple": "DDA0DD",
}

// defaultHighlight is used for unknown color names.
const defaultHighlight = "yellow"

var hexColorRegex = regexp.MustCompile(`^#?(?:[0-9A-Fa-f]{2})?([0-9A-Fa-f]{6})$`)

// ResolveColor turns a palette name, "#RRGGBB", "RRGGBB" or "AARRGGBB" into an RGB
// hex string. Unknown names fall back to the default highlight.
func ResolveColor(palette map[string]string, color string) string {
	color = strings.TrimSpace(color)
	if m := hexColorRegex.FindStringSubmatch(color); m != nil {
		return strings.ToUpper(m[1])
	}
	if c, ok := palette[strings.ToLower(color)]; ok {
		return c
	}
	if c, ok := palette[defaultHighlight]; ok {
		return c
	}
	return DefaultPalette[defaultHighlight]
}

// RowHighlightRule colors every data row for which When evaluates to true.
// The expression sees "row" (header → cell text), "index" (0-based data row)
// and "values" (cell text by column).
type RowHighlightRule struct {
	When  string `json:"when" yaml:"when"`
	Color string `json:"color" yaml:"color"`
}

// ruleOptions are the compile options of every highlight expression. The
// built-in values() is disabled so "values" names the row's cells.
func ruleOptions() []expr.Option {
	return []expr.Option{expr.AllowUndefinedVariables(), expr.AsBool(), expr.DisableBuiltin("values")}
}

// ruleEvaluator compiles highlight expressions once per distinct text.
type ruleEvaluator struct {
	cache sync.Map // expression → *vm.Program
}

func (e *ruleEvaluator) compile(expression string) (*vm.Program, error) {
	if cached, ok := e.cache.Load(expression); ok {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(expression, ruleOptions()...)
	if err != nil {
		return nil, fmt.Errorf("compile highlight rule %q: %w", expression, err)
	}
	e.cache.Store(expression, program)
	return program, nil
}

// Match evaluates the rule against one data row.
func (e *ruleEvaluator) Match(rule RowHighlightRule, headers []string, index int, values []string) (bool, error) {
	program, err := e.compile(rule.When)
	if err != nil {
		return false, err
	}
	row := make(map[string]any, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		if i < len(values) {
			row[h] = values[i]
		} else {
			row[h] = ""
		}
	}
	env := map[string]any{"row": row, "index": index, "values": values}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate highlight rule %q: %w", rule.When, err)
	}
	matched, _ := out.(bool)
	return matched, nil
}
