package xlpatch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FormattingRule is one conditional-formatting scope with the rule bodies
// attached to it. Bodies are opaque apart from their formula fields.
type FormattingRule struct {
	Scope string
	Rules []excelize.ConditionalFormatOptions
}

// AdjustFormattingRules returns a new rule collection with every scope and
// every embedded formula shifted through m. A scope that no longer covers
// any cell is dropped together with all of its rule bodies.
func AdjustFormattingRules(rules []FormattingRule, sheet string, m RefMapper) (kept []FormattingRule, dropped []string) {
	for _, r := range rules {
		scope, ok := ShiftSqref(r.Scope, m)
		if !ok {
			dropped = append(dropped, r.Scope)
			continue
		}
		bodies := make([]excelize.ConditionalFormatOptions, len(r.Rules))
		for i, body := range r.Rules {
			bodies[i] = rewriteRuleFormulas(body, sheet, m)
		}
		kept = append(kept, FormattingRule{Scope: scope, Rules: bodies})
	}
	return kept, dropped
}

// AdjustRulesForColumns is AdjustFormattingRules over a column shift.
func AdjustRulesForColumns(rules []FormattingRule, sheet string, shift ColumnShift) ([]FormattingRule, []string) {
	if shift.IsIdentity() {
		return rules, nil
	}
	return AdjustFormattingRules(rules, sheet, shift)
}

// AdjustRulesForRows is AdjustFormattingRules over a row mapping.
func AdjustRulesForRows(rules []FormattingRule, sheet string, shift RowShift) ([]FormattingRule, []string) {
	return AdjustFormattingRules(rules, sheet, shift)
}

// rewriteRuleFormulas rewrites the fields excelize exposes as formula text.
func rewriteRuleFormulas(body excelize.ConditionalFormatOptions, sheet string, m RefMapper) excelize.ConditionalFormatOptions {
	if body.Type == "formula" {
		body.Criteria = RewriteFormula(body.Criteria, sheet, m)
	}
	body.Value = RewriteFormula(body.Value, sheet, m)
	body.MinValue = RewriteFormula(body.MinValue, sheet, m)
	body.MidValue = RewriteFormula(body.MidValue, sheet, m)
	body.MaxValue = RewriteFormula(body.MaxValue, sheet, m)
	return body
}

// ConditionalFormats reads the sheet's rules ordered by scope, so that
// rewrites are deterministic.
func (d *Document) ConditionalFormats() ([]FormattingRule, error) {
	byScope, err := d.file.GetConditionalFormats(d.sheet)
	if err != nil {
		return nil, fmt.Errorf("read conditional formats: %w", err)
	}
	out := make([]FormattingRule, 0, len(byScope))
	for scope, opts := range byScope {
		out = append(out, FormattingRule{Scope: scope, Rules: opts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scope < out[j].Scope })
	return out, nil
}

// ReplaceConditionalFormats removes every rule currently on the sheet and
// writes rules instead.
func (d *Document) ReplaceConditionalFormats(rules []FormattingRule) error {
	current, err := d.file.GetConditionalFormats(d.sheet)
	if err != nil {
		return fmt.Errorf("read conditional formats: %w", err)
	}
	for scope := range current {
		if err := d.file.UnsetConditionalFormat(d.sheet, scope); err != nil {
			return fmt.Errorf("unset conditional format %s: %w", scope, err)
		}
	}
	for _, r := range rules {
		if len(r.Rules) == 0 {
			continue
		}
		if err := d.file.SetConditionalFormat(d.sheet, r.Scope, r.Rules); err != nil {
			return fmt.Errorf("set conditional format %s: %w", r.Scope, err)
		}
	}
	return nil
}

// ScopeSet returns the scopes of rules, sorted and deduplicated.
func ScopeSet(rules []FormattingRule) []string {
	seen := make(map[string]bool, len(rules))
	var out []string
	for _, r := range rules {
		s := strings.Join(strings.Fields(r.Scope), " ")
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
