package xlpatch

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
)

// Severity indicates the severity of a validation issue.
type Severity int

const (
	SeverityError   Severity = iota // request will be rejected
	SeverityWarning                 // request runs but may not do what was meant
)

// ValidationIssue is a single problem found in a change set.
type ValidationIssue struct {
	Severity Severity
	Field    string
	Message  string
}

// String formats the issue as "[ERROR] deletedColumns: message" or "[WARN] ...".
func (v ValidationIssue) String() string {
	sev := "ERROR"
	if v.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s: %s", sev, v.Field, v.Message)
}

// ValidateChangeSet checks a change set without a document. Checks that
// need the row count run in Validate.
func ValidateChangeSet(c ChangeSet) []ValidationIssue {
	var issues []ValidationIssue
	issues = append(issues, validateColumns(c)...)
	issues = append(issues, validateRowKeys(c)...)
	issues = append(issues, validateRules(c)...)
	if c.Path != PathAuto && c.Path != PathHost {
		issues = append(issues, errorIssue("path", "unknown execution path %q", c.Path))
	}
	return issues
}

// Validate opens the sheet and checks c against it.
func Validate(path, sheet string, c ChangeSet) ([]ValidationIssue, error) {
	doc, err := OpenDocument(path, sheet)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	rows, err := doc.DataRowCount()
	if err != nil {
		return nil, err
	}
	_, cols, err := doc.Dimensions()
	if err != nil {
		return nil, err
	}

	issues := ValidateChangeSet(c)
	for _, col := range c.DeletedColumns {
		if col >= cols {
			issues = append(issues, warnIssue("deletedColumns", "column %s is beyond the used range (%d columns)", ColToName(col), cols))
		}
	}
	if c.HasRowOps() {
		m, _, err := ComposeRowMapping(c, rows)
		if err != nil {
			issues = append(issues, issueFromError(err))
		} else if dups := duplicateSources(m); len(dups) > 0 {
			issues = append(issues, warnIssue("rowMapping", "rows %v appear more than once; references follow the last copy", dups))
		}
	}
	return issues, nil
}

func validateColumns(c ChangeSet) []ValidationIssue {
	var issues []ValidationIssue
	seen := make(map[int]bool)
	for _, col := range c.DeletedColumns {
		if col < 0 {
			issues = append(issues, errorIssue("deletedColumns", "negative column %d", col))
		} else if seen[col] {
			issues = append(issues, warnIssue("deletedColumns", "column %s listed twice", ColToName(col)))
		}
		seen[col] = true
	}
	for i, ins := range c.InsertedColumns {
		if ins.Position < 0 {
			issues = append(issues, errorIssue("insertedColumns", "insert %d: negative position %d", i, ins.Position))
		}
		if ins.Count < 0 {
			issues = append(issues, errorIssue("insertedColumns", "insert %d: negative count %d", i, ins.Count))
		}
		if ins.SourceColumn != nil && slices.Contains(c.DeletedColumns, *ins.SourceColumn) {
			issues = append(issues, warnIssue("insertedColumns", "insert %d: source column %s is deleted; formatting will not be copied", i, ColToName(*ins.SourceColumn)))
		}
		if len(ins.Headers) > max(ins.Count, 1) {
			issues = append(issues, warnIssue("insertedColumns", "insert %d: %d headers for %d columns", i, len(ins.Headers), max(ins.Count, 1)))
		}
	}
	if len(c.ColumnOrder) > 0 {
		if err := checkPermutation(c.ColumnOrder, len(c.ColumnOrder)); err != nil {
			issues = append(issues, errorIssue("columnOrder", "%v", err))
		}
	}
	if len(c.RowMapping) > 0 && (len(c.DeletedRows) > 0 || len(c.InsertedRows) > 0 || len(c.RowOrder) > 0) {
		issues = append(issues, warnIssue("rowMapping", "explicit mapping overrides deletedRows, insertedRows and rowOrder"))
	}
	for _, r := range c.HiddenRows {
		if r < 0 {
			issues = append(issues, errorIssue("hiddenRows", "negative row %d", r))
		}
	}
	for _, col := range c.HiddenColumns {
		if col < 0 {
			issues = append(issues, errorIssue("hiddenColumns", "negative column %d", col))
		}
	}
	return issues
}

func validateRowKeys(c ChangeSet) []ValidationIssue {
	var issues []ValidationIssue
	if _, err := c.ParsedEdits(); err != nil {
		issues = append(issues, issueFromError(err))
	}
	if _, err := c.parsedRowHighlights(); err != nil {
		issues = append(issues, issueFromError(err))
	}
	for key := range c.CellHighlights {
		if _, _, err := parseRowColKey(key); err != nil {
			issues = append(issues, errorIssue("cellHighlights", "%v", err))
		}
	}
	return issues
}

// validateRules compiles every highlight expression.
func validateRules(c ChangeSet) []ValidationIssue {
	var issues []ValidationIssue
	for i, rule := range c.RowHighlightRules {
		if strings.TrimSpace(rule.When) == "" {
			issues = append(issues, errorIssue("rowHighlightRules", "rule %d has an empty condition", i))
			continue
		}
		if _, err := expr.Compile(rule.When, ruleOptions()...); err != nil {
			issues = append(issues, errorIssue("rowHighlightRules", "rule %d has invalid expression %q: %v", i, rule.When, err))
		}
	}
	return issues
}

// validateRequest rejects requests that cannot run before anything is
// opened for writing.
func validateRequest(req Request) error {
	switch {
	case req.InputPath == "":
		return NewValidationError("inputPath", errors.New("is empty"))
	case req.OutputPath == "":
		return NewValidationError("outputPath", errors.New("is empty"))
	case req.Sheet == "":
		return NewValidationError("sheet", errors.New("is empty"))
	}
	if _, err := os.Stat(req.InputPath); err != nil {
		return NewValidationError("inputPath", err)
	}
	if req.OriginalPath != "" {
		if _, err := os.Stat(req.OriginalPath); err != nil {
			return NewValidationError("originalPath", err)
		}
	}
	for _, issue := range ValidateChangeSet(req.Changes) {
		if issue.Severity == SeverityError {
			return NewValidationError(issue.Field, errors.New(issue.Message))
		}
	}
	return nil
}

func errorIssue(field, format string, args ...any) ValidationIssue {
	return ValidationIssue{Severity: SeverityError, Field: field, Message: fmt.Sprintf(format, args...)}
}

func warnIssue(field, format string, args ...any) ValidationIssue {
	return ValidationIssue{Severity: SeverityWarning, Field: field, Message: fmt.Sprintf(format, args...)}
}

func issueFromError(err error) ValidationIssue {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ValidationIssue{Severity: SeverityError, Field: ve.Field, Message: ve.Err.Error()}
	}
	return ValidationIssue{Severity: SeverityError, Message: err.Error()}
}
