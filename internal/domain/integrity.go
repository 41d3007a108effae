package domain

import (
	"slices"
	"strings"
)

// IssueType classifies a data-integrity problem.
type IssueType string

const (
	IssueConflict              IssueType = "conflict"
	IssueInconsistency         IssueType = "inconsistency"
	IssueMissingData           IssueType = "missing_data"
	IssueInvalidReference      IssueType = "invalid_reference"
	IssueBusinessRuleViolation IssueType = "business_rule_violation"
)

// Severity represents the business impact of an issue.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// FixKind names a mechanical correction the auto-fixer knows how to apply.
type FixKind string

const (
	FixNone         FixKind = ""
	FixClampAdults  FixKind = "clamp_adults"
	FixClampDeposit FixKind = "clamp_deposit"
)

// DataIntegrityIssue is one failed consistency check.
type DataIntegrityIssue struct {
	Type           IssueType `json:"type"`
	Severity       Severity  `json:"severity"`
	Description    string    `json:"description"`
	AffectedFields []string  `json:"affected_fields"`
	SuggestedFix   string    `json:"suggested_fix,omitempty"`
	AutoFixable    bool      `json:"auto_fixable"`
	Fix            FixKind   `json:"fix,omitempty"`
	RelatedRecords []string  `json:"related_records,omitempty"`
}

// Escalates reports whether the issue is severe enough to need manager review.
func (i DataIntegrityIssue) Escalates() bool {
	return i.Severity.AtLeast(SeverityHigh)
}

// Blocking reports whether the record cannot be reasoned about at all.
func (i DataIntegrityIssue) Blocking() bool {
	return i.Type == IssueInvalidReference && i.Severity == SeverityCritical
}

// DataIntegrityResult is the outcome of a full integrity check.
type DataIntegrityResult struct {
	Issues   []DataIntegrityIssue `json:"issues"`
	Warnings []string             `json:"warnings"`
}

// Passed reports whether no high or critical issue was found.
func (r DataIntegrityResult) Passed() bool {
	for _, issue := range r.Issues {
		if issue.Escalates() {
			return false
		}
	}
	return true
}

// AutoFixable returns the subset of issues with a known mechanical fix.
func (r DataIntegrityResult) AutoFixable() []DataIntegrityIssue {
	var out []DataIntegrityIssue
	for _, issue := range r.Issues {
		if issue.AutoFixable {
			out = append(out, issue)
		}
	}
	return out
}

// SortIssues orders issues by severity (most severe first), then description.
func SortIssues(issues []DataIntegrityIssue) {
	slices.SortStableFunc(issues, func(a, b DataIntegrityIssue) int {
		if d := b.Severity.rank() - a.Severity.rank(); d != 0 {
			return d
		}
		return strings.Compare(a.Description, b.Description)
	})
}

// AutoFixResult reports what an auto-fix pass did.
type AutoFixResult struct {
	Fixed   int      `json:"fixed"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}
