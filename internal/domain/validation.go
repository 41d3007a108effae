package domain

import "encoding/json"

// ValidationResult accumulates the decision for one proposed transition.
// It is valid exactly when it carries no errors. A valid result may still
// require approval, in which case the transition must not be applied automatically.
type ValidationResult struct {
	Errors                 []string
	Warnings               []string
	RequiresApproval       bool
	ApprovalReason         string
	BusinessRuleViolations []string
	DataIntegrityIssues    []string
}

// IsValid reports whether no hard errors were recorded.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

func (r *ValidationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// RequireApproval flags the result for manager review. The first reason is kept.
func (r *ValidationResult) RequireApproval(reason string) {
	r.RequiresApproval = true
	if r.ApprovalReason == "" {
		r.ApprovalReason = reason
	}
}

// Merge appends the findings of other.
func (r *ValidationResult) Merge(other ValidationResult) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.BusinessRuleViolations = append(r.BusinessRuleViolations, other.BusinessRuleViolations...)
	r.DataIntegrityIssues = append(r.DataIntegrityIssues, other.DataIntegrityIssues...)
	if other.RequiresApproval {
		r.RequireApproval(other.ApprovalReason)
	}
}

type validationJSON struct {
	IsValid                bool     `json:"is_valid"`
	Errors                 []string `json:"errors"`
	Warnings               []string `json:"warnings"`
	RequiresApproval       bool     `json:"requires_approval"`
	ApprovalReason         string   `json:"approval_reason,omitempty"`
	BusinessRuleViolations []string `json:"business_rule_violations"`
	DataIntegrityIssues    []string `json:"data_integrity_issues"`
}

// MarshalJSON emits is_valid derived from the error list.
func (r ValidationResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(validationJSON{
		IsValid:                r.IsValid(),
		Errors:                 nonNil(r.Errors),
		Warnings:               nonNil(r.Warnings),
		RequiresApproval:       r.RequiresApproval,
		ApprovalReason:         r.ApprovalReason,
		BusinessRuleViolations: nonNil(r.BusinessRuleViolations),
		DataIntegrityIssues:    nonNil(r.DataIntegrityIssues),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
