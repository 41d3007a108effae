package integrity

import (
	"context"
	"fmt"

	"github.com/neomorfeo/innkeep/internal/domain"
)

// AutoFix applies the mechanical fix of each auto-fixable issue to the stored
// reservation. A fix that is no longer needed is skipped, so running the same
// issue list twice fixes nothing the second time. Issues without a fix are
// reported as failed.
func (c *Checker) AutoFix(ctx context.Context, reservationID string, issues []domain.DataIntegrityIssue) (domain.AutoFixResult, error) {
	var out domain.AutoFixResult

	res, err := c.stores.Reservations.GetByID(ctx, reservationID)
	if err != nil {
		return out, fmt.Errorf("loading reservation %q: %w", reservationID, err)
	}

	changed := false
	for _, issue := range issues {
		if !issue.AutoFixable || issue.Fix == domain.FixNone {
			out.Failed++
			out.Errors = append(out.Errors, fmt.Sprintf("%s: no automatic fix available", issue.Description))
			continue
		}

		applied, err := applyFix(&res, issue.Fix)
		switch {
		case err != nil:
			out.Failed++
			out.Errors = append(out.Errors, fmt.Sprintf("%s: %v", issue.Description, err))
		case applied:
			out.Fixed++
			changed = true
		default:
			out.Skipped++
		}
	}

	if !changed {
		return out, nil
	}

	if err := c.stores.Reservations.Update(ctx, res); err != nil {
		c.logger.ErrorContext(ctx, "saving auto-fix failed",
			"reservation_id", reservationID,
			"error", err,
		)
		out.Failed += out.Fixed
		out.Fixed = 0
		out.Errors = append(out.Errors, fmt.Sprintf("saving fixes: %v", err))
		return out, nil
	}

	c.logger.InfoContext(ctx, "integrity issues fixed",
		"reservation_id", reservationID,
		"fixed", out.Fixed,
		"skipped", out.Skipped,
		"failed", out.Failed,
	)
	return out, nil
}

// applyFix mutates res and reports whether anything changed.
func applyFix(res *domain.Reservation, fix domain.FixKind) (bool, error) {
	switch fix {
	case domain.FixClampAdults:
		if res.Adults >= 1 {
			return false, nil
		}
		res.Adults = 1
		return true, nil
	case domain.FixClampDeposit:
		if !res.DepositAmount.GreaterThan(res.TotalAmount) {
			return false, nil
		}
		if res.TotalAmount.IsNegative() {
			return false, fmt.Errorf("total amount is negative")
		}
		res.DepositAmount = res.TotalAmount
		return true, nil
	default:
		return false, fmt.Errorf("unknown fix %q", fix)
	}
}
