package rules

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/neomorfeo/innkeep/internal/domain"
)

// Compile-time check: Registry implements domain.RuleEvaluator.
var _ domain.RuleEvaluator = (*Registry)(nil)

// DefaultCacheTTL bounds how long an organization's rule set is served
// before it is reloaded from the repository.
const DefaultCacheTTL = 5 * time.Minute

// Registry evaluates the active rules of an organization. Rule sets are loaded
// from a domain.RuleRepository, sorted once, and cached per organization.
// A cached set is never mutated; Refresh and Invalidate replace it whole.
type Registry struct {
	repo   domain.RuleRepository
	cache  *cache.Cache
	logger *slog.Logger
}

// NewRegistry creates a registry backed by repo. A ttl of zero uses DefaultCacheTTL.
func NewRegistry(repo domain.RuleRepository, ttl time.Duration, logger *slog.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		repo:   repo,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// Rules returns the sorted rule set of an organization, loading it on a cache miss.
func (r *Registry) Rules(ctx context.Context, organizationID string) ([]domain.BusinessRule, error) {
	if cached, ok := r.cache.Get(organizationID); ok {
		return cached.([]domain.BusinessRule), nil
	}
	return r.Refresh(ctx, organizationID)
}

// Refresh reloads the rule set of an organization from the repository.
func (r *Registry) Refresh(ctx context.Context, organizationID string) ([]domain.BusinessRule, error) {
	loaded, err := r.repo.ListRules(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("loading rules for organization %q: %w", organizationID, err)
	}

	sorted := slices.Clone(loaded)
	SortRules(sorted)
	r.cache.SetDefault(organizationID, sorted)

	r.logger.DebugContext(ctx, "rule set loaded",
		"organization_id", organizationID,
		"rules", len(sorted),
	)
	return sorted, nil
}

// Invalidate drops the cached rule set of an organization.
func (r *Registry) Invalidate(organizationID string) {
	r.cache.Delete(organizationID)
}

// SortRules orders rules by descending priority, ties broken by id.
func SortRules(rules []domain.BusinessRule) {
	slices.SortStableFunc(rules, func(a, b domain.BusinessRule) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Evaluate applies every matching rule in scope for tc. All matching rules
// contribute; an allow action never suppresses another rule.
func (r *Registry) Evaluate(ctx context.Context, tc domain.TransitionContext) (domain.ValidationResult, error) {
	set, err := r.Rules(ctx, tc.OrganizationID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return Apply(set, tc), nil
}

// Apply evaluates a sorted rule set against tc. It is deterministic for a
// given rule set and context.
func Apply(set []domain.BusinessRule, tc domain.TransitionContext) domain.ValidationResult {
	var (
		result           domain.ValidationResult
		approvalPriority int
	)

	for _, rule := range set {
		if !rule.AppliesTo(tc.PropertyID) || !Matches(tc, rule) {
			continue
		}

		for _, action := range rule.Actions {
			switch action.Type {
			case domain.ActionDeny, domain.ActionAddError:
				msg := messageOr(action, "transition denied")
				result.AddError(fmt.Sprintf("%s: %s", rule.Name, msg))
				result.BusinessRuleViolations = append(result.BusinessRuleViolations, violation(rule, msg))

			case domain.ActionRequireApproval:
				reason := fmt.Sprintf("%s: %s", rule.Name, messageOr(action, "manager approval required"))
				switch {
				case !result.RequiresApproval:
					result.RequireApproval(reason)
					approvalPriority = rule.Priority
				case rule.Priority > approvalPriority:
					result.ApprovalReason = reason
					approvalPriority = rule.Priority
				}
				result.BusinessRuleViolations = append(result.BusinessRuleViolations, violation(rule, reason))

			case domain.ActionAddWarning:
				result.AddWarning(fmt.Sprintf("%s: %s", rule.Name, messageOr(action, "check this transition")))

			case domain.ActionSetFee:
				result.AddWarning(fmt.Sprintf("%s: %s", rule.Name, messageOr(action, "fee of "+action.Value.String()+" applies")))

			case domain.ActionSendNotification:
				result.AddWarning(fmt.Sprintf("%s: %s", rule.Name, messageOr(action, "notification requested ("+action.Value.String()+")")))

			case domain.ActionAllow:
			}
		}
	}
	return result
}

func messageOr(action domain.RuleAction, fallback string) string {
	if action.Message != "" {
		return action.Message
	}
	return fallback
}

func violation(rule domain.BusinessRule, msg string) string {
	return fmt.Sprintf("[%s] %s", rule.ID, msg)
}
