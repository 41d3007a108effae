package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neomorfeo/innkeep/internal/domain"
)

type ruleRow struct {
	ID             string `db:"id"`
	OrganizationID string `db:"organization_id"`
	PropertyID     string `db:"property_id"`
	Name           string `db:"name"`
	Description    string `db:"description"`
	Category       string `db:"category"`
	Priority       int    `db:"priority"`
	Active         int    `db:"active"`
	Conditions     string `db:"conditions"`
	Actions        string `db:"actions"`
}

func toRuleRow(r domain.BusinessRule) (ruleRow, error) {
	conditions := r.Conditions
	if conditions == nil {
		conditions = []domain.RuleCondition{}
	}
	actions := r.Actions
	if actions == nil {
		actions = []domain.RuleAction{}
	}

	cond, err := json.Marshal(conditions)
	if err != nil {
		return ruleRow{}, fmt.Errorf("encoding conditions of rule %s: %w", r.ID, err)
	}
	act, err := json.Marshal(actions)
	if err != nil {
		return ruleRow{}, fmt.Errorf("encoding actions of rule %s: %w", r.ID, err)
	}

	return ruleRow{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		PropertyID:     r.PropertyID,
		Name:           r.Name,
		Description:    r.Description,
		Category:       string(r.Category),
		Priority:       r.Priority,
		Active:         boolToInt(r.Active),
		Conditions:     string(cond),
		Actions:        string(act),
	}, nil
}

func (row ruleRow) toDomain() (domain.BusinessRule, error) {
	r := domain.BusinessRule{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		PropertyID:     row.PropertyID,
		Name:           row.Name,
		Description:    row.Description,
		Category:       domain.RuleCategory(row.Category),
		Priority:       row.Priority,
		Active:         row.Active != 0,
	}
	if err := json.Unmarshal([]byte(row.Conditions), &r.Conditions); err != nil {
		return domain.BusinessRule{}, fmt.Errorf("decoding conditions of rule %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Actions), &r.Actions); err != nil {
		return domain.BusinessRule{}, fmt.Errorf("decoding actions of rule %s: %w", row.ID, err)
	}
	return r, nil
}

// SaveRule inserts or replaces a business rule. An empty organization id
// stores a rule shared by every organization.
func (s *Store) SaveRule(ctx context.Context, r domain.BusinessRule) error {
	row, err := toRuleRow(r)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx,
		`INSERT INTO business_rules (id, organization_id, property_id, name, description, category, priority, active, conditions, actions)
		 VALUES (:id, :organization_id, :property_id, :name, :description, :category, :priority, :active, :conditions, :actions)
		 ON CONFLICT (id) DO UPDATE SET
		    organization_id = excluded.organization_id, property_id = excluded.property_id,
		    name = excluded.name, description = excluded.description, category = excluded.category,
		    priority = excluded.priority, active = excluded.active,
		    conditions = excluded.conditions, actions = excluded.actions`,
		row,
	)
	if err != nil {
		return fmt.Errorf("saving rule: %w", err)
	}
	return nil
}

// SeedRules stores the given rules as shared rules unless a rule with the
// same id already exists. Existing rows are left untouched so edits survive
// restarts.
func (s *Store) SeedRules(ctx context.Context, rules []domain.BusinessRule) error {
	for _, r := range rules {
		row, err := toRuleRow(r)
		if err != nil {
			return err
		}
		row.OrganizationID = ""
		_, err = s.db.NamedExecContext(ctx,
			`INSERT INTO business_rules (id, organization_id, property_id, name, description, category, priority, active, conditions, actions)
			 VALUES (:id, :organization_id, :property_id, :name, :description, :category, :priority, :active, :conditions, :actions)
			 ON CONFLICT (id) DO NOTHING`,
			row,
		)
		if err != nil {
			return fmt.Errorf("seeding rule %s: %w", r.ID, err)
		}
	}
	return nil
}

// ListRules returns the organization's rules plus the shared ones, with the
// organization filled in on shared rules.
func (s *Store) ListRules(ctx context.Context, organizationID string) ([]domain.BusinessRule, error) {
	var rows []ruleRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, organization_id, property_id, name, description, category, priority, active, conditions, actions
		 FROM business_rules WHERE organization_id = ? OR organization_id = ''
		 ORDER BY priority DESC, id`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}

	out := make([]domain.BusinessRule, 0, len(rows))
	for _, row := range rows {
		r, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		if r.OrganizationID == "" {
			r.OrganizationID = organizationID
		}
		out = append(out, r)
	}
	return out, nil
}
