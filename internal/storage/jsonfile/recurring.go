package jsonfile

import (
	"fmt"

	errors "github.com/frahmantamala/dot-spend/internal"
	recurringDatamodel "github.com/frahmantamala/dot-spend/internal/core/datamodel/recurring"
)

type RecurringRepository struct {
	store *Store
}

func (r *RecurringRepository) load() ([]*recurringDatamodel.Rule, error) {
	path := r.store.path(RecurringFile)
	var rules []*recurringDatamodel.Rule
	if _, err := ReadJSON(path, &rules); err != nil {
		return nil, err
	}
	if err := checkRules(path, rules); err != nil {
		return nil, err
	}
	for _, rule := range rules {
		rule.StartDate = rule.StartDate.Local()
	}
	return rules, nil
}

func checkRules(path string, rules []*recurringDatamodel.Rule) error {
	seen := make(map[string]bool, len(rules))
	for i, rule := range rules {
		if rule == nil || rule.ID == "" {
			return corrupt(path, fmt.Sprintf("rule %d has no id", i))
		}
		if seen[rule.ID] {
			return corrupt(path, fmt.Sprintf("duplicate rule id %q", rule.ID))
		}
		seen[rule.ID] = true
		if !rule.Amount.IsPositive() {
			return corrupt(path, fmt.Sprintf("rule %s: amount must be positive", rule.ID))
		}
	}
	return nil
}

func (r *RecurringRepository) save(rules []*recurringDatamodel.Rule) error {
	if rules == nil {
		rules = []*recurringDatamodel.Rule{}
	}
	return WriteJSON(r.store.path(RecurringFile), rules)
}

func (r *RecurringRepository) Create(rule *recurringDatamodel.Rule) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rules, err := r.load()
	if err != nil {
		return err
	}
	for _, existing := range rules {
		if existing.ID == rule.ID {
			return errors.NewConflictError(fmt.Sprintf("recurring rule %s already exists", rule.ID), errors.ErrCodeDuplicateID)
		}
	}
	clone := *rule
	return r.save(append(rules, &clone))
}

func (r *RecurringRepository) GetByID(id string) (*recurringDatamodel.Rule, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rules, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return nil, errors.ErrRecordNotFound
}

func (r *RecurringRepository) Update(rule *recurringDatamodel.Rule) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rules, err := r.load()
	if err != nil {
		return err
	}
	for i, existing := range rules {
		if existing.ID == rule.ID {
			clone := *rule
			rules[i] = &clone
			return r.save(rules)
		}
	}
	return errors.ErrRecordNotFound
}

func (r *RecurringRepository) Delete(id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rules, err := r.load()
	if err != nil {
		return err
	}
	for i, rule := range rules {
		if rule.ID == id {
			return r.save(append(rules[:i], rules[i+1:]...))
		}
	}
	return errors.ErrRecordNotFound
}

func (r *RecurringRepository) List() ([]*recurringDatamodel.Rule, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.load()
}
