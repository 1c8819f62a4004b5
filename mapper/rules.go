/***
Copyright 2016 Cisco Systems Inc. All rights reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mapper

import (
	"github.com/netforge/fabricmap/mapper/status"
	"github.com/netforge/fabricmap/policy"
)

// CreateTrafficRule writes the rule's filters and entries.
func (m *DomainMapper) CreateTrafficRule(rule *policy.TrafficRule) error {
	if err := m.contracts.CreateRule(m.tenantName(rule.Tenant), rule); err != nil {
		return err
	}
	return m.dir.SaveTrafficRule(rule)
}

// UpdateTrafficRule rewrites the rule's filter entries in place. Direction
// and protocol are immutable, so the derived filter names never change and
// the rule stays mapped throughout the update.
func (m *DomainMapper) UpdateTrafficRule(updated *policy.TrafficRule) error {
	current, err := m.dir.TrafficRule(updated.ID)
	if err != nil {
		return err
	}
	if err := m.contracts.UpdateRule(m.tenantName(updated.Tenant), current, updated); err != nil {
		return err
	}
	return m.dir.SaveTrafficRule(updated)
}

// DeleteTrafficRule removes the rule's filters and entries.
func (m *DomainMapper) DeleteTrafficRule(id string) error {
	rule, err := m.dir.TrafficRule(id)
	if err != nil {
		return err
	}
	if err := m.contracts.DeleteRule(m.tenantName(rule.Tenant), rule); err != nil {
		return err
	}
	return m.dir.DeleteTrafficRule(id)
}

// TrafficRuleStatus merges the convergence state of the rule's filters.
func (m *DomainMapper) TrafficRuleStatus(id string) (string, error) {
	rule, err := m.dir.TrafficRule(id)
	if err != nil {
		return policy.StatusError, err
	}
	resources := m.contracts.RuleResources(m.tenantName(rule.Tenant), rule)
	return status.MergeResources(m.store, resources, false)
}

// CreateTrafficRuleSet writes the set's contract and subject. Child rule
// sets are rejected before anything is written.
func (m *DomainMapper) CreateTrafficRuleSet(set *policy.TrafficRuleSet) error {
	rules, err := m.memberRules(set)
	if err != nil {
		return err
	}
	if err := m.contracts.CreateRuleSet(m.tenantName(set.Tenant), set, rules); err != nil {
		return err
	}
	return m.dir.SaveTrafficRuleSet(set)
}

// UpdateTrafficRuleSet recomputes the subject partition from the new rule
// membership. The contract name derives from the immutable set id, so
// groups referencing the set stay attached.
func (m *DomainMapper) UpdateTrafficRuleSet(updated *policy.TrafficRuleSet) error {
	if _, err := m.dir.TrafficRuleSet(updated.ID); err != nil {
		return err
	}
	rules, err := m.memberRules(updated)
	if err != nil {
		return err
	}
	if err := m.contracts.CreateRuleSet(m.tenantName(updated.Tenant), updated, rules); err != nil {
		return err
	}
	return m.dir.SaveTrafficRuleSet(updated)
}

// DeleteTrafficRuleSet removes the set's contract and subject.
func (m *DomainMapper) DeleteTrafficRuleSet(id string) error {
	set, err := m.dir.TrafficRuleSet(id)
	if err != nil {
		return err
	}
	if err := m.contracts.DeleteRuleSet(m.tenantName(set.Tenant), set); err != nil {
		return err
	}
	return m.dir.DeleteTrafficRuleSet(id)
}

// TrafficRuleSetStatus merges the convergence state of the set's contract
// and subject.
func (m *DomainMapper) TrafficRuleSetStatus(id string) (string, error) {
	set, err := m.dir.TrafficRuleSet(id)
	if err != nil {
		return policy.StatusError, err
	}
	resources := m.contracts.RuleSetResources(m.tenantName(set.Tenant), set)
	return status.MergeResources(m.store, resources, false)
}

func (m *DomainMapper) memberRules(set *policy.TrafficRuleSet) ([]*policy.TrafficRule, error) {
	rules := make([]*policy.TrafficRule, 0, len(set.RuleIDs))
	for _, ruleID := range set.RuleIDs {
		rule, err := m.dir.TrafficRule(ruleID)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
