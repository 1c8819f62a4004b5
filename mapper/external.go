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
	"errors"

	"github.com/netforge/fabricmap/mapper/status"
	"github.com/netforge/fabricmap/netres"
	"github.com/netforge/fabricmap/policy"
)

// CreateExternalSegment records the segment's addressing from its backing
// subnet. A segment without an explicit subnet is rejected.
func (m *DomainMapper) CreateExternalSegment(seg *policy.ExternalSegment) error {
	if seg.SubnetID == "" {
		return policy.ErrExternalSegmentNoSubnet
	}
	subnet, err := m.svc.Subnet(seg.SubnetID)
	if err != nil {
		return err
	}
	seg.CIDR = subnet.CIDR
	seg.AddressFamily = subnet.AddressFamily
	return m.dir.SaveExternalSegment(seg)
}

// UpdateExternalSegment applies an update. The backing subnet and the
// addressing derived from it are immutable.
func (m *DomainMapper) UpdateExternalSegment(updated *policy.ExternalSegment) error {
	current, err := m.dir.ExternalSegment(updated.ID)
	if err != nil {
		return err
	}
	updated.SubnetID = current.SubnetID
	updated.CIDR = current.CIDR
	updated.AddressFamily = current.AddressFamily
	return m.dir.SaveExternalSegment(updated)
}

// DeleteExternalSegment unplugs the segment from every routing domain
// referencing it, then removes it.
func (m *DomainMapper) DeleteExternalSegment(id string) error {
	seg, err := m.dir.ExternalSegment(id)
	if err != nil {
		return err
	}

	domains, err := m.dir.RoutingDomainsByTenant(seg.Tenant)
	if err != nil {
		return err
	}
	for _, rd := range domains {
		if !contains(rd.ExternalSegments, id) {
			continue
		}
		if err := m.unplugSegment(rd, id); err != nil {
			return err
		}
		rd.ExternalSegments = removeName(rd.ExternalSegments, id)
		if err := m.dir.SaveRoutingDomain(rd); err != nil {
			return err
		}
	}

	return m.dir.DeleteExternalSegment(id)
}

// ExternalSegmentStatus merges the native status of every gateway router
// plugged for the segment. An unplugged segment is active.
func (m *DomainMapper) ExternalSegmentStatus(id string) (string, error) {
	seg, err := m.dir.ExternalSegment(id)
	if err != nil {
		return policy.StatusError, err
	}

	domains, err := m.dir.RoutingDomainsByTenant(seg.Tenant)
	if err != nil {
		return policy.StatusError, err
	}

	statuses := []string{policy.StatusActive}
	for _, rd := range domains {
		routerID, ok := rd.SegmentRouters[id]
		if !ok {
			continue
		}
		router, err := m.svc.Router(routerID)
		if errors.Is(err, netres.ErrNotFound) {
			statuses = append(statuses, policy.StatusBuild)
			continue
		}
		if err != nil {
			return policy.StatusError, err
		}
		if router.Status != "" {
			statuses = append(statuses, router.Status)
		}
	}
	return status.Merge(statuses), nil
}

// CreateExternalPolicy binds rule-set contracts to the gateway routers of
// the policy's segments. Shared policies and a second policy in one tenant
// are rejected before anything is programmed.
func (m *DomainMapper) CreateExternalPolicy(pol *policy.ExternalPolicy) error {
	if pol.Shared {
		return policy.ErrSharedExternalPolicy
	}
	existing, err := m.dir.ExternalPoliciesByTenant(pol.Tenant)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID != pol.ID {
			return policy.ErrMultipleExternalPolicies
		}
	}

	if err := m.programExternalRouters(pol); err != nil {
		return err
	}
	return m.dir.SaveExternalPolicy(pol)
}

// UpdateExternalPolicy reprograms the routers of both the old and new
// segment sets, clearing the contract lists on removed segments.
func (m *DomainMapper) UpdateExternalPolicy(updated *policy.ExternalPolicy) error {
	current, err := m.dir.ExternalPolicy(updated.ID)
	if err != nil {
		return err
	}
	if updated.Shared {
		return policy.ErrSharedExternalPolicy
	}

	for _, segID := range current.ExternalSegmentIDs {
		if !contains(updated.ExternalSegmentIDs, segID) {
			if err := m.setSegmentContracts(current.Tenant, segID, nil, nil); err != nil {
				return err
			}
		}
	}
	if err := m.programExternalRouters(updated); err != nil {
		return err
	}
	return m.dir.SaveExternalPolicy(updated)
}

// DeleteExternalPolicy clears the contract lists it programmed, then
// removes the policy.
func (m *DomainMapper) DeleteExternalPolicy(id string) error {
	pol, err := m.dir.ExternalPolicy(id)
	if err != nil {
		return err
	}
	for _, segID := range pol.ExternalSegmentIDs {
		if err := m.setSegmentContracts(pol.Tenant, segID, nil, nil); err != nil {
			return err
		}
	}
	return m.dir.DeleteExternalPolicy(id)
}

// externalContractNames resolves the policy's rule sets to fabric contract
// names.
func (m *DomainMapper) externalContractNames(pol *policy.ExternalPolicy) ([]string, []string, error) {
	provided, err := m.ruleSetContractNames(pol.ProvidedRuleSets)
	if err != nil {
		return nil, nil, err
	}
	consumed, err := m.ruleSetContractNames(pol.ConsumedRuleSets)
	if err != nil {
		return nil, nil, err
	}
	return provided, consumed, nil
}

func (m *DomainMapper) programExternalRouters(pol *policy.ExternalPolicy) error {
	provided, consumed, err := m.externalContractNames(pol)
	if err != nil {
		return err
	}
	for _, segID := range pol.ExternalSegmentIDs {
		if _, err := m.dir.ExternalSegment(segID); err != nil {
			return err
		}
		if err := m.setSegmentContracts(pol.Tenant, segID, provided, consumed); err != nil {
			return err
		}
	}
	return nil
}

// setSegmentContracts rewrites the contract lists on every gateway router
// plugged for the segment across the tenant's routing domains.
func (m *DomainMapper) setSegmentContracts(tenant, segID string,
	provided, consumed []string) error {
	domains, err := m.dir.RoutingDomainsByTenant(tenant)
	if err != nil {
		return err
	}
	for _, rd := range domains {
		routerID, ok := rd.SegmentRouters[segID]
		if !ok {
			continue
		}
		router, err := m.svc.Router(routerID)
		if errors.Is(err, netres.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		router.ProvidedContracts = append([]string(nil), provided...)
		router.ConsumedContracts = append([]string(nil), consumed...)
		if err := m.svc.UpdateRouter(router); err != nil {
			return err
		}
	}
	return nil
}
