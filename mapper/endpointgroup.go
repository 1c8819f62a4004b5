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

	"github.com/netforge/fabricmap/fabric"
	"github.com/netforge/fabricmap/mapper/autogroup"
	"github.com/netforge/fabricmap/mapper/contracts"
	"github.com/netforge/fabricmap/mapper/status"
	"github.com/netforge/fabricmap/netres"
	"github.com/netforge/fabricmap/policy"

	log "github.com/sirupsen/logrus"
)

// fabricGroupName names the fabric group backing an endpoint group. A
// synthesized group shares the bridging domain's default fabric group.
func (m *DomainMapper) fabricGroupName(group *policy.EndpointGroup,
	bd *policy.BridgingDomain) string {
	if autogroup.IsAutoGroup(group.ID) {
		return m.defaultGroupName(bd)
	}
	return m.names.Name(group.ID, group.Name, "")
}

// CreateEndpointGroup maps the group onto a fabric group and guarantees
// its bridging domain has a subnet. Subnet membership is engine-managed;
// caller-assigned subnets are rejected. A group created without a
// bridging domain gets an owned one, reclaimed with the group. A
// synthesized group reuses the domain's default fabric group instead of
// creating its own.
func (m *DomainMapper) CreateEndpointGroup(group *policy.EndpointGroup) error {
	if len(group.SubnetIDs) > 0 {
		return policy.ErrExplicitSubnetAssociationNotSupported
	}

	if group.BridgingDomainID == "" {
		bd := &policy.BridgingDomain{
			ID:     "bd-" + group.ID,
			Tenant: group.Tenant,
			Name:   group.Name,
			Owned:  true,
		}
		if err := m.CreateBridgingDomain(bd); err != nil {
			return err
		}
		group.BridgingDomainID = bd.ID
	}

	bd, err := m.dir.BridgingDomain(group.BridgingDomainID)
	if err != nil {
		return err
	}
	rd, err := m.routingDomainFor(bd)
	if err != nil {
		return err
	}

	subnetIDs, err := m.implicit.EnsureSubnets(bd, rd, false)
	if err != nil {
		return err
	}
	group.SubnetIDs = subnetIDs

	if !autogroup.IsAutoGroup(group.ID) {
		tenant := m.tenantName(group.Tenant)
		provided, err := m.ruleSetContractNames(group.ProvidedRuleSets)
		if err != nil {
			return err
		}
		consumed, err := m.ruleSetContractNames(group.ConsumedRuleSets)
		if err != nil {
			return err
		}

		fg := &fabric.FabricGroup{
			Tenant:            tenant,
			Name:              m.fabricGroupName(group, bd),
			DisplayName:       group.Name,
			BridgeName:        m.bridgeObjectName(bd),
			ProvidedContracts: provided,
			ConsumedContracts: consumed,
			DomainBindings:    append([]string(nil), m.cfg.DomainBindings...),
		}
		fg.ProvidedContracts = appendUnique(fg.ProvidedContracts,
			contracts.ARPContractPrefix+tenant)
		fg.ConsumedContracts = appendUnique(fg.ConsumedContracts,
			contracts.ARPContractPrefix+tenant)
		fg.ConsumedContracts = appendUnique(fg.ConsumedContracts,
			contracts.SvcContractPrefix+tenant)
		if err := m.store.Create(fg, true); err != nil {
			return err
		}
	}

	return m.dir.SaveEndpointGroup(group)
}

// routingDomainFor resolves the routing domain a bridging domain carves
// subnets from, falling back to the tenant's sole routing domain when the
// bridging domain carries no explicit reference.
func (m *DomainMapper) routingDomainFor(bd *policy.BridgingDomain) (*policy.RoutingDomain, error) {
	if bd.RoutingDomainID != "" {
		return m.dir.RoutingDomain(bd.RoutingDomainID)
	}
	domains, err := m.dir.RoutingDomainsByTenant(bd.Tenant)
	if err != nil {
		return nil, err
	}
	if len(domains) == 0 {
		return nil, policy.ErrNotFound
	}
	return domains[0], nil
}

func (m *DomainMapper) ruleSetContractNames(ruleSetIDs []string) ([]string, error) {
	contractNames := []string{}
	for _, setID := range ruleSetIDs {
		set, err := m.dir.TrafficRuleSet(setID)
		if err != nil {
			return nil, err
		}
		contractNames = appendUnique(contractNames, m.contracts.ContractName(set))
	}
	return contractNames, nil
}

// UpdateEndpointGroup recomputes the fabric group's contract lists from
// the rule-set difference so contracts attached outside the engine
// survive. The shared flag and subnet membership are immutable.
func (m *DomainMapper) UpdateEndpointGroup(updated *policy.EndpointGroup) error {
	current, err := m.dir.EndpointGroup(updated.ID)
	if err != nil {
		return err
	}
	if current.Shared != updated.Shared {
		return policy.ErrSharedAttributeUpdateNotSupported
	}
	updated.SubnetIDs = current.SubnetIDs
	updated.BridgingDomainID = current.BridgingDomainID

	bd, err := m.dir.BridgingDomain(current.BridgingDomainID)
	if err != nil {
		return err
	}

	fg := &fabric.FabricGroup{
		Tenant: m.tenantName(current.Tenant),
		Name:   m.fabricGroupName(current, bd),
	}
	found, err := m.store.Get(fg)
	if err != nil {
		return err
	}
	if found {
		if err := m.applyRuleSetDiff(&fg.ProvidedContracts,
			current.ProvidedRuleSets, updated.ProvidedRuleSets); err != nil {
			return err
		}
		if err := m.applyRuleSetDiff(&fg.ConsumedContracts,
			current.ConsumedRuleSets, updated.ConsumedRuleSets); err != nil {
			return err
		}
		// a synthesized group has no display name of its own
		if !autogroup.IsAutoGroup(updated.ID) {
			fg.DisplayName = updated.Name
		}
		if err := m.store.Create(fg, true); err != nil {
			return err
		}
	}

	return m.dir.SaveEndpointGroup(updated)
}

// applyRuleSetDiff removes the dropped rule sets' contract names from the
// list and adds the new ones, leaving other entries untouched.
func (m *DomainMapper) applyRuleSetDiff(list *[]string, old, updated []string) error {
	oldNames, err := m.ruleSetContractNames(old)
	if err != nil {
		return err
	}
	newNames, err := m.ruleSetContractNames(updated)
	if err != nil {
		return err
	}
	for _, name := range oldNames {
		if !contains(newNames, name) {
			*list = removeName(*list, name)
		}
	}
	for _, name := range newNames {
		*list = appendUnique(*list, name)
	}
	return nil
}

// DeleteEndpointGroup removes the group's fabric group and reclaims the
// bridging domain's owned subnets once no user group remains. Synthesized
// groups are deleted only with their bridging domain.
func (m *DomainMapper) DeleteEndpointGroup(id string) error {
	if autogroup.IsAutoGroup(id) {
		return policy.ErrAutoGroupDeleteNotSupported
	}
	return m.deleteEndpointGroup(id, false)
}

func (m *DomainMapper) deleteEndpointGroup(id string, synthesized bool) error {
	group, err := m.dir.EndpointGroup(id)
	if err != nil {
		return err
	}

	bd, err := m.dir.BridgingDomain(group.BridgingDomainID)
	if err != nil {
		return err
	}

	// the synthesized group borrows the default fabric group, which the
	// bridging domain owns
	if !synthesized {
		fg := &fabric.FabricGroup{
			Tenant: m.tenantName(group.Tenant),
			Name:   m.fabricGroupName(group, bd),
		}
		if err := m.store.Delete(fg); err != nil {
			return err
		}
		m.names.Release(fg.Name)
	}

	if err := m.dir.DeleteEndpointGroup(id); err != nil {
		return err
	}

	remaining, err := m.dir.EndpointGroupsByBridgingDomain(bd.ID)
	if err != nil {
		return err
	}
	userGroups := 0
	for _, other := range remaining {
		if !autogroup.IsAutoGroup(other.ID) {
			userGroups++
		}
	}
	if userGroups == 0 && !synthesized {
		if bd.Owned {
			return m.DeleteBridgingDomain(bd.ID)
		}
		rd, err := m.routingDomainFor(bd)
		if errors.Is(err, policy.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := m.implicit.ReclaimSubnets(bd, rd); err != nil {
			return err
		}
	}
	return nil
}

// EndpointGroupStatus reports the fabric group's convergence state.
func (m *DomainMapper) EndpointGroupStatus(id string) (string, error) {
	group, err := m.dir.EndpointGroup(id)
	if err != nil {
		return policy.StatusError, err
	}
	bd, err := m.dir.BridgingDomain(group.BridgingDomainID)
	if err != nil {
		return policy.StatusError, err
	}

	resources := []fabric.Resource{
		&fabric.FabricGroup{
			Tenant: m.tenantName(group.Tenant),
			Name:   m.fabricGroupName(group, bd),
		},
	}
	return status.MergeResources(m.store, resources, false)
}

// CreateEndpoint binds the endpoint to a port on its group's network,
// allocating an owned port when the caller gave none.
func (m *DomainMapper) CreateEndpoint(ep *policy.Endpoint) error {
	group, err := m.dir.EndpointGroup(ep.GroupID)
	if err != nil {
		return err
	}
	bd, err := m.dir.BridgingDomain(group.BridgingDomainID)
	if err != nil {
		return err
	}

	if ep.PortID == "" {
		port := &netres.Port{
			Tenant:    ep.Tenant,
			NetworkID: bd.NetworkID,
			Name:      m.names.Name(ep.ID, ep.Name, "ep_"),
			Owned:     true,
		}
		if err := m.svc.CreatePort(port); err != nil {
			return err
		}
		ep.PortID = port.ID
	}

	return m.dir.SaveEndpoint(ep)
}

// UpdateEndpoint does not remap the endpoint's port binding. Group moves
// after creation are not reflected on the fabric.
//
// TODO: remap the port to the new group's fabric group on GroupID change.
func (m *DomainMapper) UpdateEndpoint(updated *policy.Endpoint) error {
	current, err := m.dir.Endpoint(updated.ID)
	if err != nil {
		return err
	}
	if current.GroupID != updated.GroupID {
		log.Warnf("endpoint %q moved from group %q to %q; port binding not remapped",
			updated.ID, current.GroupID, updated.GroupID)
	}
	updated.PortID = current.PortID
	return m.dir.SaveEndpoint(updated)
}

// DeleteEndpoint reclaims the endpoint's owned port and removes it.
func (m *DomainMapper) DeleteEndpoint(id string) error {
	ep, err := m.dir.Endpoint(id)
	if err != nil {
		return err
	}

	if ep.PortID != "" {
		port, err := m.svc.Port(ep.PortID)
		if err == nil && port.Owned {
			if err := m.svc.DeletePort(ep.PortID); err != nil {
				return err
			}
		} else if err != nil && !errors.Is(err, netres.ErrNotFound) {
			return err
		}
	}

	return m.dir.DeleteEndpoint(id)
}
