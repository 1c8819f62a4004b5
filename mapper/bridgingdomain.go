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

// bridgeObjectName names the fabric bridge domain of a bridging domain.
func (m *DomainMapper) bridgeObjectName(bd *policy.BridgingDomain) string {
	return m.names.Name(bd.ID, bd.Name, "")
}

// CreateBridgingDomain creates the backing network when the caller gave
// none, writes the fabric bridge object and default group, and seeds the
// tenant's shared contracts on the first domain. With auto groups enabled
// a synthesized endpoint group is created alongside.
func (m *DomainMapper) CreateBridgingDomain(bd *policy.BridgingDomain) error {
	tenant := m.tenantName(bd.Tenant)

	if bd.NetworkID == "" {
		network := &netres.Network{
			Tenant: bd.Tenant,
			Name:   m.names.Name(bd.ID, bd.Name, "net_"),
			Owned:  true,
		}
		if err := m.svc.CreateNetwork(network); err != nil {
			return err
		}
		bd.NetworkID = network.ID
	}

	routingContext := fabric.Unspecified
	if bd.RoutingDomainID != "" {
		rd, err := m.dir.RoutingDomain(bd.RoutingDomainID)
		if err != nil {
			return err
		}
		routingContext = m.routingContextName(rd)
	}

	bridge := &fabric.BridgeObject{
		Tenant:             tenant,
		Name:               m.bridgeObjectName(bd),
		DisplayName:        bd.Name,
		RoutingContextName: routingContext,
		EnableRouting:      true,
	}
	if err := m.store.Create(bridge, true); err != nil {
		return err
	}

	group := &fabric.FabricGroup{
		Tenant:         tenant,
		Name:           m.defaultGroupName(bd),
		DisplayName:    bd.Name,
		BridgeName:     bridge.Name,
		DomainBindings: append([]string(nil), m.cfg.DomainBindings...),
	}
	if err := m.store.Create(group, true); err != nil {
		return err
	}

	first, err := m.firstDomainInTenant(bd)
	if err != nil {
		return err
	}
	if first {
		if _, err := m.contracts.SharedContracts(tenant, group,
			contracts.SharedOp{Create: true}); err != nil {
			return err
		}
	} else {
		group.ProvidedContracts = appendUnique(group.ProvidedContracts,
			contracts.ARPContractPrefix+tenant)
		group.ConsumedContracts = appendUnique(group.ConsumedContracts,
			contracts.ARPContractPrefix+tenant)
		group.ProvidedContracts = appendUnique(group.ProvidedContracts,
			contracts.SvcContractPrefix+tenant)
		if err := m.store.Create(group, true); err != nil {
			return err
		}
	}

	if err := m.dir.SaveBridgingDomain(bd); err != nil {
		return err
	}

	if m.cfg.AutoGroupEnabled {
		if err := m.CreateEndpointGroup(autogroup.Group(bd)); err != nil {
			return err
		}
	}
	return nil
}

// firstDomainInTenant tells whether no other bridging domain exists in the
// domain's tenant.
func (m *DomainMapper) firstDomainInTenant(bd *policy.BridgingDomain) (bool, error) {
	domains, err := m.dir.BridgingDomainsByTenant(bd.Tenant)
	if err != nil {
		return false, err
	}
	for _, other := range domains {
		if other.ID != bd.ID {
			return false, nil
		}
	}
	return true, nil
}

// UpdateBridgingDomain rewrites the display names tracking the domain's.
func (m *DomainMapper) UpdateBridgingDomain(updated *policy.BridgingDomain) error {
	current, err := m.dir.BridgingDomain(updated.ID)
	if err != nil {
		return err
	}
	if current.Shared != updated.Shared {
		return policy.ErrSharedAttributeUpdateNotSupported
	}
	updated.NetworkID = current.NetworkID
	updated.RoutingDomainID = current.RoutingDomainID
	updated.Owned = current.Owned

	if updated.Name != current.Name {
		tenant := m.tenantName(updated.Tenant)

		bridge := &fabric.BridgeObject{Tenant: tenant, Name: m.bridgeObjectName(current)}
		if found, err := m.store.Get(bridge); err != nil {
			return err
		} else if found {
			bridge.DisplayName = updated.Name
			if err := m.store.Create(bridge, true); err != nil {
				return err
			}
		}

		group := &fabric.FabricGroup{Tenant: tenant, Name: m.defaultGroupName(current)}
		if found, err := m.store.Get(group); err != nil {
			return err
		} else if found {
			group.DisplayName = updated.Name
			if err := m.store.Create(group, true); err != nil {
				return err
			}
		}
	}

	return m.dir.SaveBridgingDomain(updated)
}

// DeleteBridgingDomain removes the synthesized group, reclaims owned
// subnets, tears the tenant's shared contracts down when this is the last
// domain, and deletes the bridge object, default group and owned network.
func (m *DomainMapper) DeleteBridgingDomain(id string) error {
	bd, err := m.dir.BridgingDomain(id)
	if err != nil {
		return err
	}
	tenant := m.tenantName(bd.Tenant)

	if m.cfg.AutoGroupEnabled {
		err := m.deleteEndpointGroup(autogroup.ID(bd.ID), true)
		if err != nil && !errors.Is(err, policy.ErrNotFound) {
			return err
		}
		if errors.Is(err, policy.ErrNotFound) {
			log.Infof("bridging domain %q has no auto group to delete", id)
		}
	}

	rd, err := m.routingDomainFor(bd)
	if err == nil {
		if err := m.implicit.ReclaimSubnets(bd, rd); err != nil {
			return err
		}
	} else if !errors.Is(err, policy.ErrNotFound) {
		return err
	}

	group := &fabric.FabricGroup{Tenant: tenant, Name: m.defaultGroupName(bd)}
	if _, err := m.store.Get(group); err != nil {
		return err
	}

	last, err := m.firstDomainInTenant(bd)
	if err != nil {
		return err
	}
	if last {
		if _, err := m.contracts.SharedContracts(tenant, group,
			contracts.SharedOp{Delete: true}); err != nil {
			return err
		}
	}

	if err := m.store.Delete(group); err != nil {
		return err
	}
	m.names.Release(group.Name)

	bridge := &fabric.BridgeObject{Tenant: tenant, Name: m.bridgeObjectName(bd)}
	if err := m.store.Delete(bridge); err != nil {
		return err
	}
	m.names.Release(bridge.Name)

	network, err := m.svc.Network(bd.NetworkID)
	if err == nil && network.Owned {
		if err := m.svc.DeleteNetwork(bd.NetworkID); err != nil {
			return err
		}
	} else if err != nil && !errors.Is(err, netres.ErrNotFound) {
		return err
	}

	return m.dir.DeleteBridgingDomain(id)
}

// BridgingDomainStatus reports the merged convergence state of the
// backing network, the bridge object, the default group and every fabric
// object of the tenant's shared implicit contracts. A missing fabric
// object is an error here: all of them are written at creation, so
// absence means lost state.
func (m *DomainMapper) BridgingDomainStatus(id string) (string, error) {
	bd, err := m.dir.BridgingDomain(id)
	if err != nil {
		return policy.StatusError, err
	}
	tenant := m.tenantName(bd.Tenant)

	group := &fabric.FabricGroup{Tenant: tenant, Name: m.defaultGroupName(bd)}
	shared, err := m.contracts.SharedContracts(tenant, group, contracts.SharedOp{})
	if err != nil {
		return policy.StatusError, err
	}

	resources := []fabric.Resource{
		&fabric.BridgeObject{Tenant: tenant, Name: m.bridgeObjectName(bd)},
		group,
	}
	resources = append(resources, shared...)
	merged, err := status.MergeResources(m.store, resources, true)
	if err != nil {
		return policy.StatusError, err
	}

	network, err := m.svc.Network(bd.NetworkID)
	switch {
	case errors.Is(err, netres.ErrNotFound):
		return status.Merge([]string{merged, policy.StatusError}), nil
	case err != nil:
		return policy.StatusError, err
	case network.Status == "":
		return merged, nil
	}
	return status.Merge([]string{merged, network.Status}), nil
}
