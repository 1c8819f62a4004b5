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

// Package implicit allocates and reclaims the ancillary network resources
// backing policy objects: subnets carved from pool prefixes and router
// interfaces on them. The subnet check-then-allocate section runs under a
// named advisory lock per bridging domain so concurrent group creations
// serialize and allocate exactly once.
package implicit

import (
	"errors"

	"github.com/netforge/fabricmap/core"
	"github.com/netforge/fabricmap/netres"
	"github.com/netforge/fabricmap/policy"
	"github.com/netforge/fabricmap/utils/netutils"

	log "github.com/sirupsen/logrus"
)

// OwnedSubnetPrefix prefixes the names of engine-allocated subnets.
const OwnedSubnetPrefix = "fabric_owned_"

const subnetLockPrefix = "subnet-alloc-"

// Manager owns the implicit-resource lifecycle.
type Manager struct {
	svc   netres.Service
	dir   policy.Directory
	locks core.LockService
}

// NewManager wires a Manager to its collaborators.
func NewManager(svc netres.Service, dir policy.Directory, locks core.LockService) *Manager {
	return &Manager{svc: svc, dir: dir, locks: locks}
}

// EnsureSubnets guarantees the bridging domain has at least one subnet,
// carving one from the routing domain's pools when it has none (or when
// force requests an additional allocation). After any allocation every
// endpoint group under the domain is resynced to the full subnet set and
// every domain router is attached to the new subnets. Returns the full
// subnet id set.
func (m *Manager) EnsureSubnets(bd *policy.BridgingDomain, rd *policy.RoutingDomain,
	force bool) ([]string, error) {
	unlock, err := m.locks.Lock(subnetLockPrefix + bd.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := m.svc.SubnetsByNetwork(bd.NetworkID)
	if err != nil {
		return nil, err
	}

	newSubnets := []*netres.Subnet{}
	if len(current) == 0 || force {
		subnet, err := m.allocateSubnet(bd, rd)
		if err != nil {
			return nil, err
		}
		newSubnets = append(newSubnets, subnet)
		current = append(current, subnet)
	}

	subnetIDs := make([]string, 0, len(current))
	for _, subnet := range current {
		subnetIDs = append(subnetIDs, subnet.ID)
	}

	if len(newSubnets) > 0 {
		if err := m.resyncGroups(bd.ID, subnetIDs); err != nil {
			return nil, err
		}
		for _, routerID := range rd.Routers {
			if err := m.AttachRouter(routerID, newSubnets); err != nil {
				return nil, err
			}
		}
	}

	return subnetIDs, nil
}

func (m *Manager) allocateSubnet(bd *policy.BridgingDomain,
	rd *policy.RoutingDomain) (*netres.Subnet, error) {
	used, err := m.usedCIDRs(rd)
	if err != nil {
		return nil, err
	}

	family := rd.AddressFamily
	if family == 0 {
		family = 4
	}
	pools := rd.SubnetPoolsV4
	if family == 6 {
		pools = rd.SubnetPoolsV6
	}

	for _, poolID := range pools {
		pool, err := m.svc.SubnetPool(poolID)
		if err != nil {
			return nil, err
		}

		prefixLen := uint(pool.DefaultPrefixLength)
		if rd.SubnetPrefixLength > 0 {
			prefixLen = uint(rd.SubnetPrefixLength)
		}

		for _, prefix := range pool.Prefixes {
			cidr, err := netutils.CarveSubnet(prefix, prefixLen, used)
			if err != nil {
				log.Debugf("pool %q prefix %q: %v", poolID, prefix, err)
				continue
			}

			subnet := &netres.Subnet{
				Tenant:        bd.Tenant,
				NetworkID:     bd.NetworkID,
				Name:          OwnedSubnetPrefix + bd.ID,
				CIDR:          cidr,
				AddressFamily: family,
				Owned:         true,
			}
			if err := m.svc.CreateSubnet(subnet); err != nil {
				return nil, err
			}
			return subnet, nil
		}
	}

	return nil, core.Errorf("no pool of routing domain %q can fit a subnet", rd.ID)
}

// usedCIDRs collects the subnet CIDRs already allocated anywhere under the
// routing domain, so a new carve never overlaps a sibling domain's subnet.
func (m *Manager) usedCIDRs(rd *policy.RoutingDomain) ([]string, error) {
	domains, err := m.dir.BridgingDomainsByTenant(rd.Tenant)
	if err != nil {
		return nil, err
	}

	used := []string{}
	for _, bd := range domains {
		if bd.RoutingDomainID != rd.ID {
			continue
		}
		subnets, err := m.svc.SubnetsByNetwork(bd.NetworkID)
		if err != nil {
			return nil, err
		}
		for _, subnet := range subnets {
			used = append(used, subnet.CIDR)
		}
	}
	return used, nil
}

func (m *Manager) resyncGroups(bdID string, subnetIDs []string) error {
	groups, err := m.dir.EndpointGroupsByBridgingDomain(bdID)
	if err != nil {
		return err
	}
	for _, group := range groups {
		group.SubnetIDs = append([]string(nil), subnetIDs...)
		if err := m.dir.SaveEndpointGroup(group); err != nil {
			return err
		}
	}
	return nil
}

// AttachRouter wires the router to each subnet it is not already
// interfaced with. When the subnet's gateway address is taken, a dedicated
// interface port is created instead; if the attach then fails the port is
// deleted before the error propagates.
func (m *Manager) AttachRouter(routerID string, subnets []*netres.Subnet) error {
	ifaces, err := m.svc.RouterInterfaces(routerID)
	if err != nil {
		return err
	}
	attached := map[string]bool{}
	for _, port := range ifaces {
		for _, fip := range port.FixedIPs {
			attached[fip.SubnetID] = true
		}
	}

	for _, subnet := range subnets {
		if attached[subnet.ID] {
			continue
		}

		err := m.svc.AddRouterInterface(routerID, netres.InterfaceSelector{SubnetID: subnet.ID})
		if err == nil {
			continue
		}
		if !errors.Is(err, netres.ErrGatewayConflict) {
			return err
		}

		port := &netres.Port{
			Tenant:    subnet.Tenant,
			NetworkID: subnet.NetworkID,
			FixedIPs:  []netres.FixedIP{{SubnetID: subnet.ID}},
			Owned:     true,
		}
		if err := m.svc.CreatePort(port); err != nil {
			return err
		}
		if err := m.svc.AddRouterInterface(routerID, netres.InterfaceSelector{PortID: port.ID}); err != nil {
			if delErr := m.svc.DeletePort(port.ID); delErr != nil {
				log.Errorf("deleting port %q after failed attach: %v", port.ID, delErr)
			}
			return err
		}
	}
	return nil
}

// DetachRouter removes the router's interfaces on the given subnets.
// Interfaces are probed first so out-of-band removal is tolerated.
func (m *Manager) DetachRouter(routerID string, subnetIDs []string) error {
	ifaces, err := m.svc.RouterInterfaces(routerID)
	if err != nil {
		return err
	}

	present := map[string]bool{}
	for _, port := range ifaces {
		for _, fip := range port.FixedIPs {
			present[fip.SubnetID] = true
		}
	}

	for _, subnetID := range subnetIDs {
		if !present[subnetID] {
			continue
		}
		if err := m.svc.DelRouterInterface(routerID, netres.InterfaceSelector{SubnetID: subnetID}); err != nil {
			return err
		}
	}
	return nil
}

// ReclaimSubnets deletes the owned subnets of the bridging domain's
// network, detaching routers first. User-created subnets stay.
func (m *Manager) ReclaimSubnets(bd *policy.BridgingDomain, rd *policy.RoutingDomain) error {
	subnets, err := m.svc.SubnetsByNetwork(bd.NetworkID)
	if err != nil {
		return err
	}

	for _, subnet := range subnets {
		if !subnet.Owned {
			continue
		}
		for _, routerID := range rd.Routers {
			if err := m.DetachRouter(routerID, []string{subnet.ID}); err != nil {
				return err
			}
		}
		if err := m.svc.DeleteSubnet(subnet.ID); err != nil {
			return err
		}
	}
	return nil
}
