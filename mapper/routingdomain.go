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
	"github.com/netforge/fabricmap/mapper/status"
	"github.com/netforge/fabricmap/netres"
	"github.com/netforge/fabricmap/policy"

	log "github.com/sirupsen/logrus"
)

// routingContextName names the fabric VRF of a routing domain.
func (m *DomainMapper) routingContextName(rd *policy.RoutingDomain) string {
	return m.names.Name(rd.ID, rd.Name, "")
}

// CreateRoutingDomain validates the domain, resolves its address family
// and pool-derived fields, allocates the implicit address scope, subnet
// pool and router it lacks, writes the fabric routing context and plugs
// any referenced external segments. Validation failures commit nothing.
func (m *DomainMapper) CreateRoutingDomain(rd *policy.RoutingDomain) error {
	if err := m.validateRoutingDomain(rd); err != nil {
		return err
	}
	if len(rd.Routers) > 1 {
		return policy.ErrMultipleRoutersNotSupported
	}

	resolveAddressFamily(rd)
	if err := m.resolvePoolFields(rd); err != nil {
		return err
	}

	if len(rd.Routers) == 0 {
		router := &netres.Router{
			Tenant: rd.Tenant,
			Name:   m.names.Name(rd.ID, rd.Name, "router_"),
			Owned:  true,
		}
		if err := m.svc.CreateRouter(router); err != nil {
			return err
		}
		rd.Routers = []string{router.ID}
	}

	ctx := &fabric.RoutingContext{
		Tenant:      m.tenantName(rd.Tenant),
		Name:        m.routingContextName(rd),
		DisplayName: rd.Name,
	}
	if err := m.store.Create(ctx, true); err != nil {
		return err
	}

	if err := m.dir.SaveRoutingDomain(rd); err != nil {
		return err
	}

	for _, segID := range rd.ExternalSegments {
		if err := m.plugSegment(rd, segID); err != nil {
			return err
		}
	}
	return m.dir.SaveRoutingDomain(rd)
}

func (m *DomainMapper) validateRoutingDomain(rd *policy.RoutingDomain) error {
	if rd.AddressScopeV4ID != "" && rd.AddressScopeV6ID != "" {
		return policy.ErrSimultaneousAddressFamily
	}
	if len(rd.SubnetPoolsV4) > 0 && len(rd.SubnetPoolsV6) > 0 {
		return policy.ErrSimultaneousSubnetpools
	}
	if rd.AddressScopeV4ID != "" && len(rd.SubnetPoolsV6) > 0 {
		return policy.ErrInconsistentAddressScopeSubnetpool
	}
	if rd.AddressScopeV6ID != "" && len(rd.SubnetPoolsV4) > 0 {
		return policy.ErrInconsistentAddressScopeSubnetpool
	}
	return nil
}

// resolveAddressFamily derives the family from whichever of the explicit
// address scope or subnet pool is present, falling back to the stored
// family, v4 when nothing is given.
func resolveAddressFamily(rd *policy.RoutingDomain) {
	switch {
	case rd.AddressScopeV4ID != "" || len(rd.SubnetPoolsV4) > 0:
		rd.AddressFamily = 4
	case rd.AddressScopeV6ID != "" || len(rd.SubnetPoolsV6) > 0:
		rd.AddressFamily = 6
	case rd.AddressFamily == 0:
		rd.AddressFamily = 4
	}
}

// routingDomainFamily views the family-split scope and pool fields of a
// domain through its active address family.
type routingDomainFamily struct {
	dom *policy.RoutingDomain
}

func (rd *routingDomainFamily) setScope(scopeID string) {
	if rd.dom.AddressFamily == 6 {
		rd.dom.AddressScopeV6ID = scopeID
	} else {
		rd.dom.AddressScopeV4ID = scopeID
	}
}

func (rd *routingDomainFamily) pools() []string {
	if rd.dom.AddressFamily == 6 {
		return rd.dom.SubnetPoolsV6
	}
	return rd.dom.SubnetPoolsV4
}

func (rd *routingDomainFamily) scope() string {
	if rd.dom.AddressFamily == 6 {
		return rd.dom.AddressScopeV6ID
	}
	return rd.dom.AddressScopeV4ID
}

func (rd *routingDomainFamily) setPools(poolIDs []string) {
	if rd.dom.AddressFamily == 6 {
		rd.dom.SubnetPoolsV6 = poolIDs
	} else {
		rd.dom.SubnetPoolsV4 = poolIDs
	}
}

// resolvePoolFields validates the pools against the address scope, adopts
// or allocates the scope, copies the single-prefix fields from an only
// pool, and allocates an implicit pool when none is given. All validation
// runs before any implicit resource is created.
func (m *DomainMapper) resolvePoolFields(dom *policy.RoutingDomain) error {
	rd := &routingDomainFamily{dom: dom}

	pools := rd.pools()
	if len(pools) == 0 {
		return m.allocateImplicitPool(rd)
	}

	// explicit pools must share one address scope, matching the
	// domain's when it names one
	shared := ""
	poolObjs := make([]*netres.SubnetPool, 0, len(pools))
	for _, poolID := range pools {
		pool, err := m.svc.SubnetPool(poolID)
		if err != nil {
			return err
		}
		if pool.AddressScopeID == "" {
			return policy.ErrNoAddressScopeForSubnetpool
		}
		if shared == "" {
			shared = pool.AddressScopeID
		} else if pool.AddressScopeID != shared {
			return policy.ErrInconsistentAddressScopeSubnetpool
		}
		poolObjs = append(poolObjs, pool)
	}
	if rd.scope() != "" && shared != rd.scope() {
		return policy.ErrInconsistentAddressScopeSubnetpool
	}
	if rd.scope() == "" {
		rd.setScope(shared)
	}

	if len(poolObjs) == 1 && len(poolObjs[0].Prefixes) == 1 {
		dom.IPPool = poolObjs[0].Prefixes[0]
		dom.SubnetPrefixLength = poolObjs[0].DefaultPrefixLength
	} else {
		dom.IPPool = ""
		dom.SubnetPrefixLength = 0
	}
	return nil
}

// allocateImplicitPool creates the owned scope (when none was given) and
// pool of a domain configured without explicit pools.
func (m *DomainMapper) allocateImplicitPool(rd *routingDomainFamily) error {
	dom := rd.dom

	if rd.scope() == "" {
		scope := &netres.AddressScope{
			Tenant:        dom.Tenant,
			Name:          m.names.Name(dom.ID, dom.Name, "scope_"),
			AddressFamily: dom.AddressFamily,
			Owned:         true,
		}
		if err := m.svc.CreateAddressScope(scope); err != nil {
			return err
		}
		rd.setScope(scope.ID)
	}

	prefix := m.cfg.DefaultPoolPrefix
	prefixLen := m.cfg.DefaultPrefixLength
	if dom.AddressFamily == 6 {
		prefix = m.cfg.DefaultPoolPrefixV6
		prefixLen = m.cfg.DefaultPrefixLengthV6
	}

	pool := &netres.SubnetPool{
		Tenant:              dom.Tenant,
		Name:                m.names.Name(dom.ID, dom.Name, "pool_"),
		AddressScopeID:      rd.scope(),
		Prefixes:            []string{prefix},
		DefaultPrefixLength: prefixLen,
		AddressFamily:       dom.AddressFamily,
		Owned:               true,
	}
	if err := m.svc.CreateSubnetPool(pool); err != nil {
		return err
	}
	rd.setPools([]string{pool.ID})
	dom.IPPool = prefix
	if dom.SubnetPrefixLength == 0 {
		dom.SubnetPrefixLength = prefixLen
	}
	return nil
}

// UpdateRoutingDomain applies an update. Router membership is immutable;
// external segment changes are plugged and unplugged as a set difference.
func (m *DomainMapper) UpdateRoutingDomain(updated *policy.RoutingDomain) error {
	current, err := m.dir.RoutingDomain(updated.ID)
	if err != nil {
		return err
	}

	if !sameSet(current.Routers, updated.Routers) && len(updated.Routers) > 0 {
		return policy.ErrRoutersUpdateNotSupported
	}
	updated.Routers = current.Routers

	if (len(current.SubnetPoolsV4) > 0 || len(updated.SubnetPoolsV4) > 0) &&
		(len(current.SubnetPoolsV6) > 0 || len(updated.SubnetPoolsV6) > 0) {
		return policy.ErrSimultaneousSubnetpools
	}

	updated.SegmentRouters = current.SegmentRouters
	for _, segID := range current.ExternalSegments {
		if !contains(updated.ExternalSegments, segID) {
			if err := m.unplugSegment(updated, segID); err != nil {
				return err
			}
		}
	}
	for _, segID := range updated.ExternalSegments {
		if !contains(current.ExternalSegments, segID) {
			if err := m.plugSegment(updated, segID); err != nil {
				return err
			}
		}
	}

	return m.dir.SaveRoutingDomain(updated)
}

// DeleteRoutingDomain unplugs every external segment, reclaims the
// domain's implicit resources and removes its routing context. Explicit
// resources are unlinked, never destroyed.
func (m *DomainMapper) DeleteRoutingDomain(id string) error {
	rd, err := m.dir.RoutingDomain(id)
	if err != nil {
		return err
	}

	for _, segID := range rd.ExternalSegments {
		if err := m.unplugSegment(rd, segID); err != nil {
			return err
		}
	}

	for _, routerID := range rd.Routers {
		router, err := m.svc.Router(routerID)
		if errors.Is(err, netres.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if router.Owned {
			if err := m.svc.DeleteRouter(routerID); err != nil {
				return err
			}
		}
	}

	for _, poolID := range append(rd.SubnetPoolsV4, rd.SubnetPoolsV6...) {
		pool, err := m.svc.SubnetPool(poolID)
		if errors.Is(err, netres.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if pool.Owned {
			if err := m.svc.DeleteSubnetPool(poolID); err != nil {
				return err
			}
		}
	}

	for _, scopeID := range []string{rd.AddressScopeV4ID, rd.AddressScopeV6ID} {
		if scopeID == "" {
			continue
		}
		scope, err := m.svc.AddressScope(scopeID)
		if errors.Is(err, netres.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if scope.Owned {
			if err := m.svc.DeleteAddressScope(scopeID); err != nil {
				return err
			}
		}
	}

	ctx := &fabric.RoutingContext{
		Tenant: m.tenantName(rd.Tenant),
		Name:   m.routingContextName(rd),
	}
	if err := m.store.Delete(ctx); err != nil {
		return err
	}

	return m.dir.DeleteRoutingDomain(id)
}

// RoutingDomainStatus merges the routing context's convergence state with
// the native status of every attached router.
func (m *DomainMapper) RoutingDomainStatus(id string) (string, error) {
	rd, err := m.dir.RoutingDomain(id)
	if err != nil {
		return policy.StatusError, err
	}

	ctx := &fabric.RoutingContext{
		Tenant: m.tenantName(rd.Tenant),
		Name:   m.routingContextName(rd),
	}
	sync, err := m.store.Status(ctx)
	if err != nil {
		return policy.StatusError, err
	}
	statuses := []string{status.FromSync(sync)}

	for _, routerID := range rd.Routers {
		router, err := m.svc.Router(routerID)
		if errors.Is(err, netres.ErrNotFound) {
			statuses = append(statuses, policy.StatusBuild)
			continue
		}
		if err != nil {
			return policy.StatusError, err
		}
		if router.Status == "" {
			statuses = append(statuses, policy.StatusActive)
		} else {
			statuses = append(statuses, router.Status)
		}
	}

	return status.Merge(statuses), nil
}

// plugSegment creates the gateway router for an external segment, applies
// the tenant's external policy contracts to it and attaches it to every
// subnet of the domain's bridging domains.
func (m *DomainMapper) plugSegment(rd *policy.RoutingDomain, segID string) error {
	seg, err := m.dir.ExternalSegment(segID)
	if err != nil {
		return err
	}

	router := &netres.Router{
		Tenant: rd.Tenant,
		Name:   m.names.Name(segID, seg.Name, "gw_"),
		Owned:  true,
	}
	if err := m.svc.CreateRouter(router); err != nil {
		return err
	}
	if rd.SegmentRouters == nil {
		rd.SegmentRouters = map[string]string{}
	}
	rd.SegmentRouters[segID] = router.ID

	if err := m.applyExternalContracts(rd.Tenant, router); err != nil {
		return err
	}

	domains, err := m.dir.BridgingDomainsByTenant(rd.Tenant)
	if err != nil {
		return err
	}
	for _, bd := range domains {
		if bd.RoutingDomainID != rd.ID {
			continue
		}
		subnets, err := m.svc.SubnetsByNetwork(bd.NetworkID)
		if err != nil {
			return err
		}
		if err := m.implicit.AttachRouter(router.ID, subnets); err != nil {
			return err
		}
	}
	return nil
}

// unplugSegment detaches and reclaims the segment's gateway router.
func (m *DomainMapper) unplugSegment(rd *policy.RoutingDomain, segID string) error {
	routerID, ok := rd.SegmentRouters[segID]
	if !ok {
		log.Warnf("external segment %q has no gateway router on %q", segID, rd.ID)
		return nil
	}

	ifaces, err := m.svc.RouterInterfaces(routerID)
	if err != nil {
		return err
	}
	subnetIDs := []string{}
	for _, port := range ifaces {
		for _, fip := range port.FixedIPs {
			subnetIDs = append(subnetIDs, fip.SubnetID)
		}
	}
	if err := m.implicit.DetachRouter(routerID, subnetIDs); err != nil {
		return err
	}

	if err := m.svc.DeleteRouter(routerID); err != nil && !errors.Is(err, netres.ErrNotFound) {
		return err
	}
	delete(rd.SegmentRouters, segID)
	return nil
}

// applyExternalContracts programs the tenant's external policy contract
// lists onto the router, if such a policy exists.
func (m *DomainMapper) applyExternalContracts(tenant string, router *netres.Router) error {
	policies, err := m.dir.ExternalPoliciesByTenant(tenant)
	if err != nil {
		return err
	}
	if len(policies) == 0 {
		return nil
	}

	provided, consumed, err := m.externalContractNames(policies[0])
	if err != nil {
		return err
	}
	router.ProvidedContracts = provided
	router.ConsumedContracts = consumed
	return m.svc.UpdateRouter(router)
}
