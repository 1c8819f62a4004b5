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

package policy

import (
	"sync"
)

// Directory is the engine's read/write view of the caller-owned policy
// objects. Lookups of missing ids return ErrNotFound.
type Directory interface {
	RoutingDomain(id string) (*RoutingDomain, error)
	SaveRoutingDomain(rd *RoutingDomain) error
	DeleteRoutingDomain(id string) error
	RoutingDomainsByTenant(tenant string) ([]*RoutingDomain, error)

	BridgingDomain(id string) (*BridgingDomain, error)
	SaveBridgingDomain(bd *BridgingDomain) error
	DeleteBridgingDomain(id string) error
	BridgingDomainsByTenant(tenant string) ([]*BridgingDomain, error)

	EndpointGroup(id string) (*EndpointGroup, error)
	SaveEndpointGroup(group *EndpointGroup) error
	DeleteEndpointGroup(id string) error
	EndpointGroupsByBridgingDomain(bdID string) ([]*EndpointGroup, error)

	Endpoint(id string) (*Endpoint, error)
	SaveEndpoint(ep *Endpoint) error
	DeleteEndpoint(id string) error

	TrafficRule(id string) (*TrafficRule, error)
	SaveTrafficRule(rule *TrafficRule) error
	DeleteTrafficRule(id string) error

	TrafficRuleSet(id string) (*TrafficRuleSet, error)
	SaveTrafficRuleSet(set *TrafficRuleSet) error
	DeleteTrafficRuleSet(id string) error

	ExternalSegment(id string) (*ExternalSegment, error)
	SaveExternalSegment(seg *ExternalSegment) error
	DeleteExternalSegment(id string) error

	ExternalPolicy(id string) (*ExternalPolicy, error)
	SaveExternalPolicy(pol *ExternalPolicy) error
	DeleteExternalPolicy(id string) error
	ExternalPoliciesByTenant(tenant string) ([]*ExternalPolicy, error)
}

// MemDirectory is an in-memory Directory used by tests and the default
// daemon wiring. Getters return copies so callers cannot mutate stored
// objects behind the directory's back.
type MemDirectory struct {
	mutex           sync.RWMutex
	routingDomains  map[string]RoutingDomain
	bridgingDomains map[string]BridgingDomain
	groups          map[string]EndpointGroup
	endpoints       map[string]Endpoint
	rules           map[string]TrafficRule
	ruleSets        map[string]TrafficRuleSet
	segments        map[string]ExternalSegment
	policies        map[string]ExternalPolicy
}

// NewMemDirectory returns an empty directory.
func NewMemDirectory() *MemDirectory {
	return &MemDirectory{
		routingDomains:  make(map[string]RoutingDomain),
		bridgingDomains: make(map[string]BridgingDomain),
		groups:          make(map[string]EndpointGroup),
		endpoints:       make(map[string]Endpoint),
		rules:           make(map[string]TrafficRule),
		ruleSets:        make(map[string]TrafficRuleSet),
		segments:        make(map[string]ExternalSegment),
		policies:        make(map[string]ExternalPolicy),
	}
}

// RoutingDomain looks up a routing domain by id.
func (d *MemDirectory) RoutingDomain(id string) (*RoutingDomain, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	rd, ok := d.routingDomains[id]
	if !ok {
		return nil, ErrNotFound
	}
	rd.SubnetPoolsV4 = append([]string(nil), rd.SubnetPoolsV4...)
	rd.SubnetPoolsV6 = append([]string(nil), rd.SubnetPoolsV6...)
	rd.Routers = append([]string(nil), rd.Routers...)
	rd.ExternalSegments = append([]string(nil), rd.ExternalSegments...)
	if rd.SegmentRouters != nil {
		copied := make(map[string]string, len(rd.SegmentRouters))
		for k, v := range rd.SegmentRouters {
			copied[k] = v
		}
		rd.SegmentRouters = copied
	}
	return &rd, nil
}

// SaveRoutingDomain stores or replaces a routing domain.
func (d *MemDirectory) SaveRoutingDomain(rd *RoutingDomain) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.routingDomains[rd.ID] = *rd
	return nil
}

// DeleteRoutingDomain removes a routing domain by id.
func (d *MemDirectory) DeleteRoutingDomain(id string) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if _, ok := d.routingDomains[id]; !ok {
		return ErrNotFound
	}
	delete(d.routingDomains, id)
	return nil
}

// RoutingDomainsByTenant lists the tenant's routing domains.
func (d *MemDirectory) RoutingDomainsByTenant(tenant string) ([]*RoutingDomain, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	domains := []*RoutingDomain{}
	for _, rd := range d.routingDomains {
		if rd.Tenant == tenant {
			rd := rd
			domains = append(domains, &rd)
		}
	}
	return domains, nil
}

// BridgingDomain looks up a bridging domain by id.
func (d *MemDirectory) BridgingDomain(id string) (*BridgingDomain, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	bd, ok := d.bridgingDomains[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &bd, nil
}

// SaveBridgingDomain stores or replaces a bridging domain.
func (d *MemDirectory) SaveBridgingDomain(bd *BridgingDomain) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.bridgingDomains[bd.ID] = *bd
	return nil
}

// DeleteBridgingDomain removes a bridging domain by id.
func (d *MemDirectory) DeleteBridgingDomain(id string) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if _, ok := d.bridgingDomains[id]; !ok {
		return ErrNotFound
	}
	delete(d.bridgingDomains, id)
	return nil
}

// BridgingDomainsByTenant lists the tenant's bridging domains.
func (d *MemDirectory) BridgingDomainsByTenant(tenant string) ([]*BridgingDomain, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	domains := []*BridgingDomain{}
	for _, bd := range d.bridgingDomains {
		if bd.Tenant == tenant {
			bd := bd
			domains = append(domains, &bd)
		}
	}
	return domains, nil
}

// EndpointGroup looks up an endpoint group by id.
func (d *MemDirectory) EndpointGroup(id string) (*EndpointGroup, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	group, ok := d.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	group.SubnetIDs = append([]string(nil), group.SubnetIDs...)
	group.ProvidedRuleSets = append([]string(nil), group.ProvidedRuleSets...)
	group.ConsumedRuleSets = append([]string(nil), group.ConsumedRuleSets...)
	return &group, nil
}

// SaveEndpointGroup stores or replaces an endpoint group.
func (d *MemDirectory) SaveEndpointGroup(group *EndpointGroup) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.groups[group.ID] = *group
	return nil
}

// DeleteEndpointGroup removes an endpoint group by id.
func (d *MemDirectory) DeleteEndpointGroup(id string) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if _, ok := d.groups[id]; !ok {
		return ErrNotFound
	}
	delete(d.groups, id)
	return nil
}

// EndpointGroupsByBridgingDomain lists the groups under a bridging domain.
func (d *MemDirectory) EndpointGroupsByBridgingDomain(bdID string) ([]*EndpointGroup, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	groups := []*EndpointGroup{}
	for _, group := range d.groups {
		if group.BridgingDomainID == bdID {
			group := group
			groups = append(groups, &group)
		}
	}
	return groups, nil
}

// Endpoint looks up an endpoint by id.
func (d *MemDirectory) Endpoint(id string) (*Endpoint, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	ep, ok := d.endpoints[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ep, nil
}

// SaveEndpoint stores or replaces an endpoint.
func (d *MemDirectory) SaveEndpoint(ep *Endpoint) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.endpoints[ep.ID] = *ep
	return nil
}

// DeleteEndpoint removes an endpoint by id.
func (d *MemDirectory) DeleteEndpoint(id string) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if _, ok := d.endpoints[id]; !ok {
		return ErrNotFound
	}
	delete(d.endpoints, id)
	return nil
}

// TrafficRule looks up a traffic rule by id.
func (d *MemDirectory) TrafficRule(id string) (*TrafficRule, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	rule, ok := d.rules[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rule, nil
}

// SaveTrafficRule stores or replaces a traffic rule.
func (d *MemDirectory) SaveTrafficRule(rule *TrafficRule) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.rules[rule.ID] = *rule
	return nil
}

// DeleteTrafficRule removes a traffic rule by id.
func (d *MemDirectory) DeleteTrafficRule(id string) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if _, ok := d.rules[id]; !ok {
		return ErrNotFound
	}
	delete(d.rules, id)
	return nil
}

// TrafficRuleSet looks up a rule set by id.
func (d *MemDirectory) TrafficRuleSet(id string) (*TrafficRuleSet, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	set, ok := d.ruleSets[id]
	if !ok {
		return nil, ErrNotFound
	}
	set.RuleIDs = append([]string(nil), set.RuleIDs...)
	set.ChildRuleSetIDs = append([]string(nil), set.ChildRuleSetIDs...)
	return &set, nil
}

// SaveTrafficRuleSet stores or replaces a rule set.
func (d *MemDirectory) SaveTrafficRuleSet(set *TrafficRuleSet) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.ruleSets[set.ID] = *set
	return nil
}

// DeleteTrafficRuleSet removes a rule set by id.
func (d *MemDirectory) DeleteTrafficRuleSet(id string) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if _, ok := d.ruleSets[id]; !ok {
		return ErrNotFound
	}
	delete(d.ruleSets, id)
	return nil
}

// ExternalSegment looks up an external segment by id.
func (d *MemDirectory) ExternalSegment(id string) (*ExternalSegment, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	seg, ok := d.segments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &seg, nil
}

// SaveExternalSegment stores or replaces an external segment.
func (d *MemDirectory) SaveExternalSegment(seg *ExternalSegment) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.segments[seg.ID] = *seg
	return nil
}

// DeleteExternalSegment removes an external segment by id.
func (d *MemDirectory) DeleteExternalSegment(id string) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if _, ok := d.segments[id]; !ok {
		return ErrNotFound
	}
	delete(d.segments, id)
	return nil
}

// ExternalPolicy looks up an external policy by id.
func (d *MemDirectory) ExternalPolicy(id string) (*ExternalPolicy, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	pol, ok := d.policies[id]
	if !ok {
		return nil, ErrNotFound
	}
	pol.ExternalSegmentIDs = append([]string(nil), pol.ExternalSegmentIDs...)
	pol.ProvidedRuleSets = append([]string(nil), pol.ProvidedRuleSets...)
	pol.ConsumedRuleSets = append([]string(nil), pol.ConsumedRuleSets...)
	return &pol, nil
}

// SaveExternalPolicy stores or replaces an external policy.
func (d *MemDirectory) SaveExternalPolicy(pol *ExternalPolicy) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.policies[pol.ID] = *pol
	return nil
}

// DeleteExternalPolicy removes an external policy by id.
func (d *MemDirectory) DeleteExternalPolicy(id string) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if _, ok := d.policies[id]; !ok {
		return ErrNotFound
	}
	delete(d.policies, id)
	return nil
}

// ExternalPoliciesByTenant lists the tenant's external policies.
func (d *MemDirectory) ExternalPoliciesByTenant(tenant string) ([]*ExternalPolicy, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	policies := []*ExternalPolicy{}
	for _, pol := range d.policies {
		if pol.Tenant == tenant {
			pol := pol
			policies = append(policies, &pol)
		}
	}
	return policies, nil
}
