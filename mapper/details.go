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
	"github.com/netforge/fabricmap/mapper/contracts"
	"github.com/netforge/fabricmap/policy"
)

// DetailCache memoizes directory lookups for the duration of one request
// so extending a page of objects does not refetch shared parents. It is
// not safe for concurrent use; build one per request and drop it.
type DetailCache struct {
	routingDomains  map[string]*policy.RoutingDomain
	bridgingDomains map[string]*policy.BridgingDomain
	ruleSets        map[string]*policy.TrafficRuleSet
}

// NewDetailCache returns an empty per-request cache.
func NewDetailCache() *DetailCache {
	return &DetailCache{
		routingDomains:  map[string]*policy.RoutingDomain{},
		bridgingDomains: map[string]*policy.BridgingDomain{},
		ruleSets:        map[string]*policy.TrafficRuleSet{},
	}
}

func (c *DetailCache) bridgingDomain(dir policy.Directory, id string) (*policy.BridgingDomain, error) {
	if bd, ok := c.bridgingDomains[id]; ok {
		return bd, nil
	}
	bd, err := dir.BridgingDomain(id)
	if err != nil {
		return nil, err
	}
	c.bridgingDomains[id] = bd
	return bd, nil
}

func (c *DetailCache) routingDomain(dir policy.Directory, id string) (*policy.RoutingDomain, error) {
	if rd, ok := c.routingDomains[id]; ok {
		return rd, nil
	}
	rd, err := dir.RoutingDomain(id)
	if err != nil {
		return nil, err
	}
	c.routingDomains[id] = rd
	return rd, nil
}

func (c *DetailCache) ruleSet(dir policy.Directory, id string) (*policy.TrafficRuleSet, error) {
	if set, ok := c.ruleSets[id]; ok {
		return set, nil
	}
	set, err := dir.TrafficRuleSet(id)
	if err != nil {
		return nil, err
	}
	c.ruleSets[id] = set
	return set, nil
}

// RoutingDomainDetails exposes the fabric mapping of a routing domain.
type RoutingDomainDetails struct {
	FabricTenant       string `json:"fabricTenant"`
	RoutingContextName string `json:"routingContextName"`
	Status             string `json:"status"`
}

// BridgingDomainDetails exposes the fabric mapping of a bridging domain.
type BridgingDomainDetails struct {
	FabricTenant       string `json:"fabricTenant"`
	BridgeName         string `json:"bridgeName"`
	DefaultGroupName   string `json:"defaultGroupName"`
	RoutingContextName string `json:"routingContextName"`
	Status             string `json:"status"`
}

// GroupDetails exposes the fabric mapping of an endpoint group.
type GroupDetails struct {
	FabricTenant string   `json:"fabricTenant"`
	GroupName    string   `json:"groupName"`
	BridgeName   string   `json:"bridgeName"`
	SubnetIDs    []string `json:"subnetIds"`
	Status       string   `json:"status"`
}

// RuleDetails exposes the fabric mapping of a traffic rule.
type RuleDetails struct {
	FabricTenant      string `json:"fabricTenant"`
	FilterName        string `json:"filterName"`
	ReverseFilterName string `json:"reverseFilterName,omitempty"`
	Status            string `json:"status"`
}

// RuleSetDetails exposes the fabric mapping of a traffic rule set.
type RuleSetDetails struct {
	FabricTenant string `json:"fabricTenant"`
	ContractName string `json:"contractName"`
	SubjectName  string `json:"subjectName"`
	Status       string `json:"status"`
}

// ExtendRoutingDomainDetails resolves a routing domain's fabric names and
// merged status.
func (m *DomainMapper) ExtendRoutingDomainDetails(cache *DetailCache,
	id string) (*RoutingDomainDetails, error) {
	rd, err := cache.routingDomain(m.dir, id)
	if err != nil {
		return nil, err
	}
	st, err := m.RoutingDomainStatus(id)
	if err != nil {
		return nil, err
	}
	return &RoutingDomainDetails{
		FabricTenant:       m.tenantName(rd.Tenant),
		RoutingContextName: m.routingContextName(rd),
		Status:             st,
	}, nil
}

// ExtendBridgingDomainDetails resolves a bridging domain's fabric names
// and merged status.
func (m *DomainMapper) ExtendBridgingDomainDetails(cache *DetailCache,
	id string) (*BridgingDomainDetails, error) {
	bd, err := cache.bridgingDomain(m.dir, id)
	if err != nil {
		return nil, err
	}

	routingContext := ""
	if bd.RoutingDomainID != "" {
		rd, err := cache.routingDomain(m.dir, bd.RoutingDomainID)
		if err != nil {
			return nil, err
		}
		routingContext = m.routingContextName(rd)
	}

	st, err := m.BridgingDomainStatus(id)
	if err != nil {
		return nil, err
	}
	return &BridgingDomainDetails{
		FabricTenant:       m.tenantName(bd.Tenant),
		BridgeName:         m.bridgeObjectName(bd),
		DefaultGroupName:   m.defaultGroupName(bd),
		RoutingContextName: routingContext,
		Status:             st,
	}, nil
}

// ExtendGroupDetails resolves an endpoint group's fabric names and status,
// sharing bridging-domain lookups through the cache.
func (m *DomainMapper) ExtendGroupDetails(cache *DetailCache,
	group *policy.EndpointGroup) (*GroupDetails, error) {
	bd, err := cache.bridgingDomain(m.dir, group.BridgingDomainID)
	if err != nil {
		return nil, err
	}
	st, err := m.EndpointGroupStatus(group.ID)
	if err != nil {
		return nil, err
	}
	return &GroupDetails{
		FabricTenant: m.tenantName(group.Tenant),
		GroupName:    m.fabricGroupName(group, bd),
		BridgeName:   m.bridgeObjectName(bd),
		SubnetIDs:    append([]string(nil), group.SubnetIDs...),
		Status:       st,
	}, nil
}

// ExtendRuleDetails resolves a traffic rule's filter names and status.
func (m *DomainMapper) ExtendRuleDetails(cache *DetailCache,
	rule *policy.TrafficRule) (*RuleDetails, error) {
	forward, reverse, reversible := m.contracts.FilterNames(rule)
	st, err := m.TrafficRuleStatus(rule.ID)
	if err != nil {
		return nil, err
	}
	details := &RuleDetails{
		FabricTenant: m.tenantName(rule.Tenant),
		FilterName:   forward,
		Status:       st,
	}
	if reversible {
		details.ReverseFilterName = reverse
	}
	return details, nil
}

// ExtendRuleSetDetails resolves a traffic rule set's contract name and
// status, sharing set lookups through the cache.
func (m *DomainMapper) ExtendRuleSetDetails(cache *DetailCache,
	id string) (*RuleSetDetails, error) {
	set, err := cache.ruleSet(m.dir, id)
	if err != nil {
		return nil, err
	}
	st, err := m.TrafficRuleSetStatus(id)
	if err != nil {
		return nil, err
	}
	return &RuleSetDetails{
		FabricTenant: m.tenantName(set.Tenant),
		ContractName: m.contracts.ContractName(set),
		SubjectName:  contracts.SubjectName,
		Status:       st,
	}, nil
}
