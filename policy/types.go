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

// Package policy defines the group-based policy objects fed into the
// mapping engine. These objects are owned by the caller; the engine reads
// them and derives fabric state.
package policy

// Rule directions used by classifiers and subject partitioning.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
	DirectionBi  = "bi"
)

// Status values reported per policy object.
const (
	StatusActive = "ACTIVE"
	StatusBuild  = "BUILD"
	StatusError  = "ERROR"
)

// RoutingDomain is an isolated L3 policy domain. One address family, at
// most one address scope, one or more subnet pools sharing that scope.
type RoutingDomain struct {
	ID                 string   `json:"id"`
	Tenant             string   `json:"tenant"`
	Name               string   `json:"name"`
	AddressFamily      int      `json:"addressFamily"`
	AddressScopeV4ID   string   `json:"addressScopeV4Id"`
	AddressScopeV6ID   string   `json:"addressScopeV6Id"`
	SubnetPoolsV4      []string `json:"subnetPoolsV4"`
	SubnetPoolsV6      []string `json:"subnetPoolsV6"`
	IPPool             string   `json:"ipPool"`
	SubnetPrefixLength int      `json:"subnetPrefixLength"`
	Routers            []string `json:"routers"`
	ExternalSegments   []string `json:"externalSegments"`
	// SegmentRouters records the gateway router plugged per external
	// segment, keyed by segment id.
	SegmentRouters map[string]string `json:"segmentRouters"`
	Shared         bool              `json:"shared"`
}

// BridgingDomain is an isolated L2 policy domain under one RoutingDomain.
type BridgingDomain struct {
	ID              string `json:"id"`
	Tenant          string `json:"tenant"`
	Name            string `json:"name"`
	RoutingDomainID string `json:"routingDomainId"`
	NetworkID       string `json:"networkId"`
	Shared          bool   `json:"shared"`

	// Owned marks domains synthesized for groups created without one;
	// they are reclaimed with their last group.
	Owned bool `json:"owned"`
}

// EndpointGroup is a set of endpoints under one BridgingDomain sharing
// provided/consumed rule sets. Its subnet set always mirrors the owning
// BridgingDomain's.
type EndpointGroup struct {
	ID               string   `json:"id"`
	Tenant           string   `json:"tenant"`
	Name             string   `json:"name"`
	BridgingDomainID string   `json:"bridgingDomainId"`
	SubnetIDs        []string `json:"subnetIds"`
	ProvidedRuleSets []string `json:"providedRuleSets"`
	ConsumedRuleSets []string `json:"consumedRuleSets"`
	Shared           bool     `json:"shared"`
}

// Endpoint is a policy target, optionally bound to a data-plane port.
type Endpoint struct {
	ID      string `json:"id"`
	Tenant  string `json:"tenant"`
	Name    string `json:"name"`
	GroupID string `json:"groupId"`
	PortID  string `json:"portId"`
}

// Classifier describes the traffic a rule matches. Direction and protocol
// are immutable after rule creation.
type Classifier struct {
	Protocol  string `json:"protocol"`
	Direction string `json:"direction"`
	PortRange string `json:"portRange"`
}

// TrafficRule is one policy rule with its classifier.
type TrafficRule struct {
	ID         string     `json:"id"`
	Tenant     string     `json:"tenant"`
	Name       string     `json:"name"`
	Classifier Classifier `json:"classifier"`
}

// TrafficRuleSet is an unordered collection of TrafficRules. Nested rule
// sets are rejected by the engine.
type TrafficRuleSet struct {
	ID              string   `json:"id"`
	Tenant          string   `json:"tenant"`
	Name            string   `json:"name"`
	RuleIDs         []string `json:"ruleIds"`
	ChildRuleSetIDs []string `json:"childRuleSetIds"`
	Shared          bool     `json:"shared"`
}

// ExternalSegment is an external connectivity point backed by an explicit
// subnet.
type ExternalSegment struct {
	ID            string `json:"id"`
	Tenant        string `json:"tenant"`
	Name          string `json:"name"`
	SubnetID      string `json:"subnetId"`
	CIDR          string `json:"cidr"`
	AddressFamily int    `json:"addressFamily"`
	Shared        bool   `json:"shared"`
}

// ExternalPolicy binds rule sets to one or more external segments.
type ExternalPolicy struct {
	ID                 string   `json:"id"`
	Tenant             string   `json:"tenant"`
	Name               string   `json:"name"`
	ExternalSegmentIDs []string `json:"externalSegmentIds"`
	ProvidedRuleSets   []string `json:"providedRuleSets"`
	ConsumedRuleSets   []string `json:"consumedRuleSets"`
	Shared             bool     `json:"shared"`
}
