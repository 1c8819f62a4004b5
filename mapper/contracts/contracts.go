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

// Package contracts maps traffic rules and rule sets onto fabric filters,
// contracts and contract subjects, and manages the tenant-shared implicit
// contracts.
package contracts

import (
	"strings"

	"github.com/netforge/fabricmap/core"
	"github.com/netforge/fabricmap/fabric"
	"github.com/netforge/fabricmap/mapper/names"
	"github.com/netforge/fabricmap/policy"
)

// Protocols needing a return-path filter.
var reversibleProtocols = map[string]bool{
	"tcp":  true,
	"udp":  true,
	"icmp": true,
}

// ICMP reply types matched by a reverse icmp filter.
var icmpReplyTypes = []string{"echo-rep", "dst-unreach", "ttl-exceeded"}

// Shared-contract name prefixes.
const (
	ARPContractPrefix = "any-"
	SvcContractPrefix = "svc-"
)

// SubjectName is the single subject under every derived contract.
const SubjectName = "subject"

// Reversible tells whether the protocol needs a reverse filter.
func Reversible(protocol string) bool {
	return reversibleProtocols[strings.ToLower(protocol)]
}

// Engine derives contract-side fabric objects. All writes are
// overwrite-safe.
type Engine struct {
	store *fabric.Store
	names *names.Mapper
}

// NewEngine returns an Engine over the given store.
func NewEngine(store *fabric.Store, names *names.Mapper) *Engine {
	return &Engine{store: store, names: names}
}

// FilterNames returns the rule's forward filter name, its reverse filter
// name and whether the reverse filter exists for this protocol.
func (e *Engine) FilterNames(rule *policy.TrafficRule) (string, string, bool) {
	forward := e.names.Name(rule.ID, rule.Name, "")
	if !Reversible(rule.Classifier.Protocol) {
		return forward, "", false
	}
	return forward, e.names.Reverse(rule.ID, rule.Name), true
}

// CreateRule writes the rule's forward filter and entries, plus the
// reverse filter when the protocol has a return path.
func (e *Engine) CreateRule(tenant string, rule *policy.TrafficRule) error {
	for _, res := range e.RuleResources(tenant, rule) {
		if err := e.store.Create(res, true); err != nil {
			return err
		}
	}
	return nil
}

// UpdateRule reapplies a rule after a classifier change. Direction and
// protocol are immutable; with them fixed the derived filter and entry
// names are stable, so the update is a set of in-place overwrites and the
// rule stays mapped at every point.
func (e *Engine) UpdateRule(tenant string, old, updated *policy.TrafficRule) error {
	if old.Classifier.Direction != updated.Classifier.Direction ||
		!strings.EqualFold(old.Classifier.Protocol, updated.Classifier.Protocol) {
		return policy.ErrClassifierUpdateNotSupported
	}
	return e.CreateRule(tenant, updated)
}

// DeleteRule removes the rule's entries, then its filters, then releases
// the names.
func (e *Engine) DeleteRule(tenant string, rule *policy.TrafficRule) error {
	resources := e.RuleResources(tenant, rule)
	// entries first, filters last
	for i := len(resources) - 1; i >= 0; i-- {
		if err := e.store.Delete(resources[i]); err != nil {
			return err
		}
	}

	forward, reverse, reversible := e.FilterNames(rule)
	e.names.Release(forward)
	if reversible {
		e.names.Release(reverse)
	}
	return nil
}

// RuleResources returns the fabric objects derived from the rule, filters
// before their entries.
func (e *Engine) RuleResources(tenant string, rule *policy.TrafficRule) []fabric.Resource {
	forward, reverse, reversible := e.FilterNames(rule)

	resources := []fabric.Resource{
		&fabric.Filter{Tenant: tenant, Name: forward, DisplayName: rule.Name},
	}
	if reversible {
		resources = append(resources,
			&fabric.Filter{Tenant: tenant, Name: reverse, DisplayName: rule.Name})
	}

	resources = append(resources, forwardEntry(tenant, forward, rule.Classifier))
	if reversible {
		resources = append(resources, reverseEntries(tenant, reverse, rule.Classifier)...)
	}
	return resources
}

// ContractName returns the fabric contract name of a rule set.
func (e *Engine) ContractName(set *policy.TrafficRuleSet) string {
	return e.names.Name(set.ID, set.Name, "")
}

// CreateRuleSet writes the rule set's contract and subject. The subject's
// in/out/bidirectional lists partition every member rule's forward and
// reverse filters by the rule's classifier direction; for a set of N rules
// with k reversible ones the partition holds N+k names with no duplicates.
func (e *Engine) CreateRuleSet(tenant string, set *policy.TrafficRuleSet,
	rules []*policy.TrafficRule) error {
	if len(set.ChildRuleSetIDs) > 0 {
		return policy.ErrHierarchicalRuleSetsNotSupported
	}

	contractName := e.ContractName(set)
	contract := &fabric.Contract{Tenant: tenant, Name: contractName, DisplayName: set.Name}
	if err := e.store.Create(contract, true); err != nil {
		return err
	}

	subject := &fabric.ContractSubject{
		Tenant:       tenant,
		ContractName: contractName,
		Name:         SubjectName,
		InFilters:    []string{},
		OutFilters:   []string{},
		BiFilters:    []string{},
	}
	for _, rule := range rules {
		forward, reverse, reversible := e.FilterNames(rule)
		switch rule.Classifier.Direction {
		case policy.DirectionIn:
			subject.InFilters = appendUnique(subject.InFilters, forward)
			if reversible {
				subject.OutFilters = appendUnique(subject.OutFilters, reverse)
			}
		case policy.DirectionOut:
			subject.OutFilters = appendUnique(subject.OutFilters, forward)
			if reversible {
				subject.InFilters = appendUnique(subject.InFilters, reverse)
			}
		default:
			subject.BiFilters = appendUnique(subject.BiFilters, forward)
			if reversible {
				subject.BiFilters = appendUnique(subject.BiFilters, reverse)
			}
		}
	}
	return e.store.Create(subject, true)
}

// DeleteRuleSet removes the subject, then the contract, then releases the
// contract name.
func (e *Engine) DeleteRuleSet(tenant string, set *policy.TrafficRuleSet) error {
	contractName := e.ContractName(set)
	subject := &fabric.ContractSubject{
		Tenant: tenant, ContractName: contractName, Name: SubjectName,
	}
	if err := e.store.Delete(subject); err != nil {
		return err
	}
	if err := e.store.Delete(&fabric.Contract{Tenant: tenant, Name: contractName}); err != nil {
		return err
	}
	e.names.Release(contractName)
	return nil
}

// RuleSetResources returns the contract-side fabric objects of a rule set.
func (e *Engine) RuleSetResources(tenant string, set *policy.TrafficRuleSet) []fabric.Resource {
	contractName := e.ContractName(set)
	return []fabric.Resource{
		&fabric.Contract{Tenant: tenant, Name: contractName},
		&fabric.ContractSubject{Tenant: tenant, ContractName: contractName, Name: SubjectName},
	}
}

func forwardEntry(tenant, filterName string, cls policy.Classifier) *fabric.FilterEntry {
	fromPort, toPort := splitPortRange(cls.PortRange)
	return &fabric.FilterEntry{
		Tenant:      tenant,
		FilterName:  filterName,
		Name:        "forward",
		EtherType:   "ip",
		Protocol:    strings.ToLower(cls.Protocol),
		SrcFromPort: fabric.Unspecified,
		SrcToPort:   fabric.Unspecified,
		DstFromPort: fromPort,
		DstToPort:   toPort,
	}
}

func reverseEntries(tenant, filterName string, cls policy.Classifier) []fabric.Resource {
	fromPort, toPort := splitPortRange(cls.PortRange)
	protocol := strings.ToLower(cls.Protocol)

	if protocol == "icmp" {
		entries := []fabric.Resource{}
		for _, icmpType := range icmpReplyTypes {
			entries = append(entries, &fabric.FilterEntry{
				Tenant:      tenant,
				FilterName:  filterName,
				Name:        "reverse-" + icmpType,
				EtherType:   "ip",
				Protocol:    protocol,
				ICMPv4Type:  icmpType,
				SrcFromPort: fabric.Unspecified,
				SrcToPort:   fabric.Unspecified,
				DstFromPort: fabric.Unspecified,
				DstToPort:   fabric.Unspecified,
			})
		}
		return entries
	}

	entry := &fabric.FilterEntry{
		Tenant:      tenant,
		FilterName:  filterName,
		Name:        "reverse",
		EtherType:   "ip",
		Protocol:    protocol,
		SrcFromPort: fromPort,
		SrcToPort:   toPort,
		DstFromPort: fabric.Unspecified,
		DstToPort:   fabric.Unspecified,
	}
	if protocol == "tcp" {
		entry.TCPFlags = "established"
	}
	return []fabric.Resource{entry}
}

func splitPortRange(portRange string) (string, string) {
	if portRange == "" {
		return fabric.Unspecified, fabric.Unspecified
	}
	if from, to, found := strings.Cut(portRange, ":"); found {
		return from, to
	}
	return portRange, portRange
}

func appendUnique(list []string, name string) []string {
	for _, existing := range list {
		if existing == name {
			return list
		}
	}
	return append(list, name)
}

func removeName(list []string, name string) []string {
	kept := list[:0]
	for _, existing := range list {
		if existing != name {
			kept = append(kept, existing)
		}
	}
	return kept
}

// SharedOp selects what SharedContracts does. The zero value is a pure
// read. Create and Delete are mutually exclusive.
type SharedOp struct {
	Create bool
	Delete bool
}

// SharedContracts manages the tenant-shared implicit contracts: the ARP
// contract (provided and consumed by the default group) and the
// infra-services contract (provided only). It returns every constituent
// fabric object. Requesting create and delete together is a programming
// error and fails immediately.
func (e *Engine) SharedContracts(tenant string, defaultGroup *fabric.FabricGroup,
	op SharedOp) ([]fabric.Resource, error) {
	if op.Create && op.Delete {
		return nil, core.Errorf("shared contracts for %q: create and delete requested together", tenant)
	}

	arpName := ARPContractPrefix + tenant
	svcName := SvcContractPrefix + tenant
	resources := sharedResources(tenant, arpName, svcName)

	if !op.Create && !op.Delete {
		return resources, nil
	}

	if op.Create {
		for _, res := range resources {
			if err := e.store.Create(res, true); err != nil {
				return nil, err
			}
		}
		defaultGroup.ProvidedContracts = appendUnique(defaultGroup.ProvidedContracts, arpName)
		defaultGroup.ConsumedContracts = appendUnique(defaultGroup.ConsumedContracts, arpName)
		defaultGroup.ProvidedContracts = appendUnique(defaultGroup.ProvidedContracts, svcName)
		return resources, e.store.Create(defaultGroup, true)
	}

	defaultGroup.ProvidedContracts = removeName(defaultGroup.ProvidedContracts, arpName)
	defaultGroup.ConsumedContracts = removeName(defaultGroup.ConsumedContracts, arpName)
	defaultGroup.ProvidedContracts = removeName(defaultGroup.ProvidedContracts, svcName)
	if err := e.store.Create(defaultGroup, true); err != nil {
		return nil, err
	}
	for i := len(resources) - 1; i >= 0; i-- {
		if err := e.store.Delete(resources[i]); err != nil {
			return nil, err
		}
	}
	return resources, nil
}

func sharedResources(tenant, arpName, svcName string) []fabric.Resource {
	resources := []fabric.Resource{
		&fabric.Contract{Tenant: tenant, Name: arpName, DisplayName: arpName},
		&fabric.Filter{Tenant: tenant, Name: arpName, DisplayName: arpName},
		&fabric.Contract{Tenant: tenant, Name: svcName, DisplayName: svcName},
		&fabric.Filter{Tenant: tenant, Name: svcName, DisplayName: svcName},
		&fabric.ContractSubject{
			Tenant: tenant, ContractName: arpName, Name: SubjectName,
			BiFilters: []string{arpName},
		},
		&fabric.ContractSubject{
			Tenant: tenant, ContractName: svcName, Name: SubjectName,
			BiFilters: []string{svcName},
		},
	}

	for _, opcode := range []string{"req", "reply"} {
		resources = append(resources, &fabric.FilterEntry{
			Tenant:      tenant,
			FilterName:  arpName,
			Name:        "arp-" + opcode,
			EtherType:   "arp",
			ARPOpcode:   opcode,
			SrcFromPort: fabric.Unspecified,
			SrcToPort:   fabric.Unspecified,
			DstFromPort: fabric.Unspecified,
			DstToPort:   fabric.Unspecified,
		})
	}

	svcEntries := []struct {
		name     string
		protocol string
		fromPort string
		toPort   string
	}{
		{"dhcp", "udp", "67", "68"},
		{"dns-udp", "udp", "53", "53"},
		{"dns-tcp", "tcp", "53", "53"},
		{"icmp", "icmp", fabric.Unspecified, fabric.Unspecified},
	}
	for _, svc := range svcEntries {
		resources = append(resources, &fabric.FilterEntry{
			Tenant:      tenant,
			FilterName:  svcName,
			Name:        svc.name,
			EtherType:   "ip",
			Protocol:    svc.protocol,
			SrcFromPort: fabric.Unspecified,
			SrcToPort:   fabric.Unspecified,
			DstFromPort: svc.fromPort,
			DstToPort:   svc.toPort,
		})
	}

	return resources
}
