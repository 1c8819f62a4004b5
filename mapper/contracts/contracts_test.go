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

package contracts

import (
	"errors"
	"testing"

	"github.com/netforge/fabricmap/fabric"
	"github.com/netforge/fabricmap/mapper/names"
	"github.com/netforge/fabricmap/policy"
	"github.com/netforge/fabricmap/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenant = "prj_t1"

func newTestEngine(t *testing.T) (*Engine, *fabric.Store) {
	driver := &state.FakeStateDriver{}
	require.NoError(t, driver.Init(nil))
	store := fabric.NewStore(driver)
	return NewEngine(store, names.New()), store
}

func tcpRule(id, direction string) *policy.TrafficRule {
	return &policy.TrafficRule{
		ID:     id,
		Tenant: "t1",
		Name:   "rule-" + id,
		Classifier: policy.Classifier{
			Protocol:  "tcp",
			Direction: direction,
			PortRange: "80",
		},
	}
}

func TestCreateRuleWritesBothFilters(t *testing.T) {
	engine, store := newTestEngine(t)

	rule := tcpRule("r1", policy.DirectionIn)
	require.NoError(t, engine.CreateRule(tenant, rule))

	forward, reverse, reversible := engine.FilterNames(rule)
	require.True(t, reversible)

	found, err := store.Get(&fabric.Filter{Tenant: tenant, Name: forward})
	require.NoError(t, err)
	assert.True(t, found)

	found, err = store.Get(&fabric.Filter{Tenant: tenant, Name: reverse})
	require.NoError(t, err)
	assert.True(t, found)

	entry := &fabric.FilterEntry{Tenant: tenant, FilterName: reverse, Name: "reverse"}
	found, err = store.Get(entry)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "established", entry.TCPFlags)
	assert.Equal(t, "80", entry.SrcFromPort)
	assert.Equal(t, fabric.Unspecified, entry.DstFromPort)
}

func TestCreateRuleNonReversible(t *testing.T) {
	engine, store := newTestEngine(t)

	rule := &policy.TrafficRule{
		ID: "r1", Tenant: "t1", Name: "allow-igmp",
		Classifier: policy.Classifier{Protocol: "igmp", Direction: policy.DirectionBi},
	}
	require.NoError(t, engine.CreateRule(tenant, rule))

	_, reverse, reversible := engine.FilterNames(rule)
	assert.False(t, reversible)
	assert.Empty(t, reverse)

	filters, err := store.Find(&fabric.Filter{}, tenant)
	require.NoError(t, err)
	assert.Len(t, filters, 1)
}

func TestCreateRuleICMPReverseEntries(t *testing.T) {
	engine, store := newTestEngine(t)

	rule := &policy.TrafficRule{
		ID: "r1", Tenant: "t1", Name: "ping",
		Classifier: policy.Classifier{Protocol: "icmp", Direction: policy.DirectionBi},
	}
	require.NoError(t, engine.CreateRule(tenant, rule))

	_, reverse, _ := engine.FilterNames(rule)
	for _, icmpType := range []string{"echo-rep", "dst-unreach", "ttl-exceeded"} {
		entry := &fabric.FilterEntry{Tenant: tenant, FilterName: reverse, Name: "reverse-" + icmpType}
		found, err := store.Get(entry)
		require.NoError(t, err)
		require.True(t, found, icmpType)
		assert.Equal(t, icmpType, entry.ICMPv4Type)
	}
}

func TestDeleteRuleRemovesEverything(t *testing.T) {
	engine, store := newTestEngine(t)

	rule := tcpRule("r1", policy.DirectionIn)
	require.NoError(t, engine.CreateRule(tenant, rule))
	require.NoError(t, engine.DeleteRule(tenant, rule))

	filters, err := store.Find(&fabric.Filter{}, tenant)
	require.NoError(t, err)
	assert.Empty(t, filters)

	entries, err := store.Find(&fabric.FilterEntry{}, tenant)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpdateRuleRejectsDirectionChange(t *testing.T) {
	engine, _ := newTestEngine(t)

	old := tcpRule("r1", policy.DirectionIn)
	updated := tcpRule("r1", policy.DirectionOut)
	err := engine.UpdateRule(tenant, old, updated)
	assert.True(t, errors.Is(err, policy.ErrClassifierUpdateNotSupported))

	changedProto := tcpRule("r1", policy.DirectionIn)
	changedProto.Classifier.Protocol = "udp"
	err = engine.UpdateRule(tenant, old, changedProto)
	assert.True(t, errors.Is(err, policy.ErrClassifierUpdateNotSupported))
}

func TestUpdateRuleStaysMapped(t *testing.T) {
	engine, store := newTestEngine(t)

	rule := tcpRule("r1", policy.DirectionIn)
	require.NoError(t, engine.CreateRule(tenant, rule))

	updated := tcpRule("r1", policy.DirectionIn)
	updated.Classifier.PortRange = "8080:8090"
	require.NoError(t, engine.UpdateRule(tenant, rule, updated))

	forward, _, _ := engine.FilterNames(updated)
	entry := &fabric.FilterEntry{Tenant: tenant, FilterName: forward, Name: "forward"}
	found, err := store.Get(entry)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "8080", entry.DstFromPort)
	assert.Equal(t, "8090", entry.DstToPort)
}

func TestRuleSetPartition(t *testing.T) {
	engine, store := newTestEngine(t)

	// three rules, two reversible: subject carries N+k = 5 names
	rules := []*policy.TrafficRule{
		tcpRule("r1", policy.DirectionIn),
		tcpRule("r2", policy.DirectionBi),
		{
			ID: "r3", Tenant: "t1", Name: "allow-igmp",
			Classifier: policy.Classifier{Protocol: "igmp", Direction: policy.DirectionOut},
		},
	}
	set := &policy.TrafficRuleSet{ID: "s1", Tenant: "t1", Name: "web",
		RuleIDs: []string{"r1", "r2", "r3"}}
	require.NoError(t, engine.CreateRuleSet(tenant, set, rules))

	subject := &fabric.ContractSubject{
		Tenant: tenant, ContractName: engine.ContractName(set), Name: SubjectName,
	}
	found, err := store.Get(subject)
	require.NoError(t, err)
	require.True(t, found)

	total := len(subject.InFilters) + len(subject.OutFilters) + len(subject.BiFilters)
	assert.Equal(t, 5, total)

	seen := map[string]bool{}
	for _, list := range [][]string{subject.InFilters, subject.OutFilters, subject.BiFilters} {
		for _, name := range list {
			assert.False(t, seen[name], "duplicate filter %q", name)
			seen[name] = true
		}
	}

	// in-rule forward lands in, its reverse in out
	fwd1, rev1, _ := engine.FilterNames(rules[0])
	assert.Contains(t, subject.InFilters, fwd1)
	assert.Contains(t, subject.OutFilters, rev1)

	// bi-rule forward and reverse both land in bi
	fwd2, rev2, _ := engine.FilterNames(rules[1])
	assert.Contains(t, subject.BiFilters, fwd2)
	assert.Contains(t, subject.BiFilters, rev2)
}

func TestRuleSetRejectsChildren(t *testing.T) {
	engine, store := newTestEngine(t)

	set := &policy.TrafficRuleSet{ID: "s1", Tenant: "t1", ChildRuleSetIDs: []string{"s2"}}
	err := engine.CreateRuleSet(tenant, set, nil)
	assert.True(t, errors.Is(err, policy.ErrHierarchicalRuleSetsNotSupported))

	contracts, err := store.Find(&fabric.Contract{}, tenant)
	require.NoError(t, err)
	assert.Empty(t, contracts)
}

func TestDeleteRuleSet(t *testing.T) {
	engine, store := newTestEngine(t)

	set := &policy.TrafficRuleSet{ID: "s1", Tenant: "t1", Name: "web"}
	require.NoError(t, engine.CreateRuleSet(tenant, set, nil))
	require.NoError(t, engine.DeleteRuleSet(tenant, set))

	contracts, err := store.Find(&fabric.Contract{}, tenant)
	require.NoError(t, err)
	assert.Empty(t, contracts)
}

func TestSharedContractsCreateIdempotent(t *testing.T) {
	engine, store := newTestEngine(t)

	group := &fabric.FabricGroup{Tenant: tenant, Name: "default"}
	require.NoError(t, store.Create(group, false))

	first, err := engine.SharedContracts(tenant, group, SharedOp{Create: true})
	require.NoError(t, err)

	snapshot := func() map[string]int {
		counts := map[string]int{}
		for _, proto := range []fabric.Resource{
			&fabric.Contract{}, &fabric.ContractSubject{},
			&fabric.Filter{}, &fabric.FilterEntry{},
		} {
			found, err := store.Find(proto, tenant)
			require.NoError(t, err)
			counts[proto.Kind()] = len(found)
		}
		return counts
	}
	before := snapshot()

	second, err := engine.SharedContracts(tenant, group, SharedOp{Create: true})
	require.NoError(t, err)
	assert.Equal(t, len(first), len(second))
	assert.Equal(t, before, snapshot())

	// group attachment: arp provided+consumed, svc provided only
	read := &fabric.FabricGroup{Tenant: tenant, Name: "default"}
	found, err := store.Get(read)
	require.NoError(t, err)
	require.True(t, found)
	arpName := ARPContractPrefix + tenant
	svcName := SvcContractPrefix + tenant
	assert.Contains(t, read.ProvidedContracts, arpName)
	assert.Contains(t, read.ConsumedContracts, arpName)
	assert.Contains(t, read.ProvidedContracts, svcName)
	assert.NotContains(t, read.ConsumedContracts, svcName)
}

func TestSharedContractsDelete(t *testing.T) {
	engine, store := newTestEngine(t)

	group := &fabric.FabricGroup{Tenant: tenant, Name: "default"}
	require.NoError(t, store.Create(group, false))
	_, err := engine.SharedContracts(tenant, group, SharedOp{Create: true})
	require.NoError(t, err)

	_, err = engine.SharedContracts(tenant, group, SharedOp{Delete: true})
	require.NoError(t, err)

	contracts, err := store.Find(&fabric.Contract{}, tenant)
	require.NoError(t, err)
	assert.Empty(t, contracts)

	read := &fabric.FabricGroup{Tenant: tenant, Name: "default"}
	_, err = store.Get(read)
	require.NoError(t, err)
	assert.Empty(t, read.ProvidedContracts)
	assert.Empty(t, read.ConsumedContracts)
}

func TestSharedContractsGetIsPure(t *testing.T) {
	engine, store := newTestEngine(t)

	group := &fabric.FabricGroup{Tenant: tenant, Name: "default"}
	resources, err := engine.SharedContracts(tenant, group, SharedOp{})
	require.NoError(t, err)
	assert.NotEmpty(t, resources)

	contracts, err := store.Find(&fabric.Contract{}, tenant)
	require.NoError(t, err)
	assert.Empty(t, contracts)
}

func TestSharedContractsCreateDeleteConflict(t *testing.T) {
	engine, _ := newTestEngine(t)

	group := &fabric.FabricGroup{Tenant: tenant, Name: "default"}
	_, err := engine.SharedContracts(tenant, group, SharedOp{Create: true, Delete: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create and delete")
}
