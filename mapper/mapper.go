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

// Package mapper is the policy-mapping engine: it translates group-based
// policy objects into fabric policy objects and keeps ancillary network
// resources consistent with the mapping. One DomainMapper method per
// policy lifecycle event; every method runs inside the caller's
// transactional boundary and fails fast on the first error.
package mapper

import (
	"github.com/netforge/fabricmap/core"
	"github.com/netforge/fabricmap/fabric"
	"github.com/netforge/fabricmap/mapper/contracts"
	"github.com/netforge/fabricmap/mapper/implicit"
	"github.com/netforge/fabricmap/mapper/names"
	"github.com/netforge/fabricmap/netres"
	"github.com/netforge/fabricmap/policy"
)

// Config is the engine's configuration surface.
type Config struct {
	// AutoGroupEnabled synthesizes one endpoint group per bridging
	// domain at creation time.
	AutoGroupEnabled bool

	// DefaultPoolPrefix seeds implicitly allocated subnet pools.
	DefaultPoolPrefix string

	// DefaultPrefixLength is the subnet size carved from implicit pools.
	DefaultPrefixLength int

	// DefaultPoolPrefixV6 seeds implicit pools of v6 routing domains.
	DefaultPoolPrefixV6 string

	// DefaultPrefixLengthV6 is the subnet size carved from implicit v6
	// pools.
	DefaultPrefixLengthV6 int

	// DomainBindings are the deployment domains every fabric group is
	// bound to.
	DomainBindings []string
}

// defaultGroupPrefix names the per-bridging-domain default fabric group.
const defaultGroupPrefix = "default_"

// DomainMapper composes the mapping components over the two external
// collaborators. All dependencies are injected at construction.
type DomainMapper struct {
	dir       policy.Directory
	svc       netres.Service
	store     *fabric.Store
	names     *names.Mapper
	contracts *contracts.Engine
	implicit  *implicit.Manager
	cfg       Config
}

// New wires a DomainMapper.
func New(dir policy.Directory, svc netres.Service, store *fabric.Store,
	locks core.LockService, cfg Config) *DomainMapper {
	nm := names.New()
	return &DomainMapper{
		dir:       dir,
		svc:       svc,
		store:     store,
		names:     nm,
		contracts: contracts.NewEngine(store, nm),
		implicit:  implicit.NewManager(svc, dir, locks),
		cfg:       cfg,
	}
}

// tenantName maps a policy tenant id to the fabric tenant name.
func (m *DomainMapper) tenantName(tenantID string) string {
	return m.names.Tenant(tenantID)
}

// defaultGroupName names the default fabric group backing a bridging
// domain.
func (m *DomainMapper) defaultGroupName(bd *policy.BridgingDomain) string {
	return m.names.Name(bd.ID, bd.Name, defaultGroupPrefix)
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
	kept := []string{}
	for _, existing := range list {
		if existing != name {
			kept = append(kept, existing)
		}
	}
	return kept
}

func contains(list []string, name string) bool {
	for _, existing := range list {
		if existing == name {
			return true
		}
	}
	return false
}

// sameSet compares two string sets ignoring order.
func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, name := range a {
		if !contains(b, name) {
			return false
		}
	}
	return true
}
