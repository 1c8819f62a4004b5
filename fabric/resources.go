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

// Package fabric holds the derived fabric policy objects and the store
// writing them for the external fabric controller to converge on. Objects
// are identified by tenant-scoped name and persisted as JSON state.
package fabric

import (
	"encoding/json"
	"fmt"

	"github.com/netforge/fabricmap/core"
)

const (
	configPathPrefix = "/fabricmap/fabric/%s/"
	configPath       = configPathPrefix + "%s"
)

// Resource kinds, used as path segments in the store.
const (
	KindRoutingContext  = "routing-context"
	KindBridgeObject    = "bridge-object"
	KindFabricGroup     = "fabric-group"
	KindFilter          = "filter"
	KindFilterEntry     = "filter-entry"
	KindContract        = "contract"
	KindContractSubject = "contract-subject"
)

// Resource is implemented by every fabric object handled by the Store.
// KeyID is the tenant-scoped identity used as the state key.
type Resource interface {
	core.State
	Kind() string
	KeyID() string
	Common() *core.CommonState
}

// Port sentinel used by filter entries when a bound is not constrained.
const Unspecified = "unspecified"

// RoutingContext is the fabric VRF backing a routing domain's address scope.
type RoutingContext struct {
	core.CommonState
	Tenant      string `json:"tenant"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// Kind of the resource.
func (s *RoutingContext) Kind() string { return KindRoutingContext }

// KeyID is the tenant-scoped identity.
func (s *RoutingContext) KeyID() string { return s.Tenant + ":" + s.Name }

// Common returns the embedded state header.
func (s *RoutingContext) Common() *core.CommonState { return &s.CommonState }

// Write the state.
func (s *RoutingContext) Write() error {
	key := fmt.Sprintf(configPath, KindRoutingContext, s.ID)
	return s.StateDriver.WriteState(key, s, json.Marshal)
}

// Read the state for a given identifier.
func (s *RoutingContext) Read(id string) error {
	key := fmt.Sprintf(configPath, KindRoutingContext, id)
	return s.StateDriver.ReadState(key, s, json.Unmarshal)
}

// ReadAll state and return the collection.
func (s *RoutingContext) ReadAll() ([]core.State, error) {
	return s.StateDriver.ReadAllState(fmt.Sprintf(configPathPrefix, KindRoutingContext),
		s, json.Unmarshal)
}

// Clear removes the state.
func (s *RoutingContext) Clear() error {
	key := fmt.Sprintf(configPath, KindRoutingContext, s.ID)
	return s.StateDriver.ClearState(key)
}

// BridgeObject is the fabric bridge domain backing a bridging domain's
// network.
type BridgeObject struct {
	core.CommonState
	Tenant             string `json:"tenant"`
	Name               string `json:"name"`
	DisplayName        string `json:"displayName"`
	RoutingContextName string `json:"routingContextName"`
	EnableRouting      bool   `json:"enableRouting"`
}

func (s *BridgeObject) Kind() string              { return KindBridgeObject }
func (s *BridgeObject) KeyID() string             { return s.Tenant + ":" + s.Name }
func (s *BridgeObject) Common() *core.CommonState { return &s.CommonState }

// Write the state.
func (s *BridgeObject) Write() error {
	key := fmt.Sprintf(configPath, KindBridgeObject, s.ID)
	return s.StateDriver.WriteState(key, s, json.Marshal)
}

// Read the state for a given identifier.
func (s *BridgeObject) Read(id string) error {
	key := fmt.Sprintf(configPath, KindBridgeObject, id)
	return s.StateDriver.ReadState(key, s, json.Unmarshal)
}

// ReadAll state and return the collection.
func (s *BridgeObject) ReadAll() ([]core.State, error) {
	return s.StateDriver.ReadAllState(fmt.Sprintf(configPathPrefix, KindBridgeObject),
		s, json.Unmarshal)
}

// Clear removes the state.
func (s *BridgeObject) Clear() error {
	key := fmt.Sprintf(configPath, KindBridgeObject, s.ID)
	return s.StateDriver.ClearState(key)
}

// FabricGroup is the fabric endpoint group derived from a policy endpoint
// group. Contract membership is kept as name lists so manually attached
// contracts survive updates.
type FabricGroup struct {
	core.CommonState
	Tenant            string   `json:"tenant"`
	Name              string   `json:"name"`
	DisplayName       string   `json:"displayName"`
	BridgeName        string   `json:"bridgeName"`
	ProvidedContracts []string `json:"providedContracts"`
	ConsumedContracts []string `json:"consumedContracts"`
	DomainBindings    []string `json:"domainBindings"`
}

func (s *FabricGroup) Kind() string              { return KindFabricGroup }
func (s *FabricGroup) KeyID() string             { return s.Tenant + ":" + s.Name }
func (s *FabricGroup) Common() *core.CommonState { return &s.CommonState }

// Write the state.
func (s *FabricGroup) Write() error {
	key := fmt.Sprintf(configPath, KindFabricGroup, s.ID)
	return s.StateDriver.WriteState(key, s, json.Marshal)
}

// Read the state for a given identifier.
func (s *FabricGroup) Read(id string) error {
	key := fmt.Sprintf(configPath, KindFabricGroup, id)
	return s.StateDriver.ReadState(key, s, json.Unmarshal)
}

// ReadAll state and return the collection.
func (s *FabricGroup) ReadAll() ([]core.State, error) {
	return s.StateDriver.ReadAllState(fmt.Sprintf(configPathPrefix, KindFabricGroup),
		s, json.Unmarshal)
}

// Clear removes the state.
func (s *FabricGroup) Clear() error {
	key := fmt.Sprintf(configPath, KindFabricGroup, s.ID)
	return s.StateDriver.ClearState(key)
}

// Filter is a named traffic filter holding entries.
type Filter struct {
	core.CommonState
	Tenant      string `json:"tenant"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

func (s *Filter) Kind() string              { return KindFilter }
func (s *Filter) KeyID() string             { return s.Tenant + ":" + s.Name }
func (s *Filter) Common() *core.CommonState { return &s.CommonState }

// Write the state.
func (s *Filter) Write() error {
	key := fmt.Sprintf(configPath, KindFilter, s.ID)
	return s.StateDriver.WriteState(key, s, json.Marshal)
}

// Read the state for a given identifier.
func (s *Filter) Read(id string) error {
	key := fmt.Sprintf(configPath, KindFilter, id)
	return s.StateDriver.ReadState(key, s, json.Unmarshal)
}

// ReadAll state and return the collection.
func (s *Filter) ReadAll() ([]core.State, error) {
	return s.StateDriver.ReadAllState(fmt.Sprintf(configPathPrefix, KindFilter),
		s, json.Unmarshal)
}

// Clear removes the state.
func (s *Filter) Clear() error {
	key := fmt.Sprintf(configPath, KindFilter, s.ID)
	return s.StateDriver.ClearState(key)
}

// FilterEntry is one match clause of a Filter. Identity nests under the
// owning filter name.
type FilterEntry struct {
	core.CommonState
	Tenant      string `json:"tenant"`
	FilterName  string `json:"filterName"`
	Name        string `json:"name"`
	EtherType   string `json:"etherType"`
	ARPOpcode   string `json:"arpOpcode"`
	Protocol    string `json:"protocol"`
	ICMPv4Type  string `json:"icmpv4Type"`
	SrcFromPort string `json:"srcFromPort"`
	SrcToPort   string `json:"srcToPort"`
	DstFromPort string `json:"dstFromPort"`
	DstToPort   string `json:"dstToPort"`
	TCPFlags    string `json:"tcpFlags"`
}

func (s *FilterEntry) Kind() string  { return KindFilterEntry }
func (s *FilterEntry) KeyID() string { return s.Tenant + ":" + s.FilterName + ":" + s.Name }

func (s *FilterEntry) Common() *core.CommonState { return &s.CommonState }

// Write the state.
func (s *FilterEntry) Write() error {
	key := fmt.Sprintf(configPath, KindFilterEntry, s.ID)
	return s.StateDriver.WriteState(key, s, json.Marshal)
}

// Read the state for a given identifier.
func (s *FilterEntry) Read(id string) error {
	key := fmt.Sprintf(configPath, KindFilterEntry, id)
	return s.StateDriver.ReadState(key, s, json.Unmarshal)
}

// ReadAll state and return the collection.
func (s *FilterEntry) ReadAll() ([]core.State, error) {
	return s.StateDriver.ReadAllState(fmt.Sprintf(configPathPrefix, KindFilterEntry),
		s, json.Unmarshal)
}

// Clear removes the state.
func (s *FilterEntry) Clear() error {
	key := fmt.Sprintf(configPath, KindFilterEntry, s.ID)
	return s.StateDriver.ClearState(key)
}

// Contract is the fabric contract derived from a traffic rule set.
type Contract struct {
	core.CommonState
	Tenant      string `json:"tenant"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

func (s *Contract) Kind() string              { return KindContract }
func (s *Contract) KeyID() string             { return s.Tenant + ":" + s.Name }
func (s *Contract) Common() *core.CommonState { return &s.CommonState }

// Write the state.
func (s *Contract) Write() error {
	key := fmt.Sprintf(configPath, KindContract, s.ID)
	return s.StateDriver.WriteState(key, s, json.Marshal)
}

// Read the state for a given identifier.
func (s *Contract) Read(id string) error {
	key := fmt.Sprintf(configPath, KindContract, id)
	return s.StateDriver.ReadState(key, s, json.Unmarshal)
}

// ReadAll state and return the collection.
func (s *Contract) ReadAll() ([]core.State, error) {
	return s.StateDriver.ReadAllState(fmt.Sprintf(configPathPrefix, KindContract),
		s, json.Unmarshal)
}

// Clear removes the state.
func (s *Contract) Clear() error {
	key := fmt.Sprintf(configPath, KindContract, s.ID)
	return s.StateDriver.ClearState(key)
}

// ContractSubject carries the filter partition of a contract. Identity
// nests under the owning contract name.
type ContractSubject struct {
	core.CommonState
	Tenant       string   `json:"tenant"`
	ContractName string   `json:"contractName"`
	Name         string   `json:"name"`
	InFilters    []string `json:"inFilters"`
	OutFilters   []string `json:"outFilters"`
	BiFilters    []string `json:"biFilters"`
}

func (s *ContractSubject) Kind() string  { return KindContractSubject }
func (s *ContractSubject) KeyID() string { return s.Tenant + ":" + s.ContractName + ":" + s.Name }

func (s *ContractSubject) Common() *core.CommonState { return &s.CommonState }

// Write the state.
func (s *ContractSubject) Write() error {
	key := fmt.Sprintf(configPath, KindContractSubject, s.ID)
	return s.StateDriver.WriteState(key, s, json.Marshal)
}

// Read the state for a given identifier.
func (s *ContractSubject) Read(id string) error {
	key := fmt.Sprintf(configPath, KindContractSubject, id)
	return s.StateDriver.ReadState(key, s, json.Unmarshal)
}

// ReadAll state and return the collection.
func (s *ContractSubject) ReadAll() ([]core.State, error) {
	return s.StateDriver.ReadAllState(fmt.Sprintf(configPathPrefix, KindContractSubject),
		s, json.Unmarshal)
}

// Clear removes the state.
func (s *ContractSubject) Clear() error {
	key := fmt.Sprintf(configPath, KindContractSubject, s.ID)
	return s.StateDriver.ClearState(key)
}
