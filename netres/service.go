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

// Package netres models the external network-resource service the mapping
// engine allocates ancillary resources through. Resources created by the
// engine itself are tagged Owned; only owned resources are reclaimed on
// policy-object deletion.
package netres

import "errors"

var (
	// ErrNotFound reports a lookup miss.
	ErrNotFound = errors.New("network resource not found")

	// ErrGatewayConflict reports that a subnet's gateway address is
	// already consumed by an existing port.
	ErrGatewayConflict = errors.New("subnet gateway address is in use")
)

// DeviceOwnerRouterIface marks ports wired as router interfaces.
const DeviceOwnerRouterIface = "network:router_interface"

// Network is an L2 network backing a bridging domain.
type Network struct {
	ID     string `json:"id"`
	Tenant string `json:"tenant"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Owned  bool   `json:"owned"`
}

// Subnet is an address block carved on a network.
type Subnet struct {
	ID            string `json:"id"`
	Tenant        string `json:"tenant"`
	NetworkID     string `json:"networkId"`
	Name          string `json:"name"`
	CIDR          string `json:"cidr"`
	GatewayIP     string `json:"gatewayIp"`
	AddressFamily int    `json:"addressFamily"`
	Owned         bool   `json:"owned"`
}

// SubnetPool is a set of prefixes subnets are allocated from.
type SubnetPool struct {
	ID                  string   `json:"id"`
	Tenant              string   `json:"tenant"`
	Name                string   `json:"name"`
	AddressScopeID      string   `json:"addressScopeId"`
	Prefixes            []string `json:"prefixes"`
	DefaultPrefixLength int      `json:"defaultPrefixLength"`
	AddressFamily       int      `json:"addressFamily"`
	Owned               bool     `json:"owned"`
}

// AddressScope groups subnet pools into one routable address domain.
type AddressScope struct {
	ID            string `json:"id"`
	Tenant        string `json:"tenant"`
	Name          string `json:"name"`
	AddressFamily int    `json:"addressFamily"`
	Owned         bool   `json:"owned"`
}

// Router connects subnets within a routing domain and carries the external
// contract lists programmed by external policies.
type Router struct {
	ID                string   `json:"id"`
	Tenant            string   `json:"tenant"`
	Name              string   `json:"name"`
	Status            string   `json:"status"`
	ProvidedContracts []string `json:"providedContracts"`
	ConsumedContracts []string `json:"consumedContracts"`
	Owned             bool     `json:"owned"`
}

// FixedIP binds a port address to a subnet.
type FixedIP struct {
	SubnetID  string `json:"subnetId"`
	IPAddress string `json:"ipAddress"`
}

// Port is a data-plane attachment point.
type Port struct {
	ID          string    `json:"id"`
	Tenant      string    `json:"tenant"`
	NetworkID   string    `json:"networkId"`
	Name        string    `json:"name"`
	DeviceOwner string    `json:"deviceOwner"`
	DeviceID    string    `json:"deviceId"`
	FixedIPs    []FixedIP `json:"fixedIps"`
	Owned       bool      `json:"owned"`
}

// FloatingIP is an externally reachable address mapped onto a port.
type FloatingIP struct {
	ID        string `json:"id"`
	Tenant    string `json:"tenant"`
	PortID    string `json:"portId"`
	IPAddress string `json:"ipAddress"`
	Owned     bool   `json:"owned"`
}

// PortFilter selects ports in Ports queries. Zero fields match anything.
type PortFilter struct {
	NetworkID   string
	DeviceOwner string
	DeviceID    string
	FixedIP     string
}

// InterfaceSelector picks the target of a router-interface operation:
// either a subnet (gateway port is created) or an explicit port.
type InterfaceSelector struct {
	SubnetID string
	PortID   string
}

// Service is the typed CRUD surface of the external network-resource
// service. All calls are synchronous; failures propagate to the caller's
// transaction.
type Service interface {
	Network(id string) (*Network, error)
	CreateNetwork(network *Network) error
	DeleteNetwork(id string) error

	Subnet(id string) (*Subnet, error)
	CreateSubnet(subnet *Subnet) error
	DeleteSubnet(id string) error
	SubnetsByNetwork(networkID string) ([]*Subnet, error)

	SubnetPool(id string) (*SubnetPool, error)
	CreateSubnetPool(pool *SubnetPool) error
	DeleteSubnetPool(id string) error

	AddressScope(id string) (*AddressScope, error)
	CreateAddressScope(scope *AddressScope) error
	DeleteAddressScope(id string) error

	Router(id string) (*Router, error)
	CreateRouter(router *Router) error
	UpdateRouter(router *Router) error
	DeleteRouter(id string) error

	Port(id string) (*Port, error)
	CreatePort(port *Port) error
	DeletePort(id string) error
	Ports(filter PortFilter) ([]*Port, error)

	FloatingIP(id string) (*FloatingIP, error)
	CreateFloatingIP(fip *FloatingIP) error
	DeleteFloatingIP(id string) error

	AddRouterInterface(routerID string, sel InterfaceSelector) error
	DelRouterInterface(routerID string, sel InterfaceSelector) error
	RouterInterfaces(routerID string) ([]*Port, error)
}
