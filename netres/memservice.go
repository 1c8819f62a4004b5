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

package netres

import (
	"fmt"
	"sync"

	"github.com/netforge/fabricmap/utils/netutils"
)

// MemService is an in-memory Service used by tests and the default daemon
// wiring. Id and address allocation is deterministic: ids count up per
// resource kind and port addresses take the lowest free host in their
// subnet.
type MemService struct {
	mutex sync.Mutex

	networks   map[string]Network
	subnets    map[string]Subnet
	pools      map[string]SubnetPool
	scopes     map[string]AddressScope
	routers    map[string]Router
	ports      map[string]Port
	fips       map[string]FloatingIP
	nextID     map[string]int

	// AttachErrs is a queue of errors failing the next AddRouterInterface
	// calls in order, one per call. Tests use it to exercise the
	// attach-failure cleanup paths.
	AttachErrs []error
}

// NewMemService returns an empty service.
func NewMemService() *MemService {
	return &MemService{
		networks: make(map[string]Network),
		subnets:  make(map[string]Subnet),
		pools:    make(map[string]SubnetPool),
		scopes:   make(map[string]AddressScope),
		routers:  make(map[string]Router),
		ports:    make(map[string]Port),
		fips:     make(map[string]FloatingIP),
		nextID:   make(map[string]int),
	}
}

func (s *MemService) allocID(kind string) string {
	s.nextID[kind]++
	return fmt.Sprintf("%s-%d", kind, s.nextID[kind])
}

// Network looks up a network by id.
func (s *MemService) Network(id string) (*Network, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	network, ok := s.networks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &network, nil
}

// CreateNetwork stores the network, assigning an id when empty.
func (s *MemService) CreateNetwork(network *Network) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if network.ID == "" {
		network.ID = s.allocID("net")
	}
	s.networks[network.ID] = *network
	return nil
}

// DeleteNetwork removes a network by id.
func (s *MemService) DeleteNetwork(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.networks[id]; !ok {
		return ErrNotFound
	}
	delete(s.networks, id)
	return nil
}

// Subnet looks up a subnet by id.
func (s *MemService) Subnet(id string) (*Subnet, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	subnet, ok := s.subnets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &subnet, nil
}

// CreateSubnet stores the subnet, assigning an id and the conventional
// gateway address when empty.
func (s *MemService) CreateSubnet(subnet *Subnet) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if subnet.ID == "" {
		subnet.ID = s.allocID("subnet")
	}
	if subnet.GatewayIP == "" && subnet.CIDR != "" {
		gw, err := netutils.GatewayAddr(subnet.CIDR)
		if err != nil {
			return err
		}
		subnet.GatewayIP = gw
	}
	s.subnets[subnet.ID] = *subnet
	return nil
}

// DeleteSubnet removes a subnet by id.
func (s *MemService) DeleteSubnet(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.subnets[id]; !ok {
		return ErrNotFound
	}
	delete(s.subnets, id)
	return nil
}

// SubnetsByNetwork lists the subnets on a network.
func (s *MemService) SubnetsByNetwork(networkID string) ([]*Subnet, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	subnets := []*Subnet{}
	for _, subnet := range s.subnets {
		if subnet.NetworkID == networkID {
			subnet := subnet
			subnets = append(subnets, &subnet)
		}
	}
	return subnets, nil
}

// SubnetPool looks up a subnet pool by id.
func (s *MemService) SubnetPool(id string) (*SubnetPool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	pool, ok := s.pools[id]
	if !ok {
		return nil, ErrNotFound
	}
	pool.Prefixes = append([]string(nil), pool.Prefixes...)
	return &pool, nil
}

// CreateSubnetPool stores the pool, assigning an id when empty.
func (s *MemService) CreateSubnetPool(pool *SubnetPool) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if pool.ID == "" {
		pool.ID = s.allocID("pool")
	}
	s.pools[pool.ID] = *pool
	return nil
}

// DeleteSubnetPool removes a subnet pool by id.
func (s *MemService) DeleteSubnetPool(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.pools[id]; !ok {
		return ErrNotFound
	}
	delete(s.pools, id)
	return nil
}

// AddressScope looks up an address scope by id.
func (s *MemService) AddressScope(id string) (*AddressScope, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	scope, ok := s.scopes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &scope, nil
}

// CreateAddressScope stores the scope, assigning an id when empty.
func (s *MemService) CreateAddressScope(scope *AddressScope) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if scope.ID == "" {
		scope.ID = s.allocID("scope")
	}
	s.scopes[scope.ID] = *scope
	return nil
}

// DeleteAddressScope removes an address scope by id.
func (s *MemService) DeleteAddressScope(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.scopes[id]; !ok {
		return ErrNotFound
	}
	delete(s.scopes, id)
	return nil
}

// Router looks up a router by id.
func (s *MemService) Router(id string) (*Router, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	router, ok := s.routers[id]
	if !ok {
		return nil, ErrNotFound
	}
	router.ProvidedContracts = append([]string(nil), router.ProvidedContracts...)
	router.ConsumedContracts = append([]string(nil), router.ConsumedContracts...)
	return &router, nil
}

// CreateRouter stores the router, assigning an id when empty.
func (s *MemService) CreateRouter(router *Router) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if router.ID == "" {
		router.ID = s.allocID("router")
	}
	s.routers[router.ID] = *router
	return nil
}

// UpdateRouter replaces a stored router.
func (s *MemService) UpdateRouter(router *Router) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.routers[router.ID]; !ok {
		return ErrNotFound
	}
	s.routers[router.ID] = *router
	return nil
}

// DeleteRouter removes a router by id.
func (s *MemService) DeleteRouter(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.routers[id]; !ok {
		return ErrNotFound
	}
	delete(s.routers, id)
	return nil
}

// Port looks up a port by id.
func (s *MemService) Port(id string) (*Port, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	port, ok := s.ports[id]
	if !ok {
		return nil, ErrNotFound
	}
	port.FixedIPs = append([]FixedIP(nil), port.FixedIPs...)
	return &port, nil
}

// CreatePort stores the port, assigning an id when empty and satisfying
// address-less fixed IPs from the lowest free host of their subnet.
func (s *MemService) CreatePort(port *Port) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if port.ID == "" {
		port.ID = s.allocID("port")
	}
	for i := range port.FixedIPs {
		if port.FixedIPs[i].IPAddress != "" {
			continue
		}
		addr, err := s.allocHostAddr(port.FixedIPs[i].SubnetID)
		if err != nil {
			return err
		}
		port.FixedIPs[i].IPAddress = addr
	}
	s.ports[port.ID] = *port
	return nil
}

// DeletePort removes a port by id.
func (s *MemService) DeletePort(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.ports[id]; !ok {
		return ErrNotFound
	}
	delete(s.ports, id)
	return nil
}

// Ports lists ports matching the filter.
func (s *MemService) Ports(filter PortFilter) ([]*Port, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.portsLocked(filter), nil
}

func (s *MemService) portsLocked(filter PortFilter) []*Port {
	ports := []*Port{}
	for _, port := range s.ports {
		if filter.NetworkID != "" && port.NetworkID != filter.NetworkID {
			continue
		}
		if filter.DeviceOwner != "" && port.DeviceOwner != filter.DeviceOwner {
			continue
		}
		if filter.DeviceID != "" && port.DeviceID != filter.DeviceID {
			continue
		}
		if filter.FixedIP != "" && !portHasIP(port, filter.FixedIP) {
			continue
		}
		port := port
		ports = append(ports, &port)
	}
	return ports
}

func portHasIP(port Port, ip string) bool {
	for _, fip := range port.FixedIPs {
		if fip.IPAddress == ip {
			return true
		}
	}
	return false
}

// FloatingIP looks up a floating IP by id.
func (s *MemService) FloatingIP(id string) (*FloatingIP, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	fip, ok := s.fips[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &fip, nil
}

// CreateFloatingIP stores the floating IP, assigning an id when empty.
func (s *MemService) CreateFloatingIP(fip *FloatingIP) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if fip.ID == "" {
		fip.ID = s.allocID("fip")
	}
	s.fips[fip.ID] = *fip
	return nil
}

// DeleteFloatingIP removes a floating IP by id.
func (s *MemService) DeleteFloatingIP(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.fips[id]; !ok {
		return ErrNotFound
	}
	delete(s.fips, id)
	return nil
}

// AddRouterInterface wires the router to the selected subnet or port. A
// subnet selector creates a gateway port; when the gateway address is
// already consumed the call fails with ErrGatewayConflict so the caller
// can fall back to a dedicated port.
func (s *MemService) AddRouterInterface(routerID string, sel InterfaceSelector) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.AttachErrs) > 0 {
		err := s.AttachErrs[0]
		s.AttachErrs = s.AttachErrs[1:]
		if err != nil {
			return err
		}
	}

	if _, ok := s.routers[routerID]; !ok {
		return ErrNotFound
	}

	if sel.PortID != "" {
		port, ok := s.ports[sel.PortID]
		if !ok {
			return ErrNotFound
		}
		port.DeviceOwner = DeviceOwnerRouterIface
		port.DeviceID = routerID
		s.ports[sel.PortID] = port
		return nil
	}

	subnet, ok := s.subnets[sel.SubnetID]
	if !ok {
		return ErrNotFound
	}
	for _, port := range s.portsLocked(PortFilter{FixedIP: subnet.GatewayIP}) {
		if portOnSubnet(*port, subnet.ID) {
			return ErrGatewayConflict
		}
	}

	ifPort := Port{
		ID:          s.allocID("port"),
		Tenant:      subnet.Tenant,
		NetworkID:   subnet.NetworkID,
		DeviceOwner: DeviceOwnerRouterIface,
		DeviceID:    routerID,
		FixedIPs:    []FixedIP{{SubnetID: subnet.ID, IPAddress: subnet.GatewayIP}},
		Owned:       true,
	}
	s.ports[ifPort.ID] = ifPort
	return nil
}

// DelRouterInterface removes the router's interface on the selected subnet
// or port.
func (s *MemService) DelRouterInterface(routerID string, sel InterfaceSelector) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for id, port := range s.ports {
		if port.DeviceID != routerID || port.DeviceOwner != DeviceOwnerRouterIface {
			continue
		}
		if sel.PortID != "" && id != sel.PortID {
			continue
		}
		if sel.SubnetID != "" && !portOnSubnet(port, sel.SubnetID) {
			continue
		}
		delete(s.ports, id)
		return nil
	}
	return ErrNotFound
}

// RouterInterfaces lists the router's interface ports.
func (s *MemService) RouterInterfaces(routerID string) ([]*Port, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.portsLocked(PortFilter{
		DeviceOwner: DeviceOwnerRouterIface,
		DeviceID:    routerID,
	}), nil
}

func portOnSubnet(port Port, subnetID string) bool {
	for _, fip := range port.FixedIPs {
		if fip.SubnetID == subnetID {
			return true
		}
	}
	return false
}

func (s *MemService) allocHostAddr(subnetID string) (string, error) {
	subnet, ok := s.subnets[subnetID]
	if !ok {
		return "", ErrNotFound
	}

	inUse := map[string]bool{subnet.GatewayIP: true}
	for _, port := range s.ports {
		for _, fip := range port.FixedIPs {
			if fip.SubnetID == subnetID {
				inUse[fip.IPAddress] = true
			}
		}
	}

	for hostID := uint(2); ; hostID++ {
		addr, err := netutils.HostAddr(subnet.CIDR, hostID)
		if err != nil {
			return "", err
		}
		if !inUse[addr] {
			return addr, nil
		}
	}
}
