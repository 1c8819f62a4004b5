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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSubnetAssignsGateway(t *testing.T) {
	svc := NewMemService()

	subnet := &Subnet{Tenant: "t1", NetworkID: "n1", CIDR: "10.0.0.0/24"}
	require.NoError(t, svc.CreateSubnet(subnet))
	assert.Equal(t, "10.0.0.1", subnet.GatewayIP)
	assert.NotEmpty(t, subnet.ID)
}

func TestCreatePortAllocatesAddress(t *testing.T) {
	svc := NewMemService()

	subnet := &Subnet{CIDR: "10.0.0.0/24"}
	require.NoError(t, svc.CreateSubnet(subnet))

	port1 := &Port{FixedIPs: []FixedIP{{SubnetID: subnet.ID}}}
	require.NoError(t, svc.CreatePort(port1))
	assert.Equal(t, "10.0.0.2", port1.FixedIPs[0].IPAddress)

	port2 := &Port{FixedIPs: []FixedIP{{SubnetID: subnet.ID}}}
	require.NoError(t, svc.CreatePort(port2))
	assert.Equal(t, "10.0.0.3", port2.FixedIPs[0].IPAddress)
}

func TestAddRouterInterfaceCreatesGatewayPort(t *testing.T) {
	svc := NewMemService()

	router := &Router{Tenant: "t1"}
	require.NoError(t, svc.CreateRouter(router))
	subnet := &Subnet{Tenant: "t1", NetworkID: "n1", CIDR: "10.0.0.0/24"}
	require.NoError(t, svc.CreateSubnet(subnet))

	require.NoError(t, svc.AddRouterInterface(router.ID, InterfaceSelector{SubnetID: subnet.ID}))

	ifaces, err := svc.RouterInterfaces(router.ID)
	require.NoError(t, err)
	require.Len(t, ifaces, 1)
	assert.Equal(t, "10.0.0.1", ifaces[0].FixedIPs[0].IPAddress)
}

func TestAddRouterInterfaceGatewayConflict(t *testing.T) {
	svc := NewMemService()

	router := &Router{}
	require.NoError(t, svc.CreateRouter(router))
	subnet := &Subnet{CIDR: "10.0.0.0/24"}
	require.NoError(t, svc.CreateSubnet(subnet))

	squatter := &Port{FixedIPs: []FixedIP{{SubnetID: subnet.ID, IPAddress: "10.0.0.1"}}}
	require.NoError(t, svc.CreatePort(squatter))

	err := svc.AddRouterInterface(router.ID, InterfaceSelector{SubnetID: subnet.ID})
	assert.True(t, errors.Is(err, ErrGatewayConflict))
}

func TestAddRouterInterfaceByPort(t *testing.T) {
	svc := NewMemService()

	router := &Router{}
	require.NoError(t, svc.CreateRouter(router))
	subnet := &Subnet{CIDR: "10.0.0.0/24"}
	require.NoError(t, svc.CreateSubnet(subnet))
	port := &Port{FixedIPs: []FixedIP{{SubnetID: subnet.ID}}}
	require.NoError(t, svc.CreatePort(port))

	require.NoError(t, svc.AddRouterInterface(router.ID, InterfaceSelector{PortID: port.ID}))

	got, err := svc.Port(port.ID)
	require.NoError(t, err)
	assert.Equal(t, router.ID, got.DeviceID)
	assert.Equal(t, DeviceOwnerRouterIface, got.DeviceOwner)
}

func TestDelRouterInterface(t *testing.T) {
	svc := NewMemService()

	router := &Router{}
	require.NoError(t, svc.CreateRouter(router))
	subnet := &Subnet{CIDR: "10.0.0.0/24"}
	require.NoError(t, svc.CreateSubnet(subnet))
	require.NoError(t, svc.AddRouterInterface(router.ID, InterfaceSelector{SubnetID: subnet.ID}))

	require.NoError(t, svc.DelRouterInterface(router.ID, InterfaceSelector{SubnetID: subnet.ID}))
	assert.True(t, errors.Is(
		svc.DelRouterInterface(router.ID, InterfaceSelector{SubnetID: subnet.ID}),
		ErrNotFound))

	ifaces, err := svc.RouterInterfaces(router.ID)
	require.NoError(t, err)
	assert.Empty(t, ifaces)
}

func TestPortFilters(t *testing.T) {
	svc := NewMemService()

	require.NoError(t, svc.CreatePort(&Port{NetworkID: "n1", DeviceOwner: "compute:nova", DeviceID: "vm1"}))
	require.NoError(t, svc.CreatePort(&Port{NetworkID: "n1", DeviceOwner: "compute:nova", DeviceID: "vm2"}))
	require.NoError(t, svc.CreatePort(&Port{NetworkID: "n2", DeviceOwner: "compute:nova", DeviceID: "vm3"}))

	ports, err := svc.Ports(PortFilter{NetworkID: "n1"})
	require.NoError(t, err)
	assert.Len(t, ports, 2)

	ports, err = svc.Ports(PortFilter{DeviceID: "vm3"})
	require.NoError(t, err)
	assert.Len(t, ports, 1)
}

func TestAttachErrInjection(t *testing.T) {
	svc := NewMemService()

	router := &Router{}
	require.NoError(t, svc.CreateRouter(router))
	subnet := &Subnet{CIDR: "10.0.0.0/24"}
	require.NoError(t, svc.CreateSubnet(subnet))

	injected := errors.New("attach failed")
	svc.AttachErrs = []error{injected}
	assert.Equal(t, injected, svc.AddRouterInterface(router.ID, InterfaceSelector{SubnetID: subnet.ID}))

	// the injected error is consumed
	require.NoError(t, svc.AddRouterInterface(router.ID, InterfaceSelector{SubnetID: subnet.ID}))
}
