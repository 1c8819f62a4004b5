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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemDirectoryNotFound(t *testing.T) {
	dir := NewMemDirectory()

	_, err := dir.RoutingDomain("absent")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.True(t, errors.Is(dir.DeleteEndpointGroup("absent"), ErrNotFound))
}

func TestMemDirectorySaveGetCopies(t *testing.T) {
	dir := NewMemDirectory()

	rd := &RoutingDomain{
		ID: "rd1", Tenant: "t1",
		Routers:        []string{"r1"},
		SegmentRouters: map[string]string{"es1": "gw1"},
	}
	require.NoError(t, dir.SaveRoutingDomain(rd))

	got, err := dir.RoutingDomain("rd1")
	require.NoError(t, err)
	if diff := cmp.Diff(rd, got); diff != "" {
		t.Fatalf("stored domain differs (-want +got):\n%s", diff)
	}
	got.Routers[0] = "mutated"
	got.SegmentRouters["es1"] = "mutated"

	again, err := dir.RoutingDomain("rd1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, again.Routers)
	assert.Equal(t, "gw1", again.SegmentRouters["es1"])
}

func TestMemDirectoryTenantScan(t *testing.T) {
	dir := NewMemDirectory()

	require.NoError(t, dir.SaveBridgingDomain(&BridgingDomain{ID: "bd1", Tenant: "t1"}))
	require.NoError(t, dir.SaveBridgingDomain(&BridgingDomain{ID: "bd2", Tenant: "t1"}))
	require.NoError(t, dir.SaveBridgingDomain(&BridgingDomain{ID: "bd3", Tenant: "t2"}))

	domains, err := dir.BridgingDomainsByTenant("t1")
	require.NoError(t, err)
	assert.Len(t, domains, 2)
}

func TestMemDirectoryGroupsByBridgingDomain(t *testing.T) {
	dir := NewMemDirectory()

	require.NoError(t, dir.SaveEndpointGroup(&EndpointGroup{ID: "g1", BridgingDomainID: "bd1"}))
	require.NoError(t, dir.SaveEndpointGroup(&EndpointGroup{ID: "g2", BridgingDomainID: "bd1"}))
	require.NoError(t, dir.SaveEndpointGroup(&EndpointGroup{ID: "g3", BridgingDomainID: "bd2"}))

	groups, err := dir.EndpointGroupsByBridgingDomain("bd1")
	require.NoError(t, err)
	assert.Len(t, groups, 2)

	require.NoError(t, dir.DeleteEndpointGroup("g1"))
	groups, err = dir.EndpointGroupsByBridgingDomain("bd1")
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}
