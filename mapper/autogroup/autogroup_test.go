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

package autogroup

import (
	"testing"

	"github.com/netforge/fabricmap/policy"
	"github.com/stretchr/testify/assert"
)

func TestIDDeterministic(t *testing.T) {
	assert.Equal(t, ID("bd1"), ID("bd1"))
	assert.NotEqual(t, ID("bd1"), ID("bd2"))
}

func TestIDShape(t *testing.T) {
	id := ID("bd1")
	assert.True(t, IsAutoGroup(id))
	// prefix plus a 32 character digest
	assert.Len(t, id, len(IDPrefix)+32)
}

func TestIsAutoGroup(t *testing.T) {
	assert.False(t, IsAutoGroup("group-1"))
	assert.True(t, IsAutoGroup(ID("whatever")))
}

func TestGroup(t *testing.T) {
	bd := &policy.BridgingDomain{ID: "bd1", Tenant: "t1"}
	group := Group(bd)
	assert.Equal(t, ID("bd1"), group.ID)
	assert.Equal(t, "t1", group.Tenant)
	assert.Equal(t, "bd1", group.BridgingDomainID)
	assert.Empty(t, group.Name)
}
