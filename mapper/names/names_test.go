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

package names

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTenantName(t *testing.T) {
	m := New()
	assert.Equal(t, "prj_abc123", m.Tenant("abc123"))
}

func TestNameComposition(t *testing.T) {
	m := New()
	assert.Equal(t, "web_g1", m.Name("g1", "web", ""))
	assert.Equal(t, "reverse-web_g1", m.Name("g1", "web", ReversePrefix))
}

func TestNameSanitizes(t *testing.T) {
	m := New()
	assert.Equal(t, "a-b-c_g1", m.Name("g1", "a b/c", ""))
}

func TestNameDeterministic(t *testing.T) {
	m := New()
	assert.Equal(t, m.Name("id", "name", "p-"), m.Name("id", "name", "p-"))
}

func TestNameTruncationKeepsID(t *testing.T) {
	m := New()

	id := "0123456789abcdef0123456789abcdef"
	name := m.Name(id, strings.Repeat("x", 100), "")
	assert.Len(t, name, MaxNameLen)
	assert.True(t, strings.HasSuffix(name, "_"+id))

	// distinct ids with identical long names never collide
	other := m.Name("fedcba9876543210fedcba9876543210", strings.Repeat("x", 100), "")
	assert.NotEqual(t, name, other)
}

func TestNameLengthCapped(t *testing.T) {
	m := New()
	name := m.Name(strings.Repeat("i", 80), "n", "p-")
	assert.Len(t, name, MaxNameLen)
}
