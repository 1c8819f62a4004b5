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

// Package names derives fabric object names from policy object identity.
// Naming is a pure function of (tenant id, resource id, resource name,
// prefix): no lookup table, no reservation state.
package names

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// MaxNameLen is the fabric name-length limit.
const MaxNameLen = 64

// Name prefixes for derived objects.
const (
	TenantPrefix  = "prj_"
	ReversePrefix = "reverse-"
)

// Mapper translates policy identities to fabric names.
type Mapper struct{}

// New returns a Mapper.
func New() *Mapper {
	return &Mapper{}
}

// Tenant maps a tenant id to its fabric tenant name.
func (m *Mapper) Tenant(tenantID string) string {
	return TenantPrefix + tenantID
}

// Name builds a fabric name from a resource id, its optional human name
// and a prefix. The resource id suffix is always kept whole so two
// resources never collide however their names truncate.
func (m *Mapper) Name(resourceID, resourceName, prefix string) string {
	sanitized := sanitize(resourceName)

	suffix := "_" + resourceID
	avail := MaxNameLen - len(prefix) - len(suffix)
	if avail < 0 {
		avail = 0
	}
	if len(sanitized) > avail {
		sanitized = sanitized[:avail]
	}

	full := prefix + sanitized + suffix
	if len(full) > MaxNameLen {
		// id alone longer than the limit; keep its tail, the unique part
		full = full[len(full)-MaxNameLen:]
	}
	return full
}

// Reverse maps a filter name to its reverse-direction counterpart.
func (m *Mapper) Reverse(resourceID, resourceName string) string {
	return m.Name(resourceID, resourceName, ReversePrefix)
}

// Release frees a reserved name. Names here are derived, not reserved, so
// this only logs; the hook is kept for delete-path parity.
func (m *Mapper) Release(name string) {
	log.Debugf("released name %q", name)
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
