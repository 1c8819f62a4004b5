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

// Package autogroup derives the synthesized per-bridging-domain endpoint
// group identity.
package autogroup

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/netforge/fabricmap/policy"
)

// IDPrefix marks synthesized group identifiers.
const IDPrefix = "auto"

// ID derives the synthesized group identifier for a bridging domain. The
// result is deterministic and stays within fabric name-length limits.
func ID(bridgingDomainID string) string {
	digest := md5.Sum([]byte(bridgingDomainID))
	return IDPrefix + hex.EncodeToString(digest[:])
}

// IsAutoGroup tells whether the group id names a synthesized group.
func IsAutoGroup(id string) bool {
	return strings.HasPrefix(id, IDPrefix)
}

// Group builds the synthesized policy group for a bridging domain. It has
// no user-assignable display name; its reported name tracks the backing
// default fabric group.
func Group(bd *policy.BridgingDomain) *policy.EndpointGroup {
	return &policy.EndpointGroup{
		ID:               ID(bd.ID),
		Tenant:           bd.Tenant,
		BridgingDomainID: bd.ID,
	}
}
