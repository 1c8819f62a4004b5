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

// Package status merges asynchronous fabric convergence state into the one
// user-visible status per policy object.
package status

import (
	"github.com/netforge/fabricmap/fabric"
	"github.com/netforge/fabricmap/policy"
)

// Merge folds component statuses into one. Priority is ERROR over BUILD
// over ACTIVE; an object with no components yet is still building.
func Merge(statuses []string) string {
	if len(statuses) == 0 {
		return policy.StatusBuild
	}

	merged := policy.StatusActive
	for _, s := range statuses {
		switch s {
		case policy.StatusError:
			return policy.StatusError
		case policy.StatusBuild:
			merged = policy.StatusBuild
		}
	}
	return merged
}

// FromSync maps a fabric convergence state to a policy status.
func FromSync(sync fabric.SyncStatus) string {
	switch sync {
	case fabric.SyncSynced:
		return policy.StatusActive
	case fabric.SyncError:
		return policy.StatusError
	default:
		return policy.StatusBuild
	}
}

// MergeResources reads each resource's convergence state from the store
// and merges. With missingIsError, a resource absent from the store forces
// ERROR instead of counting as still-building; callers use it where every
// listed resource is required to exist.
func MergeResources(store *fabric.Store, resources []fabric.Resource, missingIsError bool) (string, error) {
	statuses := make([]string, 0, len(resources))
	for _, res := range resources {
		sync, err := store.Status(res)
		if err != nil {
			return policy.StatusError, err
		}
		if sync == fabric.SyncMissing && missingIsError {
			return policy.StatusError, nil
		}
		statuses = append(statuses, FromSync(sync))
	}
	return Merge(statuses), nil
}
