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

package fabric

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/netforge/fabricmap/core"

	log "github.com/sirupsen/logrus"
)

// SyncStatus is the convergence state the fabric controller reports per
// object.
type SyncStatus string

const (
	// SyncMissing means the object does not exist in the store.
	SyncMissing SyncStatus = "missing"
	// SyncBuilding means the controller has not converged the object yet.
	SyncBuilding SyncStatus = "building"
	// SyncSynced means the object is converged on the fabric.
	SyncSynced SyncStatus = "synced"
	// SyncError means the controller failed to converge the object.
	SyncError SyncStatus = "error"
)

const statusPath = "/fabricmap/fabric-status/%s/%s"

type statusRecord struct {
	Status SyncStatus `json:"status"`
}

// Store persists fabric resources through a state driver. Writes are
// overwrite-safe so reapplying a derived object set converges instead of
// duplicating state. Convergence status is tracked in a parallel record
// per object, defaulting to building on create.
type Store struct {
	driver core.StateDriver
}

// NewStore returns a Store over the given driver.
func NewStore(driver core.StateDriver) *Store {
	return &Store{driver: driver}
}

func (st *Store) prime(res Resource) {
	res.Common().StateDriver = st.driver
	res.Common().ID = res.KeyID()
}

// Get reads the resource identified by res's key fields into res. Returns
// false without error when the object does not exist.
func (st *Store) Get(res Resource) (bool, error) {
	st.prime(res)
	err := res.Read(res.KeyID())
	if err != nil {
		if core.IsKeyNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Create writes the resource. Without overwrite, creating over an existing
// key fails. With overwrite, the write replaces the stored object wholesale.
// A fresh object starts with building status; overwrites keep the existing
// status record.
func (st *Store) Create(res Resource, overwrite bool) error {
	st.prime(res)

	existing, err := st.exists(res)
	if err != nil {
		return err
	}
	if existing && !overwrite {
		return core.Errorf("%s %q already exists", res.Kind(), res.KeyID())
	}

	if err := res.Write(); err != nil {
		return err
	}

	if !existing {
		return st.putStatus(res, SyncBuilding)
	}
	return nil
}

// Delete removes the resource and its status record. Deleting a missing
// object is not an error.
func (st *Store) Delete(res Resource) error {
	st.prime(res)

	if err := res.Clear(); err != nil && !core.IsKeyNotFound(err) {
		return err
	}
	key := fmt.Sprintf(statusPath, res.Kind(), res.KeyID())
	if err := st.driver.ClearState(key); err != nil && !core.IsKeyNotFound(err) {
		log.Warnf("clearing status of %s %q: %v", res.Kind(), res.KeyID(), err)
	}
	return nil
}

// Find returns every stored resource of proto's kind belonging to tenant.
// An empty tenant matches all tenants.
func (st *Store) Find(proto Resource, tenant string) ([]Resource, error) {
	st.prime(proto)

	all, err := proto.ReadAll()
	if err != nil {
		if core.IsKeyNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	resources := []Resource{}
	for _, one := range all {
		res := one.(Resource)
		if tenant != "" && !strings.HasPrefix(res.KeyID(), tenant+":") {
			continue
		}
		resources = append(resources, res)
	}
	return resources, nil
}

// Status returns the convergence status of the resource. A missing object
// reports missing; an object without a status record reports building.
func (st *Store) Status(res Resource) (SyncStatus, error) {
	st.prime(res)

	existing, err := st.exists(res)
	if err != nil {
		return SyncMissing, err
	}
	if !existing {
		return SyncMissing, nil
	}

	key := fmt.Sprintf(statusPath, res.Kind(), res.KeyID())
	value, err := st.driver.Read(key)
	if err != nil {
		if core.IsKeyNotFound(err) {
			return SyncBuilding, nil
		}
		return SyncMissing, err
	}

	rec := statusRecord{}
	if err := json.Unmarshal(value, &rec); err != nil {
		return SyncMissing, err
	}
	return rec.Status, nil
}

// SetSyncStatus records the convergence status of the resource. The fabric
// controller's feedback path calls this; tests use it to simulate
// convergence.
func (st *Store) SetSyncStatus(res Resource, status SyncStatus) error {
	st.prime(res)
	return st.putStatus(res, status)
}

func (st *Store) exists(res Resource) (bool, error) {
	configKey := fmt.Sprintf(configPath, res.Kind(), res.KeyID())
	_, err := st.driver.Read(configKey)
	if err != nil {
		if core.IsKeyNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (st *Store) putStatus(res Resource, status SyncStatus) error {
	key := fmt.Sprintf(statusPath, res.Kind(), res.KeyID())
	value, err := json.Marshal(statusRecord{Status: status})
	if err != nil {
		return err
	}
	return st.driver.Write(key, value)
}
