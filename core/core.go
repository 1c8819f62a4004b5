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

// Package core provides the generic state persistence interfaces shared by
// the fabric store and the policy directory. State is stored as key-value
// pairs with string keys and opaque binary values, encoded/decoded by the
// logic specific to the high-level consumer.
package core

// InstanceInfo carries the parameters needed to bring up a state driver
// instance.
type InstanceInfo struct {
	StateDriver StateDriver `json:"-"`
	DbURL       string      `json:"db-url"`
}

// State identifies the interface to be implemented by all persisted
// configuration and operational state objects.
type State interface {
	Read(id string) error
	ReadAll() ([]State, error)
	Write() error
	Clear() error
}

// CommonState defines the fields common to all core.State implementations.
// This struct shall be embedded as anonymous field in all structs that
// implement core.State
type CommonState struct {
	StateDriver StateDriver `json:"-"`
	ID          string      `json:"id"`
}

// LockService hands out named advisory locks. Lock blocks until the named
// lock is acquired and returns a function releasing it. Locks are not
// reentrant. Acquiring the same name twice from one goroutine deadlocks.
type LockService interface {
	Lock(name string) (func(), error)
}

// StateDriver provides the mechanism for reading/writing persisted state
// managed by the mapping engine.
type StateDriver interface {
	Init(instInfo *InstanceInfo) error
	Deinit()

	Write(key string, value []byte) error
	Read(key string) ([]byte, error)
	ReadAll(baseKey string) ([][]byte, error)

	WriteState(key string, value State,
		marshal func(interface{}) ([]byte, error)) error
	ReadState(key string, value State,
		unmarshal func([]byte, interface{}) error) error
	ReadAllState(baseKey string, stateType State,
		unmarshal func([]byte, interface{}) error) ([]State, error)
	ClearState(key string) error
}
