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

package state

import (
	"github.com/netforge/fabricmap/core"
)

const (
	// EtcdName is the driver name for the etcd state-store.
	EtcdName = "etcd"
	// ConsulName is the driver name for the consul state-store.
	ConsulName = "consul"
	// FakeName is the in-memory driver used by unit-tests.
	FakeName = "fake"
)

// NewStateDriver instantiates a named state-driver and initializes it from
// the instance config. Callers own the returned driver and are expected to
// Deinit it when done.
func NewStateDriver(name string, instInfo *core.InstanceInfo) (core.StateDriver, error) {
	var d core.StateDriver

	switch name {
	case EtcdName:
		d = &EtcdStateDriver{}
	case ConsulName:
		d = &ConsulStateDriver{}
	case FakeName:
		d = &FakeStateDriver{}
	default:
		return nil, core.Errorf("unknown state-driver %q", name)
	}

	if err := d.Init(instInfo); err != nil {
		return nil, err
	}

	return d, nil
}
