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
	"net/url"
	"strings"

	"github.com/hashicorp/consul/api"
	"github.com/netforge/fabricmap/core"
)

// ConsulStateDriver implements the StateDriver interface for a consul based
// distributed key-value store.
type ConsulStateDriver struct {
	Client *api.Client
}

// Init the driver with an instance config carrying the store URL.
func (d *ConsulStateDriver) Init(instInfo *core.InstanceInfo) error {
	if instInfo == nil || instInfo.DbURL == "" {
		return core.Errorf("no consul config found")
	}
	endpoint, err := url.Parse(instInfo.DbURL)
	if err != nil {
		return err
	}
	if endpoint.Scheme != "consul" && endpoint.Scheme != "http" {
		return core.Errorf("invalid consul URL scheme %q", endpoint.Scheme)
	}

	cfg := api.DefaultConfig()
	cfg.Address = endpoint.Host
	d.Client, err = api.NewClient(cfg)
	if err != nil {
		return err
	}

	return nil
}

// Deinit is currently a no-op.
func (d *ConsulStateDriver) Deinit() {
}

func processKey(inKey string) string {
	// consul doesn't accept keys starting with a '/', so trim the leading
	// slash
	return strings.TrimPrefix(inKey, "/")
}

// Write state to key with value.
func (d *ConsulStateDriver) Write(key string, value []byte) error {
	key = processKey(key)
	_, err := d.Client.KV().Put(&api.KVPair{Key: key, Value: value}, nil)

	return err
}

// Read state from key.
func (d *ConsulStateDriver) Read(key string) ([]byte, error) {
	key = processKey(key)
	kv, _, err := d.Client.KV().Get(key, nil)
	if err != nil {
		return []byte{}, err
	}
	// Consul returns success and a nil kv when a key is not found
	if kv == nil {
		return []byte{}, core.Errorf("key not found")
	}

	return kv.Value, err
}

// ReadAll state from baseKey.
func (d *ConsulStateDriver) ReadAll(baseKey string) ([][]byte, error) {
	baseKey = processKey(baseKey)
	kvs, _, err := d.Client.KV().List(baseKey, nil)
	if err != nil {
		return nil, err
	}
	if kvs == nil {
		return nil, core.Errorf("key not found")
	}

	values := [][]byte{}
	for _, kv := range kvs {
		values = append(values, kv.Value)
	}

	return values, nil
}

// ClearState removes key from consul.
func (d *ConsulStateDriver) ClearState(key string) error {
	key = processKey(key)
	_, err := d.Client.KV().Delete(key, nil)
	return err
}

// ReadState reads key into a core.State with the unmarshaling function.
func (d *ConsulStateDriver) ReadState(key string, value core.State,
	unmarshal func([]byte, interface{}) error) error {
	key = processKey(key)
	encodedState, err := d.Read(key)
	if err != nil {
		return err
	}

	return unmarshal(encodedState, value)
}

// ReadAllState reads all the state from baseKey and returns a list of
// core.State.
func (d *ConsulStateDriver) ReadAllState(baseKey string, sType core.State,
	unmarshal func([]byte, interface{}) error) ([]core.State, error) {
	return readAllStateCommon(d, baseKey, sType, unmarshal)
}

// WriteState writes a value of core.State into a key with a given marshaling
// function.
func (d *ConsulStateDriver) WriteState(key string, value core.State,
	marshal func(interface{}) ([]byte, error)) error {
	key = processKey(key)
	encodedState, err := marshal(value)
	if err != nil {
		return err
	}

	return d.Write(key, encodedState)
}
