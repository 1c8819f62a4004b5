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
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/netforge/fabricmap/core"
	client "go.etcd.io/etcd/client/v2"

	log "github.com/sirupsen/logrus"
)

const (
	ctxTimeout     = 20 * time.Second // etcd timeout
	maxEtcdRetries = 10               // max times to retry in case of failure
)

// EtcdStateDriver implements the StateDriver interface for an etcd based
// distributed key-value store used to persist the fabric store and policy
// directory state.
type EtcdStateDriver struct {
	Client  client.Client
	KeysAPI client.KeysAPI
}

// Init the driver with an instance config carrying the store URL.
func (d *EtcdStateDriver) Init(instInfo *core.InstanceInfo) error {
	if instInfo == nil || instInfo.DbURL == "" {
		return errors.New("no etcd config found")
	}
	endpoint, err := url.Parse(instInfo.DbURL)
	if err != nil {
		return err
	}
	if endpoint.Scheme == "etcd" {
		endpoint.Scheme = "http"
	} else if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return core.Errorf("invalid etcd URL scheme %q", endpoint.Scheme)
	}

	d.Client, err = client.New(client.Config{
		Endpoints: []string{endpoint.String()},
	})
	if err != nil {
		return err
	}
	d.KeysAPI = client.NewKeysAPI(d.Client)

	return nil
}

// Deinit is currently a no-op.
func (d *EtcdStateDriver) Deinit() {}

// Write state to key with value.
func (d *EtcdStateDriver) Write(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	var err error
	for i := 0; i < maxEtcdRetries; i++ {
		_, err = d.KeysAPI.Set(ctx, key, string(value), nil)
		if err != nil && err.Error() == client.ErrClusterUnavailable.Error() {
			// Retry after a delay
			time.Sleep(time.Second)
			continue
		}
		return err
	}

	return err
}

// Read state from key.
func (d *EtcdStateDriver) Read(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	var err error
	var resp *client.Response

	for i := 0; i < maxEtcdRetries; i++ {
		resp, err = d.KeysAPI.Get(ctx, key, &client.GetOptions{Quorum: true})
		if err == nil {
			if resp != nil && resp.Node != nil {
				return []byte(resp.Node.Value), nil
			}
			return []byte{}, fmt.Errorf("error reading from etcd")
		}

		if client.IsKeyNotFound(err) {
			return []byte{}, core.Errorf("key not found")
		}

		if err.Error() == client.ErrClusterUnavailable.Error() {
			time.Sleep(time.Second)
			continue
		}

		return []byte{}, err
	}

	return []byte{}, err
}

// ReadAll state from baseKey.
func (d *EtcdStateDriver) ReadAll(baseKey string) ([][]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	var err error
	var resp *client.Response

	for i := 0; i < maxEtcdRetries; i++ {
		resp, err = d.KeysAPI.Get(ctx, baseKey, &client.GetOptions{Recursive: true, Quorum: true})
		if err == nil {
			values := [][]byte{}
			for _, node := range resp.Node.Nodes {
				values = append(values, []byte(node.Value))
			}
			return values, nil
		}

		if client.IsKeyNotFound(err) {
			return [][]byte{}, core.Errorf("key not found")
		}

		if err.Error() == client.ErrClusterUnavailable.Error() {
			time.Sleep(time.Second)
			continue
		}

		return [][]byte{}, err
	}

	return [][]byte{}, err
}

// ClearState removes key from etcd.
func (d *EtcdStateDriver) ClearState(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	_, err := d.KeysAPI.Delete(ctx, key, nil)
	if err != nil && client.IsKeyNotFound(err) {
		log.Debugf("key %q already gone", key)
		return nil
	}
	return err
}

// ReadState reads key into a core.State with the unmarshaling function.
func (d *EtcdStateDriver) ReadState(key string, value core.State,
	unmarshal func([]byte, interface{}) error) error {
	encodedState, err := d.Read(key)
	if err != nil {
		return err
	}

	return unmarshal(encodedState, value)
}

// ReadAllState reads all the state from baseKey and returns a list of
// core.State.
func (d *EtcdStateDriver) ReadAllState(baseKey string, sType core.State,
	unmarshal func([]byte, interface{}) error) ([]core.State, error) {
	return readAllStateCommon(d, baseKey, sType, unmarshal)
}

// WriteState writes a value of core.State into a key with a given marshaling
// function.
func (d *EtcdStateDriver) WriteState(key string, value core.State,
	marshal func(interface{}) ([]byte, error)) error {
	encodedState, err := marshal(value)
	if err != nil {
		return err
	}

	return d.Write(key, encodedState)
}
