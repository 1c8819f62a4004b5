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
	"time"

	"github.com/netforge/fabricmap/core"
	client "go.etcd.io/etcd/client/v2"

	log "github.com/sirupsen/logrus"
)

const (
	lockKeyPrefix = "/fabricmap/lock/"
	lockTTL       = 60 * time.Second
	lockRetryWait = 200 * time.Millisecond
)

// EtcdLockService implements core.LockService on top of an etcd keyspace.
// A lock is a key created with PrevExist=false and a TTL, so a crashed
// holder releases it after the TTL expires.
type EtcdLockService struct {
	kapi   client.KeysAPI
	holder string
}

// NewEtcdLockService returns a lock service sharing the driver's etcd
// connection. holder identifies this process in the lock value.
func NewEtcdLockService(d *EtcdStateDriver, holder string) *EtcdLockService {
	return &EtcdLockService{kapi: d.KeysAPI, holder: holder}
}

// Lock blocks until the named lock is acquired and returns its releaser.
func (s *EtcdLockService) Lock(name string) (func(), error) {
	key := lockKeyPrefix + name

	for {
		_, err := s.kapi.Set(context.Background(), key, s.holder,
			&client.SetOptions{PrevExist: client.PrevNoExist, TTL: lockTTL})
		if err == nil {
			break
		}

		if etcdErr, ok := err.(client.Error); ok && etcdErr.Code == client.ErrorCodeNodeExist {
			// held by someone else, wait and retry
			time.Sleep(lockRetryWait)
			continue
		}
		if err.Error() == client.ErrClusterUnavailable.Error() {
			time.Sleep(time.Second)
			continue
		}

		return nil, core.Errorf("acquiring lock %q: %v", name, err)
	}

	release := func() {
		_, err := s.kapi.Delete(context.Background(), key,
			&client.DeleteOptions{PrevValue: s.holder})
		if err != nil {
			log.Errorf("releasing lock %q: %v", name, err)
		}
	}

	return release, nil
}
