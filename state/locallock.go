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
	"sync"
)

// LocalLockService implements core.LockService with in-process mutexes.
// It serializes within a single process only. Deployments with multiple
// engine instances use EtcdLockService instead.
type LocalLockService struct {
	mutex sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalLockService returns an empty local lock service.
func NewLocalLockService() *LocalLockService {
	return &LocalLockService{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the named lock is acquired and returns its releaser.
func (s *LocalLockService) Lock(name string) (func(), error) {
	s.mutex.Lock()
	lk, ok := s.locks[name]
	if !ok {
		lk = &sync.Mutex{}
		s.locks[name] = lk
	}
	s.mutex.Unlock()

	lk.Lock()
	return lk.Unlock, nil
}
