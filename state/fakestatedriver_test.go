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
	"encoding/json"
	"testing"

	"github.com/netforge/fabricmap/core"
)

type testState struct {
	core.CommonState
	Value string `json:"value"`
}

func (s *testState) Read(id string) error {
	return s.StateDriver.ReadState("/test/"+id, s, json.Unmarshal)
}

func (s *testState) ReadAll() ([]core.State, error) {
	return s.StateDriver.ReadAllState("/test/", s, json.Unmarshal)
}

func (s *testState) Write() error {
	return s.StateDriver.WriteState("/test/"+s.ID, s, json.Marshal)
}

func (s *testState) Clear() error {
	return s.StateDriver.ClearState("/test/" + s.ID)
}

func newFakeDriver(t *testing.T) *FakeStateDriver {
	d := &FakeStateDriver{}
	if err := d.Init(&core.InstanceInfo{}); err != nil {
		t.Fatalf("driver init failed: %v", err)
	}
	return d
}

func TestFakeStateDriverWriteRead(t *testing.T) {
	d := newFakeDriver(t)
	defer d.Deinit()

	if err := d.Write("/test/key1", []byte("value1")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	value, err := d.Read("/test/key1")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(value) != "value1" {
		t.Fatalf("read returned %q, expected %q", value, "value1")
	}
}

func TestFakeStateDriverReadMissingKey(t *testing.T) {
	d := newFakeDriver(t)
	defer d.Deinit()

	if _, err := d.Read("/test/nonexistent"); err == nil {
		t.Fatalf("read of missing key succeeded")
	}
}

func TestFakeStateDriverClearState(t *testing.T) {
	d := newFakeDriver(t)
	defer d.Deinit()

	s := &testState{Value: "v"}
	s.ID = "id1"
	s.StateDriver = d

	if err := s.Write(); err != nil {
		t.Fatalf("state write failed: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("state clear failed: %v", err)
	}
	if err := s.Read("id1"); err == nil {
		t.Fatalf("read of cleared state succeeded")
	}
}

func TestReadAllStateSetsDriver(t *testing.T) {
	d := newFakeDriver(t)
	defer d.Deinit()

	for _, id := range []string{"a", "b", "c"} {
		s := &testState{Value: "value-" + id}
		s.ID = id
		s.StateDriver = d
		if err := s.Write(); err != nil {
			t.Fatalf("state write failed: %v", err)
		}
	}

	s := &testState{}
	s.StateDriver = d
	all, err := s.ReadAll()
	if err != nil {
		t.Fatalf("readall failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("readall returned %d states, expected 3", len(all))
	}
	for _, one := range all {
		ts := one.(*testState)
		if ts.StateDriver == nil {
			t.Fatalf("state %q missing driver", ts.ID)
		}
		if ts.Value != "value-"+ts.ID {
			t.Fatalf("state %q holds value %q", ts.ID, ts.Value)
		}
	}
}

func TestNewStateDriverUnknownName(t *testing.T) {
	if _, err := NewStateDriver("bolt", &core.InstanceInfo{}); err == nil {
		t.Fatalf("unknown driver name accepted")
	}
}

func TestNewStateDriverFake(t *testing.T) {
	d, err := NewStateDriver(FakeName, &core.InstanceInfo{})
	if err != nil {
		t.Fatalf("fake driver create failed: %v", err)
	}
	d.Deinit()
}
