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

package core

import (
	"strings"
	"testing"
)

func TestErrorStringFormat(t *testing.T) {
	refStr := "error string"
	e := Errorf("%s", refStr)

	if !strings.HasPrefix(e.Error(), refStr) {
		t.Fatalf("error string %q does not start with %q", e.Error(), refStr)
	}
	if !strings.Contains(e.Error(), "error_test.go") {
		t.Fatalf("error string %q does not carry the source file", e.Error())
	}
}

func TestErrIfKeyExists(t *testing.T) {
	if err := ErrIfKeyExists(nil); err != nil {
		t.Fatalf("nil error was not squashed: %v", err)
	}
	if err := ErrIfKeyExists(Errorf("key not found")); err != nil {
		t.Fatalf("key-not-found error was not squashed: %v", err)
	}
	if err := ErrIfKeyExists(Errorf("cluster unavailable")); err == nil {
		t.Fatalf("unrelated error was squashed")
	}
}
