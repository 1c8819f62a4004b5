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

package netutils

import (
	"testing"
)

func TestParseCIDR(t *testing.T) {
	ip, length, err := ParseCIDR("10.1.2.0/24")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ip != "10.1.2.0" || length != 24 {
		t.Fatalf("parse returned %s/%d", ip, length)
	}

	for _, bad := range []string{"10.1.2.0", "10.1.2.0/33", "banana/24", "10.1.2.0/-1"} {
		if _, _, err := ParseCIDR(bad); err == nil {
			t.Fatalf("parse of %q succeeded", bad)
		}
	}
}

func TestSubnetAddr(t *testing.T) {
	addr, err := SubnetAddr("10.1.2.77", 24)
	if err != nil {
		t.Fatalf("subnet addr failed: %v", err)
	}
	if addr != "10.1.2.0" {
		t.Fatalf("subnet addr is %s", addr)
	}
}

func TestGatewayAddr(t *testing.T) {
	gw, err := GatewayAddr("10.1.2.0/24")
	if err != nil {
		t.Fatalf("gateway failed: %v", err)
	}
	if gw != "10.1.2.1" {
		t.Fatalf("gateway is %s", gw)
	}

	if _, err := GatewayAddr("10.1.2.0/31"); err == nil {
		t.Fatalf("gateway of /31 succeeded")
	}
}

func TestIsOverlappingSubnet(t *testing.T) {
	if !IsOverlappingSubnet("10.1.0.0/16", "10.1.2.0/24") {
		t.Fatalf("containment not detected")
	}
	if !IsOverlappingSubnet("10.1.2.0/24", "10.1.0.0/16") {
		t.Fatalf("reverse containment not detected")
	}
	if IsOverlappingSubnet("10.1.2.0/24", "10.1.3.0/24") {
		t.Fatalf("disjoint subnets flagged as overlapping")
	}
}

func TestCarveSubnet(t *testing.T) {
	subnet, err := CarveSubnet("10.0.0.0/16", 24, nil)
	if err != nil {
		t.Fatalf("carve failed: %v", err)
	}
	if subnet != "10.0.0.0/24" {
		t.Fatalf("carve returned %s", subnet)
	}

	subnet, err = CarveSubnet("10.0.0.0/16", 24,
		[]string{"10.0.0.0/24", "10.0.1.0/24"})
	if err != nil {
		t.Fatalf("carve failed: %v", err)
	}
	if subnet != "10.0.2.0/24" {
		t.Fatalf("carve returned %s", subnet)
	}
}

func TestCarveSubnetSkipsCoveringUsed(t *testing.T) {
	// a used CIDR wider than the carve length blocks every subnet it covers
	subnet, err := CarveSubnet("10.0.0.0/16", 26, []string{"10.0.0.0/24"})
	if err != nil {
		t.Fatalf("carve failed: %v", err)
	}
	if subnet != "10.0.1.0/26" {
		t.Fatalf("carve returned %s", subnet)
	}
}

func TestCarveSubnetExhaustion(t *testing.T) {
	if _, err := CarveSubnet("10.0.0.0/24", 25,
		[]string{"10.0.0.0/25", "10.0.0.128/25"}); err == nil {
		t.Fatalf("carve of exhausted pool succeeded")
	}
}

func TestCarveSubnetBadLength(t *testing.T) {
	if _, err := CarveSubnet("10.0.0.0/24", 16, nil); err == nil {
		t.Fatalf("carve wider than pool succeeded")
	}
	if _, err := CarveSubnet("10.0.0.0/24", 31, nil); err == nil {
		t.Fatalf("carve of /31 succeeded")
	}
}

func TestGatewayAddrV6(t *testing.T) {
	gw, err := GatewayAddr("fd10:0:1::/64")
	if err != nil {
		t.Fatalf("gateway failed: %v", err)
	}
	if gw != "fd10:0:1::1" {
		t.Fatalf("gateway is %s", gw)
	}

	if _, err := GatewayAddr("fd10::/127"); err == nil {
		t.Fatalf("gateway of /127 succeeded")
	}
}

func TestHostAddrV6(t *testing.T) {
	addr, err := HostAddr("fd10:0:1::/64", 5)
	if err != nil {
		t.Fatalf("host addr failed: %v", err)
	}
	if addr != "fd10:0:1::5" {
		t.Fatalf("host addr is %s", addr)
	}
}

func TestIsOverlappingSubnetV6(t *testing.T) {
	if !IsOverlappingSubnet("fd10::/48", "fd10:0:0:1::/64") {
		t.Fatalf("v6 containment not detected")
	}
	if IsOverlappingSubnet("fd10:0:0:1::/64", "fd10:0:0:2::/64") {
		t.Fatalf("disjoint v6 subnets flagged as overlapping")
	}
}

func TestCarveSubnetV6(t *testing.T) {
	subnet, err := CarveSubnet("fd10::/48", 64, nil)
	if err != nil {
		t.Fatalf("carve failed: %v", err)
	}
	if subnet != "fd10::/64" {
		t.Fatalf("carve returned %s", subnet)
	}

	subnet, err = CarveSubnet("fd10::/48", 64, []string{"fd10::/64"})
	if err != nil {
		t.Fatalf("carve failed: %v", err)
	}
	if subnet != "fd10:0:0:1::/64" {
		t.Fatalf("carve returned %s", subnet)
	}
}

func TestCarveSubnetV6Exhaustion(t *testing.T) {
	if _, err := CarveSubnet("fd10::/64", 65,
		[]string{"fd10::/65", "fd10::8000:0:0:0/65"}); err == nil {
		t.Fatalf("carve of exhausted v6 pool succeeded")
	}
}
