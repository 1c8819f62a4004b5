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

// Package netutils provides IPv4 and IPv6 subnet math for carving implicit
// subnets out of address pool prefixes.
package netutils

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/netforge/fabricmap/core"
)

func ipv4ToUint32(ipaddr string) (uint32, error) {
	ip := net.ParseIP(ipaddr).To4()
	if ip == nil {
		return 0, core.Errorf("ipv4 to uint32 conversion: invalid ip format")
	}

	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3]), nil
}

func ipv4Uint32ToString(ipUint32 uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d",
		byte(ipUint32>>24), byte(ipUint32>>16), byte(ipUint32>>8), byte(ipUint32))
}

// IsIPv6 tells whether the address or CIDR is an IPv6 one.
func IsIPv6(ip string) bool { return strings.Contains(ip, ":") }

func v6Prefix(cidr string) (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil || !prefix.Addr().Is6() {
		return netip.Prefix{}, core.Errorf("invalid ipv6 cidr %q", cidr)
	}
	return prefix.Masked(), nil
}

// v6Add adds offset<<shift to the 128-bit address.
func v6Add(addr netip.Addr, offset uint64, shift uint) netip.Addr {
	raw := addr.As16()
	hi := binary.BigEndian.Uint64(raw[:8])
	lo := binary.BigEndian.Uint64(raw[8:])

	var addHi, addLo uint64
	if shift >= 64 {
		addHi = offset << (shift - 64)
	} else {
		addLo = offset << shift
		if shift > 0 {
			addHi = offset >> (64 - shift)
		}
	}

	sumLo := lo + addLo
	if sumLo < lo {
		hi++
	}
	hi += addHi

	binary.BigEndian.PutUint64(raw[:8], hi)
	binary.BigEndian.PutUint64(raw[8:], sumLo)
	return netip.AddrFrom16(raw)
}

// ParseCIDR parses a CIDR string into an address and a prefix length.
func ParseCIDR(cidrStr string) (string, uint, error) {
	strs := strings.Split(cidrStr, "/")
	if len(strs) != 2 {
		return "", 0, core.Errorf("invalid cidr format")
	}

	subnetStr := strs[0]
	subnetLen, err := strconv.Atoi(strs[1])
	if err != nil || subnetLen < 0 || subnetLen > 32 || net.ParseIP(subnetStr).To4() == nil {
		return "", 0, core.Errorf("invalid cidr %q", cidrStr)
	}

	return subnetStr, uint(subnetLen), nil
}

// SubnetAddr masks the address down to the base address of its subnet.
func SubnetAddr(ipStr string, subnetLen uint) (string, error) {
	ipUint32, err := ipv4ToUint32(ipStr)
	if err != nil {
		return "", err
	}
	if subnetLen > 0 {
		ipUint32 &= ^uint32(0) << (32 - subnetLen)
	} else {
		ipUint32 = 0
	}
	return ipv4Uint32ToString(ipUint32), nil
}

func rangeOf(ipStr string, subnetLen uint) (uint32, uint32, error) {
	base, err := SubnetAddr(ipStr, subnetLen)
	if err != nil {
		return 0, 0, err
	}
	start, err := ipv4ToUint32(base)
	if err != nil {
		return 0, 0, err
	}
	end := start
	if subnetLen < 32 {
		end = start | (^uint32(0) >> subnetLen)
	}
	return start, end, nil
}

// GatewayAddr returns the first host address of the subnet, the address
// conventionally taken by the gateway.
func GatewayAddr(subnetCIDR string) (string, error) {
	if IsIPv6(subnetCIDR) {
		prefix, err := v6Prefix(subnetCIDR)
		if err != nil {
			return "", err
		}
		if prefix.Bits() > 126 {
			return "", core.Errorf("subnet %q has no usable host addresses", subnetCIDR)
		}
		return v6Add(prefix.Addr(), 1, 0).String(), nil
	}

	subnetIP, subnetLen, err := ParseCIDR(subnetCIDR)
	if err != nil {
		return "", err
	}
	if subnetLen > 30 {
		return "", core.Errorf("subnet %q has no usable host addresses", subnetCIDR)
	}

	start, _, err := rangeOf(subnetIP, subnetLen)
	if err != nil {
		return "", err
	}
	return ipv4Uint32ToString(start + 1), nil
}

// HostAddr returns the hostID-th address of the subnet. hostID 1 is the
// gateway address.
func HostAddr(subnetCIDR string, hostID uint) (string, error) {
	if IsIPv6(subnetCIDR) {
		prefix, err := v6Prefix(subnetCIDR)
		if err != nil {
			return "", err
		}
		addr := v6Add(prefix.Addr(), uint64(hostID), 0)
		if !prefix.Contains(addr) {
			return "", core.Errorf("host id %d is beyond subnet %q", hostID, subnetCIDR)
		}
		return addr.String(), nil
	}

	subnetIP, subnetLen, err := ParseCIDR(subnetCIDR)
	if err != nil {
		return "", err
	}

	start, end, err := rangeOf(subnetIP, subnetLen)
	if err != nil {
		return "", err
	}
	if uint64(start)+uint64(hostID) >= uint64(end) {
		return "", core.Errorf("host id %d is beyond subnet %q", hostID, subnetCIDR)
	}
	return ipv4Uint32ToString(start + uint32(hostID)), nil
}

// IsOverlappingSubnet verifies whether two CIDRs of one family overlap.
func IsOverlappingSubnet(inputSubnet string, existingSubnet string) bool {
	if IsIPv6(inputSubnet) || IsIPv6(existingSubnet) {
		input, err := netip.ParsePrefix(inputSubnet)
		if err != nil {
			return false
		}
		existing, err := netip.ParsePrefix(existingSubnet)
		if err != nil {
			return false
		}
		return input.Overlaps(existing)
	}

	inputIP, inputLen, err := ParseCIDR(inputSubnet)
	if err != nil {
		return false
	}
	existingIP, existingLen, err := ParseCIDR(existingSubnet)
	if err != nil {
		return false
	}

	inputStart, inputEnd, err := rangeOf(inputIP, inputLen)
	if err != nil {
		return false
	}
	existingStart, existingEnd, err := rangeOf(existingIP, existingLen)
	if err != nil {
		return false
	}

	return inputStart <= existingEnd && existingStart <= inputEnd
}

// maxCarveSubnets caps the number of carvable subnets tracked per pool.
const maxCarveSubnets = 1 << 20

// CarveSubnet allocates the first free subnet of length subnetLen from the
// pool prefix, skipping subnets overlapping any CIDR in used. Returns the
// allocated subnet in CIDR notation.
func CarveSubnet(pool string, subnetLen uint, used []string) (string, error) {
	if IsIPv6(pool) {
		return carveSubnetV6(pool, subnetLen, used)
	}

	poolIP, poolLen, err := ParseCIDR(pool)
	if err != nil {
		return "", err
	}
	if subnetLen < poolLen {
		return "", core.Errorf("subnet length /%d exceeds pool %q", subnetLen, pool)
	}
	if subnetLen > 30 {
		return "", core.Errorf("subnet length /%d leaves no host addresses", subnetLen)
	}

	numSubnets := uint(1) << (subnetLen - poolLen)
	if numSubnets > maxCarveSubnets {
		numSubnets = maxCarveSubnets
	}

	poolStart, _, err := rangeOf(poolIP, poolLen)
	if err != nil {
		return "", err
	}

	allocMap := bitset.New(numSubnets)
	for _, usedCIDR := range used {
		usedIP, usedLen, err := ParseCIDR(usedCIDR)
		if err != nil {
			continue
		}
		usedStart, usedEnd, err := rangeOf(usedIP, usedLen)
		if err != nil {
			continue
		}
		for i := uint(0); i < numSubnets; i++ {
			subnetStart := poolStart + uint32(i)<<(32-subnetLen)
			subnetEnd := subnetStart | (^uint32(0) >> subnetLen)
			if subnetStart <= usedEnd && usedStart <= subnetEnd {
				allocMap.Set(i)
			}
		}
	}

	free, ok := allocMap.NextClear(0)
	if !ok || free >= numSubnets {
		return "", core.Errorf("pool %q is exhausted", pool)
	}

	subnetBase := poolStart + uint32(free)<<(32-subnetLen)
	return fmt.Sprintf("%s/%d", ipv4Uint32ToString(subnetBase), subnetLen), nil
}

func carveSubnetV6(pool string, subnetLen uint, used []string) (string, error) {
	poolPrefix, err := v6Prefix(pool)
	if err != nil {
		return "", err
	}
	if subnetLen < uint(poolPrefix.Bits()) {
		return "", core.Errorf("subnet length /%d exceeds pool %q", subnetLen, pool)
	}
	if subnetLen > 126 {
		return "", core.Errorf("subnet length /%d leaves no host addresses", subnetLen)
	}

	numSubnets := uint(maxCarveSubnets)
	if shift := subnetLen - uint(poolPrefix.Bits()); shift < 20 {
		numSubnets = uint(1) << shift
	}

	usedPrefixes := []netip.Prefix{}
	for _, usedCIDR := range used {
		if prefix, err := netip.ParsePrefix(usedCIDR); err == nil {
			usedPrefixes = append(usedPrefixes, prefix.Masked())
		}
	}

	for i := uint(0); i < numSubnets; i++ {
		base := v6Add(poolPrefix.Addr(), uint64(i), 128-subnetLen)
		candidate := netip.PrefixFrom(base, int(subnetLen))
		clash := false
		for _, prefix := range usedPrefixes {
			if candidate.Overlaps(prefix) {
				clash = true
				break
			}
		}
		if !clash {
			return candidate.String(), nil
		}
	}
	return "", core.Errorf("pool %q is exhausted", pool)
}
