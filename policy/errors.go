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

package policy

import "errors"

// Validation errors raised synchronously before any state is committed.
// Callers match them with errors.Is and map them to bad-request responses.
var (
	// ErrSimultaneousAddressFamily rejects a RoutingDomain configured
	// with both v4 and v6 address scopes.
	ErrSimultaneousAddressFamily = errors.New("simultaneous v4 and v6 address scopes not supported")

	// ErrSimultaneousSubnetpools rejects subnet pools of both families on
	// one RoutingDomain.
	ErrSimultaneousSubnetpools = errors.New("simultaneous v4 and v6 subnet pools not supported")

	// ErrInconsistentAddressScopeSubnetpool rejects subnet pools that do
	// not share the RoutingDomain's address scope.
	ErrInconsistentAddressScopeSubnetpool = errors.New("subnet pool does not match the address scope")

	// ErrNoAddressScopeForSubnetpool rejects subnet pools carrying no
	// address scope at all.
	ErrNoAddressScopeForSubnetpool = errors.New("subnet pool has no address scope")

	// ErrMultipleRoutersNotSupported rejects more than one explicit
	// router on a RoutingDomain.
	ErrMultipleRoutersNotSupported = errors.New("multiple routers not supported")

	// ErrRoutersUpdateNotSupported rejects router-set changes after
	// RoutingDomain creation.
	ErrRoutersUpdateNotSupported = errors.New("updating routers not supported")

	// ErrExplicitSubnetAssociationNotSupported rejects caller-assigned
	// subnets on an EndpointGroup.
	ErrExplicitSubnetAssociationNotSupported = errors.New("explicit subnet association not supported")

	// ErrSharedAttributeUpdateNotSupported rejects shared-flag changes on
	// update.
	ErrSharedAttributeUpdateNotSupported = errors.New("updating shared attribute not supported")

	// ErrAutoGroupDeleteNotSupported rejects direct deletion of the
	// synthesized per-BridgingDomain group.
	ErrAutoGroupDeleteNotSupported = errors.New("auto group cannot be deleted directly")

	// ErrHierarchicalRuleSetsNotSupported rejects rule sets referencing
	// child rule sets.
	ErrHierarchicalRuleSetsNotSupported = errors.New("hierarchical rule sets not supported")

	// ErrClassifierUpdateNotSupported rejects direction or protocol
	// changes on an existing rule.
	ErrClassifierUpdateNotSupported = errors.New("updating classifier direction or protocol not supported")

	// ErrSharedExternalPolicy rejects external policies marked shared.
	ErrSharedExternalPolicy = errors.New("shared external policy not supported")

	// ErrMultipleExternalPolicies rejects a second external policy on a
	// segment's tenant.
	ErrMultipleExternalPolicies = errors.New("only one external policy per tenant supported")

	// ErrExternalSegmentNoSubnet rejects external segments without an
	// explicit subnet.
	ErrExternalSegmentNoSubnet = errors.New("external segment requires an explicit subnet")

	// ErrNotFound reports a policy object lookup miss in the directory.
	ErrNotFound = errors.New("policy object not found")
)
