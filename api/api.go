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

// Package api exposes the mapping engine over HTTP. Every route decodes a
// policy object, drives the corresponding DomainMapper operation and
// answers JSON. Validation failures map to 400, lookup misses to 404.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/netforge/fabricmap/core"
	"github.com/netforge/fabricmap/mapper"
	"github.com/netforge/fabricmap/netres"
	"github.com/netforge/fabricmap/policy"

	log "github.com/sirupsen/logrus"
)

// validationErrors are rejected before any state changes; they are the
// caller's fault.
var validationErrors = []error{
	policy.ErrSimultaneousAddressFamily,
	policy.ErrSimultaneousSubnetpools,
	policy.ErrInconsistentAddressScopeSubnetpool,
	policy.ErrNoAddressScopeForSubnetpool,
	policy.ErrMultipleRoutersNotSupported,
	policy.ErrRoutersUpdateNotSupported,
	policy.ErrExplicitSubnetAssociationNotSupported,
	policy.ErrSharedAttributeUpdateNotSupported,
	policy.ErrAutoGroupDeleteNotSupported,
	policy.ErrHierarchicalRuleSetsNotSupported,
	policy.ErrClassifierUpdateNotSupported,
	policy.ErrSharedExternalPolicy,
	policy.ErrMultipleExternalPolicies,
	policy.ErrExternalSegmentNoSubnet,
}

// Server routes HTTP requests to the mapping engine.
type Server struct {
	mapper *mapper.DomainMapper
}

// NewServer wires a Server to the engine.
func NewServer(m *mapper.DomainMapper) *Server {
	return &Server{mapper: m}
}

// RegisterRoutes installs all API routes on the router.
func (s *Server) RegisterRoutes(router *mux.Router) {
	sub := router.PathPrefix("/api/v1").Subrouter()

	register := func(name string, create, update func(*http.Request) error,
		del func(id string) error, status func(id string) (string, error),
		details func(*mapper.DetailCache, string) (interface{}, error)) {
		sub.HandleFunc("/"+name, makeWriteHandler(create)).Methods("POST")
		sub.HandleFunc("/"+name+"/{id}", makeWriteHandler(update)).Methods("PUT")
		sub.HandleFunc("/"+name+"/{id}", makeDeleteHandler(del)).Methods("DELETE")
		sub.HandleFunc("/"+name+"/{id}/status", makeStatusHandler(status)).Methods("GET")
		if details != nil {
			sub.HandleFunc("/"+name+"/{id}/details", makeDetailsHandler(details)).Methods("GET")
		}
	}

	register("routing-domains",
		decodeThen(func(rd *policy.RoutingDomain) error { return s.mapper.CreateRoutingDomain(rd) }),
		decodeThen(func(rd *policy.RoutingDomain) error { return s.mapper.UpdateRoutingDomain(rd) }),
		s.mapper.DeleteRoutingDomain,
		s.mapper.RoutingDomainStatus,
		func(cache *mapper.DetailCache, id string) (interface{}, error) {
			return s.mapper.ExtendRoutingDomainDetails(cache, id)
		})

	register("bridging-domains",
		decodeThen(func(bd *policy.BridgingDomain) error { return s.mapper.CreateBridgingDomain(bd) }),
		decodeThen(func(bd *policy.BridgingDomain) error { return s.mapper.UpdateBridgingDomain(bd) }),
		s.mapper.DeleteBridgingDomain,
		s.mapper.BridgingDomainStatus,
		func(cache *mapper.DetailCache, id string) (interface{}, error) {
			return s.mapper.ExtendBridgingDomainDetails(cache, id)
		})

	register("endpoint-groups",
		decodeThen(func(g *policy.EndpointGroup) error { return s.mapper.CreateEndpointGroup(g) }),
		decodeThen(func(g *policy.EndpointGroup) error { return s.mapper.UpdateEndpointGroup(g) }),
		s.mapper.DeleteEndpointGroup,
		s.mapper.EndpointGroupStatus,
		nil)

	register("endpoints",
		decodeThen(func(ep *policy.Endpoint) error { return s.mapper.CreateEndpoint(ep) }),
		decodeThen(func(ep *policy.Endpoint) error { return s.mapper.UpdateEndpoint(ep) }),
		s.mapper.DeleteEndpoint,
		nil,
		nil)

	register("traffic-rules",
		decodeThen(func(r *policy.TrafficRule) error { return s.mapper.CreateTrafficRule(r) }),
		decodeThen(func(r *policy.TrafficRule) error { return s.mapper.UpdateTrafficRule(r) }),
		s.mapper.DeleteTrafficRule,
		s.mapper.TrafficRuleStatus,
		nil)

	register("traffic-rule-sets",
		decodeThen(func(set *policy.TrafficRuleSet) error { return s.mapper.CreateTrafficRuleSet(set) }),
		decodeThen(func(set *policy.TrafficRuleSet) error { return s.mapper.UpdateTrafficRuleSet(set) }),
		s.mapper.DeleteTrafficRuleSet,
		s.mapper.TrafficRuleSetStatus,
		func(cache *mapper.DetailCache, id string) (interface{}, error) {
			return s.mapper.ExtendRuleSetDetails(cache, id)
		})

	register("external-segments",
		decodeThen(func(seg *policy.ExternalSegment) error { return s.mapper.CreateExternalSegment(seg) }),
		decodeThen(func(seg *policy.ExternalSegment) error { return s.mapper.UpdateExternalSegment(seg) }),
		s.mapper.DeleteExternalSegment,
		s.mapper.ExternalSegmentStatus,
		nil)

	register("external-policies",
		decodeThen(func(pol *policy.ExternalPolicy) error { return s.mapper.CreateExternalPolicy(pol) }),
		decodeThen(func(pol *policy.ExternalPolicy) error { return s.mapper.UpdateExternalPolicy(pol) }),
		s.mapper.DeleteExternalPolicy,
		nil,
		nil)
}

// decodeThen builds a request handler that decodes the body into T and
// applies fn.
func decodeThen[T any](fn func(*T) error) func(*http.Request) error {
	return func(r *http.Request) error {
		obj := new(T)
		if err := json.NewDecoder(r.Body).Decode(obj); err != nil {
			return &badRequestError{err}
		}
		return fn(obj)
	}
}

type badRequestError struct{ err error }

func (e *badRequestError) Error() string { return e.err.Error() }

func makeWriteHandler(fn func(*http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
	}
}

func makeDeleteHandler(fn func(id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(mux.Vars(r)["id"]); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
	}
}

func makeStatusHandler(fn func(id string) (string, error)) http.HandlerFunc {
	if fn == nil {
		return func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": policy.StatusActive})
		}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := fn(mux.Vars(r)["id"])
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": st})
	}
}

func makeDetailsHandler(fn func(*mapper.DetailCache, string) (interface{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		details, err := fn(mapper.NewDetailCache(), mux.Vars(r)["id"])
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, details)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case isValidationError(err):
		code = http.StatusBadRequest
	case errors.Is(err, policy.ErrNotFound), errors.Is(err, netres.ErrNotFound),
		core.IsKeyNotFound(err):
		code = http.StatusNotFound
	}
	if code == http.StatusInternalServerError {
		log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func isValidationError(err error) bool {
	var bad *badRequestError
	if errors.As(err, &bad) {
		return true
	}
	for _, sentinel := range validationErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("encoding response: %v", err)
	}
}
