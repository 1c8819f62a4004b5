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

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/netforge/fabricmap/fabric"
	"github.com/netforge/fabricmap/mapper"
	"github.com/netforge/fabricmap/netres"
	"github.com/netforge/fabricmap/policy"
	"github.com/netforge/fabricmap/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *mux.Router {
	driver := &state.FakeStateDriver{}
	require.NoError(t, driver.Init(nil))

	m := mapper.New(policy.NewMemDirectory(), netres.NewMemService(),
		fabric.NewStore(driver), state.NewLocalLockService(), mapper.Config{
			DefaultPoolPrefix:   "10.0.0.0/16",
			DefaultPrefixLength: 24,
		})

	router := mux.NewRouter()
	NewServer(m).RegisterRoutes(router)
	return router
}

func doJSON(t *testing.T, router *mux.Router, method, path string,
	body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndStatus(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/routing-domains",
		&policy.RoutingDomain{ID: "rd1", Tenant: "t1", Name: "corp"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, "GET", "/api/v1/routing-domains/rd1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, policy.StatusBuild, status["status"])

	rec = doJSON(t, router, "GET", "/api/v1/routing-domains/rd1/details", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var details mapper.RoutingDomainDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	assert.Equal(t, "prj_t1", details.FabricTenant)
	assert.NotEmpty(t, details.RoutingContextName)
}

func TestValidationMapsToBadRequest(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/v1/routing-domains",
		&policy.RoutingDomain{
			ID: "rd1", Tenant: "t1", Name: "corp",
			AddressScopeV4ID: "s4", AddressScopeV6ID: "s6",
		})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, "POST", "/api/v1/external-segments",
		&policy.ExternalSegment{ID: "es1", Tenant: "t1", Name: "wan"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMalformedBodyMapsToBadRequest(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("POST", "/api/v1/routing-domains",
		bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMissingObjectMapsToNotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, "DELETE", "/api/v1/routing-domains/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, "GET", "/api/v1/bridging-domains/nope/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRuleLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	rule := &policy.TrafficRule{
		ID: "r1", Tenant: "t1", Name: "http",
		Classifier: policy.Classifier{Protocol: "tcp", Direction: "in", PortRange: "80"},
	}
	rec := doJSON(t, router, "POST", "/api/v1/traffic-rules", rule)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// direction change is rejected
	changed := *rule
	changed.Classifier.Direction = "out"
	rec = doJSON(t, router, "PUT", "/api/v1/traffic-rules/r1", &changed)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, "POST", "/api/v1/traffic-rule-sets",
		&policy.TrafficRuleSet{ID: "rs1", Tenant: "t1", Name: "web", RuleIDs: []string{"r1"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, router, "GET", "/api/v1/traffic-rule-sets/rs1/details", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var details mapper.RuleSetDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	assert.NotEmpty(t, details.ContractName)
	assert.Equal(t, "subject", details.SubjectName)

	rec = doJSON(t, router, "DELETE", "/api/v1/traffic-rule-sets/rs1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, router, "DELETE", "/api/v1/traffic-rules/r1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
