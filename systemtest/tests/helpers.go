package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
)

func doJSON(router *gin.Engine, method, path, bearer string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func doAdmin(router *gin.Engine, method, path, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-API-Key", apiKey)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// FakePlume serves a token endpoint and a single healthy location.
type FakePlume struct {
	SSO      *httptest.Server
	API      *httptest.Server
	SSOCalls atomic.Int32
}

func NewFakePlume(t *testing.T) *FakePlume {
	f := &FakePlume{}
	f.SSO = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.SSOCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"system-token","expires_in":3600}`)
	}))

	payloads := map[string]string{
		"/api/Customers/c1/locations/l1":              `{"id":"l1","name":"Office"}`,
		"/api/Customers/c1/locations/l1/serviceLevel": `{"connectionState":"connected"}`,
		"/api/Customers/c1/locations/l1/nodes": `[
			{"id":"n1","nickname":"Lobby","connectionState":"connected"},
			{"id":"n2","nickname":"Attic","connectionState":"disconnected"}
		]`,
		"/api/Customers/c1/locations/l1/devices": `[{"mac":"aa:bb","name":"Laptop","connectionState":"connected"}]`,
	}
	f.API = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer system-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, ok := payloads[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))

	t.Cleanup(func() {
		f.SSO.Close()
		f.API.Close()
	})
	return f
}
