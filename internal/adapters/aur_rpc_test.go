package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raur/internal/types"
)

func fakeRPCServer(t *testing.T, packages map[string]rpcResult, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		query := r.URL.Query()
		assert.Equal(t, "5", query.Get("v"))
		resp := rpcResponse{Version: 5, Type: query.Get("type")}
		switch query.Get("type") {
		case "info":
			resp.Type = "multiinfo"
			for _, name := range query["arg[]"] {
				if pkg, ok := packages[name]; ok {
					resp.Results = append(resp.Results, pkg)
				}
			}
		case "search":
			for _, pkg := range packages {
				resp.Results = append(resp.Results, pkg)
			}
		}
		resp.ResultCount = len(resp.Results)
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func testRPCAdapter(url string) AURRPCAdapter {
	adapter := NewAURRPCAdapter(url, "https://aur.example", 5, 3, 2, 2)
	adapter.RetryDelay = time.Millisecond
	return adapter
}

func TestAURRPCLookupBatches(t *testing.T) {
	var hits atomic.Int32
	server := fakeRPCServer(t, map[string]rpcResult{
		"a": {Name: "a", Version: "1.0-1", Depends: []string{"b>=2"}, MakeDepends: []string{"cmake"}, CheckDepends: []string{"gtest"}},
		"b": {Name: "b", PackageBase: "b-base", Version: "2.0-1", URLPath: "/cgit/aur.git/snapshot/b-base.tar.gz"},
		"c": {Name: "c", Version: "3.0-1", OutOfDate: new(int64)},
		"d": {Name: "d", Version: "4.0-1", Popularity: 1.5},
	}, &hits)
	defer server.Close()

	got, err := testRPCAdapter(server.URL).Lookup(context.Background(), []types.PackageName{"a", "b", "c", "d", "missing"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
	require.Len(t, got, 4)
	assert.NotContains(t, got, types.PackageName("missing"))

	a := got["a"]
	assert.Equal(t, []types.Dependency{{Name: "b", Op: types.ConstraintOpGte, Version: "2"}}, a.RuntimeDependencies)
	assert.Equal(t, []types.Dependency{{Name: "cmake"}, {Name: "gtest"}}, a.BuildDependencies)
	assert.Equal(t, "https://aur.example/a.git", a.RecipeSource)

	b := got["b"]
	assert.Equal(t, "b-base", b.Base())
	assert.Equal(t, "https://aur.example/b-base.git", b.RecipeSource)
	assert.Equal(t, "/cgit/aur.git/snapshot/b-base.tar.gz", b.SnapshotPath)
	assert.True(t, got["c"].OutOfDate)
	assert.False(t, got["d"].OutOfDate)
}

func TestAURRPCLookupEmpty(t *testing.T) {
	got, err := testRPCAdapter("http://127.0.0.1:1").Lookup(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAURRPCRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"version":5,"type":"multiinfo","resultcount":1,"results":[{"Name":"a","Version":"1-1"}]}`))
	}))
	defer server.Close()

	got, err := testRPCAdapter(server.URL).Lookup(context.Background(), []types.PackageName{"a"})
	require.NoError(t, err)
	assert.Contains(t, got, types.PackageName("a"))
	assert.Equal(t, int32(3), hits.Load())
}

func TestAURRPCDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testRPCAdapter(server.URL).Lookup(context.Background(), []types.PackageName{"a"})
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestAURRPCRejectsMalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `<html>oops</html>`},
		{name: "error type", body: `{"version":5,"type":"error","error":"Too many package results."}`},
		{name: "bad version", body: `{"version":4,"type":"multiinfo","results":[]}`},
		{name: "invalid name", body: `{"version":5,"type":"multiinfo","results":[{"Name":"-bad","Version":"1"}]}`},
		{name: "empty version", body: `{"version":5,"type":"multiinfo","results":[{"Name":"a","Version":""}]}`},
		{name: "invalid dependency", body: `{"version":5,"type":"multiinfo","results":[{"Name":"a","Version":"1","Depends":["b>="]}]}`},
		{name: "wrong field type", body: `{"version":5,"type":"multiinfo","results":[{"Name":"a","Version":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := testRPCAdapter(server.URL).Lookup(context.Background(), []types.PackageName{"a"})
			require.Error(t, err)
		})
	}
}

func TestAURRPCSearchSortsByPopularity(t *testing.T) {
	server := fakeRPCServer(t, map[string]rpcResult{
		"yay":     {Name: "yay", Version: "12.0-1", Popularity: 20},
		"yay-bin": {Name: "yay-bin", Version: "12.0-1", Popularity: 10},
		"yay-git": {Name: "yay-git", Version: "12.0.r1-1", Popularity: 10},
		"yaycli":  {Name: "yaycli", Version: "0.1-1"},
	}, nil)
	defer server.Close()

	got, err := testRPCAdapter(server.URL).Search(context.Background(), "yay")
	require.NoError(t, err)
	var names []types.PackageName
	for _, meta := range got {
		names = append(names, meta.Name)
	}
	assert.Equal(t, []types.PackageName{"yay", "yay-bin", "yay-git", "yaycli"}, names)
}

func TestAURRPCSearchRejectsShortTerm(t *testing.T) {
	_, err := testRPCAdapter("http://127.0.0.1:1").Search(context.Background(), "y")
	require.Error(t, err)
}

func TestChunkNames(t *testing.T) {
	chunks := chunkNames([]types.PackageName{"a", "b", "c"}, 2)
	assert.Equal(t, [][]types.PackageName{{"a", "b"}, {"c"}}, chunks)
	assert.Nil(t, chunkNames(nil, 2))
}

func TestNewAURRPCAdapterDefaults(t *testing.T) {
	adapter := NewAURRPCAdapter("", "", 0, 0, 0, 0)
	assert.Equal(t, DefaultRPCURL, adapter.RPCURL)
	assert.Equal(t, DefaultAURURL, adapter.AURURL)
	assert.Equal(t, defaultRPCTimeout, adapter.Timeout)
	assert.Equal(t, defaultRPCRetries, adapter.Retries)
	assert.Equal(t, defaultRPCBatchSize, adapter.BatchSize)
	assert.Equal(t, defaultRPCWorkers, adapter.Workers)
}
