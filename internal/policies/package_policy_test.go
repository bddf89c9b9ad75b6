package policies

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raur/internal/types"
)

func TestPackagePolicyIgnored(t *testing.T) {
	policy := NewPackagePolicy([]string{"yay", "google-*", "repo:linux*", "aur:paru", "bogus:x", " ", "aur:"})

	tests := []struct {
		origin types.Origin
		name   types.PackageName
		want   bool
	}{
		{types.OriginAUR, "yay", true},
		{types.OriginRepo, "yay", true},
		{types.OriginAUR, "google-chrome", true},
		{types.OriginAUR, "linux-zen", false},
		{types.OriginRepo, "linux-zen", true},
		{types.OriginAUR, "paru", true},
		{types.OriginRepo, "paru", false},
		{types.OriginAUR, "x", false},
		{types.OriginAUR, "yay-bin", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.origin)+"/"+string(tt.name), func(t *testing.T) {
			if diff := cmp.Diff(tt.want, policy.Ignored(tt.origin, tt.name)); diff != "" {
				t.Fatalf("unexpected ignore decision (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPackagePolicyWildcards(t *testing.T) {
	assert.True(t, NewPackagePolicy([]string{"*"}).Ignored(types.OriginRepo, "bash"))
	scoped := NewPackagePolicy([]string{"repo:*"})
	assert.True(t, scoped.Ignored(types.OriginRepo, "bash"))
	assert.False(t, scoped.Ignored(types.OriginAUR, "yay"))
	assert.False(t, NewPackagePolicy(nil).Ignored(types.OriginAUR, "yay"))
}

func TestPackagePolicyCheckRequest(t *testing.T) {
	policy := NewPackagePolicy([]string{"held"})
	require.NoError(t, policy.CheckRequest("yay"))

	err := policy.CheckRequest("yay-debug")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "debug package yay-debug")

	err = policy.CheckRequest("held")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ignored by configuration")
}

func TestPackagePolicyUpdateCandidate(t *testing.T) {
	policy := NewPackagePolicy([]string{"google-*"})
	assert.True(t, policy.UpdateCandidate("yay"))
	assert.False(t, policy.UpdateCandidate("yay-dbgsym"))
	assert.False(t, policy.UpdateCandidate("google-chrome"))
}
