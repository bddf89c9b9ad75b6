package app

import (
	"context"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raur/internal/types"
)

func TestInfoReportsInstalledState(t *testing.T) {
	fx := newServiceFixture(t, scenarioMetadata(), newStubInstalled("q", "0.9-1"))

	result, err := fx.service.Info(context.Background(), InfoRequest{Names: []string{"p", "q"}})
	require.NoError(t, err)
	require.Len(t, result.Packages, 2)
	assert.Equal(t, types.PackageName("p"), result.Packages[0].Metadata.Name)
	assert.False(t, result.Packages[0].Installed)
	assert.True(t, result.Packages[1].Installed)
	assert.Equal(t, "0.9-1", result.Packages[1].InstalledVersion)
}

func TestInfoMissingPackage(t *testing.T) {
	fx := newServiceFixture(t, scenarioMetadata(), newStubInstalled())

	result, err := fx.service.Info(context.Background(), InfoRequest{Names: []string{"p", "ghost"}})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
	assert.Len(t, result.Packages, 1)

	_, err = fx.service.Info(context.Background(), InfoRequest{Names: []string{"-bad"}})
	require.Error(t, err)
	_, err = fx.service.Info(context.Background(), InfoRequest{})
	require.Error(t, err)
}

func TestSearchMarksInstalled(t *testing.T) {
	installed := newStubInstalled()
	installed.foreign = []types.InstalledPackage{{Name: "q", Version: "0.9-1"}}
	fx := newServiceFixture(t, newStubMetadata(aurPackage("q", "1.0-1"), aurPackage("qq", "1.0-1"), aurPackage("r", "1.0-1")), installed)

	result, err := fx.service.Search(context.Background(), SearchRequest{Term: "q"})
	require.NoError(t, err)
	require.Len(t, result.Packages, 2)
	assert.True(t, result.Packages[0].Installed)
	assert.Equal(t, "0.9-1", result.Packages[0].InstalledVersion)
	assert.False(t, result.Packages[1].Installed)

	fx.service.Searcher = nil
	_, err = fx.service.Search(context.Background(), SearchRequest{Term: "q"})
	require.Error(t, err)
}
