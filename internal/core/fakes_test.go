package core

import (
	"context"
	"errors"
	"path/filepath"

	"raur/internal/ports"
	"raur/internal/shared"
	"raur/internal/types"
)

type fakeMetadata struct {
	packages map[types.PackageName]types.PackageMetadata
	err      error
	calls    [][]types.PackageName
}

func (f *fakeMetadata) Lookup(_ context.Context, names []types.PackageName) (map[types.PackageName]types.PackageMetadata, error) {
	f.calls = append(f.calls, append([]types.PackageName(nil), names...))
	if f.err != nil {
		return nil, f.err
	}
	out := map[types.PackageName]types.PackageMetadata{}
	for _, name := range names {
		if meta, ok := f.packages[name]; ok {
			out[name] = meta
		}
	}
	return out, nil
}

// aurPackage builds metadata from raw dependency strings, runtime first
// then build dependencies after a "|" separator entry.
func aurPackage(name string, version string, deps ...string) types.PackageMetadata {
	meta := types.PackageMetadata{
		Name:         types.PackageName(name),
		Version:      version,
		RecipeSource: "https://aur.archlinux.org/" + name + ".git",
	}
	build := false
	for _, raw := range deps {
		if raw == "|" {
			build = true
			continue
		}
		dep, err := shared.ParseDependency(raw)
		if err != nil {
			panic(err)
		}
		if build {
			meta.BuildDependencies = append(meta.BuildDependencies, dep)
		} else {
			meta.RuntimeDependencies = append(meta.RuntimeDependencies, dep)
		}
	}
	return meta
}

func newFakeMetadata(pkgs ...types.PackageMetadata) *fakeMetadata {
	f := &fakeMetadata{packages: map[types.PackageName]types.PackageMetadata{}}
	for _, pkg := range pkgs {
		f.packages[pkg.Name] = pkg
	}
	return f
}

type fakeInstalled struct {
	versions map[types.PackageName]string
	// provides maps a provided name to the version it is provided at.
	provides map[types.PackageName]string
	err      error
	queries  []types.PackageName
}

func newFakeInstalled(pairs ...string) *fakeInstalled {
	f := &fakeInstalled{versions: map[types.PackageName]string{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		f.versions[types.PackageName(pairs[i])] = pairs[i+1]
	}
	return f
}

func (f *fakeInstalled) Query(_ context.Context, name types.PackageName) (string, bool, error) {
	f.queries = append(f.queries, name)
	if f.err != nil {
		return "", false, f.err
	}
	if version, ok := f.versions[name]; ok {
		return version, true, nil
	}
	_, provided := f.provides[name]
	return "", provided, nil
}

func (f *fakeInstalled) Satisfied(_ context.Context, dep types.Dependency) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if version, ok := f.versions[dep.Name]; ok {
		return Satisfies(version, dep), nil
	}
	if version, ok := f.provides[dep.Name]; ok {
		return Satisfies(version, dep), nil
	}
	return false, nil
}

func (f *fakeInstalled) ListForeign(context.Context) ([]types.InstalledPackage, error) {
	var out []types.InstalledPackage
	for name, version := range f.versions {
		out = append(out, types.InstalledPackage{Name: name, Version: version})
	}
	return out, nil
}

type fakeRepo struct {
	providers map[types.PackageName]types.InstalledPackage
	// provides holds the provide version of names served by a package
	// with a different name.
	provides map[types.PackageName]string
}

func (f fakeRepo) Provider(_ context.Context, dep types.Dependency) (types.InstalledPackage, bool, error) {
	pkg, ok := f.providers[dep.Name]
	if !ok {
		return types.InstalledPackage{}, false, nil
	}
	version := pkg.Version
	if provided, ok := f.provides[dep.Name]; ok {
		version = provided
	}
	if !Satisfies(version, dep) {
		return types.InstalledPackage{}, false, nil
	}
	return pkg, true, nil
}

type fakeStager struct {
	fail    map[types.PackageName]error
	digests map[string]string
	staged  []types.PackageName
}

func (f *fakeStager) Stage(_ context.Context, meta types.PackageMetadata) (types.StagedRecipe, error) {
	f.staged = append(f.staged, meta.Name)
	if err := f.fail[meta.Name]; err != nil {
		return types.StagedRecipe{}, err
	}
	return types.StagedRecipe{
		Dir:    filepath.Join("/work", meta.Base()),
		Digest: f.digests[meta.Base()],
	}, nil
}

type fakeBuilder struct {
	fail map[types.PackageName]error
	// outputs overrides the package names built for a request.
	outputs map[types.PackageName][]types.PackageName
	built   []types.PackageName
	ctxs    []context.Context
}

func (f *fakeBuilder) Build(ctx context.Context, req ports.BuildRequest) ([]string, error) {
	f.built = append(f.built, req.Name)
	f.ctxs = append(f.ctxs, ctx)
	if err := f.fail[req.Name]; err != nil {
		return nil, err
	}
	names, ok := f.outputs[req.Name]
	if !ok {
		names = []types.PackageName{req.Name}
	}
	artifacts := make([]string, 0, len(names))
	for _, name := range names {
		artifacts = append(artifacts, filepath.Join(req.Dir, string(name)+"-1.0-1-x86_64.pkg.tar.zst"))
	}
	return artifacts, nil
}

type fakeInstaller struct {
	installed    *fakeInstalled
	preflightErr error
	fail         map[types.PackageName]error
	requests     []ports.InstallRequest
	removed      []types.PackageName
	onInstall    func(req ports.InstallRequest)
}

func (f *fakeInstaller) Preflight() error {
	return f.preflightErr
}

func (f *fakeInstaller) Install(_ context.Context, req ports.InstallRequest) error {
	f.requests = append(f.requests, req)
	if f.onInstall != nil {
		f.onInstall(req)
	}
	for _, name := range installTargets(req) {
		if err := f.fail[name]; err != nil {
			return err
		}
		if f.installed != nil {
			f.installed.versions[name] = "1.0-1"
		}
	}
	return nil
}

func (f *fakeInstaller) Remove(_ context.Context, names []types.PackageName) error {
	f.removed = append(f.removed, names...)
	return nil
}

// installTargets recovers package names from the fake artifact paths.
func installTargets(req ports.InstallRequest) []types.PackageName {
	out := append([]types.PackageName(nil), req.Packages...)
	for _, artifact := range req.Artifacts {
		base := filepath.Base(artifact)
		name := base[:len(base)-len("-1.0-1-x86_64.pkg.tar.zst")]
		out = append(out, types.PackageName(name))
	}
	return out
}

var errBoom = errors.New("boom")
