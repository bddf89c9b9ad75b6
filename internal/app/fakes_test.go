package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"raur/internal/core"
	"raur/internal/metrics"
	"raur/internal/policies"
	"raur/internal/ports"
	"raur/internal/shared"
	"raur/internal/types"
)

var errBoom = errors.New("boom")

type stubMetadata struct {
	packages map[types.PackageName]types.PackageMetadata
	err      error
	calls    int
}

// aurPackage builds metadata; deps are runtime dependency strings.
func aurPackage(name string, version string, deps ...string) types.PackageMetadata {
	meta := types.PackageMetadata{
		Name:         types.PackageName(name),
		Version:      version,
		RecipeSource: "https://aur.archlinux.org/" + name + ".git",
	}
	for _, raw := range deps {
		dep, err := shared.ParseDependency(raw)
		if err != nil {
			panic(err)
		}
		meta.RuntimeDependencies = append(meta.RuntimeDependencies, dep)
	}
	return meta
}

func newStubMetadata(pkgs ...types.PackageMetadata) *stubMetadata {
	m := &stubMetadata{packages: map[types.PackageName]types.PackageMetadata{}}
	for _, pkg := range pkgs {
		m.packages[pkg.Name] = pkg
	}
	return m
}

func (m *stubMetadata) Lookup(_ context.Context, names []types.PackageName) (map[types.PackageName]types.PackageMetadata, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := map[types.PackageName]types.PackageMetadata{}
	for _, name := range names {
		if pkg, ok := m.packages[name]; ok {
			out[name] = pkg
		}
	}
	return out, nil
}

func (m *stubMetadata) Search(_ context.Context, term string) ([]types.PackageMetadata, error) {
	var out []types.PackageMetadata
	for _, pkg := range m.packages {
		if strings.Contains(string(pkg.Name), term) {
			out = append(out, pkg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type stubInstalled struct {
	mu       sync.Mutex
	versions map[types.PackageName]string
	foreign  []types.InstalledPackage
}

func newStubInstalled(pairs ...string) *stubInstalled {
	s := &stubInstalled{versions: map[types.PackageName]string{}}
	for i := 0; i+1 < len(pairs); i += 2 {
		s.versions[types.PackageName(pairs[i])] = pairs[i+1]
	}
	return s
}

func (s *stubInstalled) Query(_ context.Context, name types.PackageName) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	version, ok := s.versions[name]
	return version, ok, nil
}

func (s *stubInstalled) ListForeign(context.Context) ([]types.InstalledPackage, error) {
	return s.foreign, nil
}

func (s *stubInstalled) Satisfied(_ context.Context, dep types.Dependency) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	version, ok := s.versions[dep.Name]
	return ok && core.Satisfies(version, dep), nil
}

func (s *stubInstalled) set(name types.PackageName, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[name] = version
}

type stubStager struct {
	workDir string
	staged  []types.PackageName
}

func (s *stubStager) Stage(_ context.Context, meta types.PackageMetadata) (types.StagedRecipe, error) {
	s.staged = append(s.staged, meta.Name)
	dir := filepath.Join(s.workDir, meta.Base())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.StagedRecipe{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, "PKGBUILD"), []byte("pkgname="+string(meta.Name)+"\n"), 0o644); err != nil {
		return types.StagedRecipe{}, err
	}
	return types.StagedRecipe{Dir: dir, Digest: "git:" + meta.Base()}, nil
}

type stubBuilder struct {
	fail  map[types.PackageName]bool
	built []types.PackageName
}

func (b *stubBuilder) Build(_ context.Context, req ports.BuildRequest) ([]string, error) {
	b.built = append(b.built, req.Name)
	if b.fail[req.Name] {
		return nil, errBoom
	}
	return []string{filepath.Join(req.Dir, string(req.Name)+"-1.0-1-any.pkg.tar.zst")}, nil
}

type stubInstaller struct {
	installed *stubInstalled
	requests  []ports.InstallRequest
	removed   [][]types.PackageName
}

func (i *stubInstaller) Preflight() error { return nil }

func (i *stubInstaller) Install(_ context.Context, req ports.InstallRequest) error {
	i.requests = append(i.requests, req)
	for _, artifact := range req.Artifacts {
		name := strings.TrimSuffix(filepath.Base(artifact), "-1.0-1-any.pkg.tar.zst")
		i.installed.set(types.PackageName(name), "1.0-1")
	}
	for _, name := range req.Packages {
		i.installed.set(name, "1.0-1")
	}
	return nil
}

func (i *stubInstaller) Remove(_ context.Context, names []types.PackageName) error {
	i.removed = append(i.removed, names)
	return nil
}

type serviceFixture struct {
	service   Service
	metadata  *stubMetadata
	installed *stubInstalled
	stager    *stubStager
	builder   *stubBuilder
	installer *stubInstaller
}

func newServiceFixture(t *testing.T, metadata *stubMetadata, installed *stubInstalled) serviceFixture {
	t.Helper()
	workDir := t.TempDir()
	fx := serviceFixture{
		metadata:  metadata,
		installed: installed,
		stager:    &stubStager{workDir: workDir},
		builder:   &stubBuilder{fail: map[types.PackageName]bool{}},
		installer: &stubInstaller{installed: installed},
	}
	fx.service = Service{
		Metadata:  metadata,
		Searcher:  metadata,
		Installed: installed,
		Stager:    fx.stager,
		Builder:   fx.builder,
		Installer: fx.installer,
		Metrics:   metrics.NewRecorder(),
		Policy:    policies.NewPackagePolicy(nil),
		Privilege: policies.PrivilegePolicy{AllowElevation: true, Geteuid: func() int { return 1000 }},
		WorkDir:   workDir,
		Clock:     func() time.Time { return time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC) },
	}
	return fx
}

// scenarioMetadata is P -> Q, R; R -> S.
func scenarioMetadata() *stubMetadata {
	return newStubMetadata(
		aurPackage("p", "1.0-1", "q", "r"),
		aurPackage("q", "1.0-1"),
		aurPackage("r", "1.0-1", "s"),
		aurPackage("s", "1.0-1"),
	)
}
