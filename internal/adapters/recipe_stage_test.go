package adapters

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	gitPlumbing "github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"lukechampine.com/blake3"

	"raur/internal/types"
)

const samplePKGBUILD = "pkgname=hello\npkgver=1.0\npkgrel=1\narch=(any)\n"

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// initRecipeRepo creates a local repository with one commit and returns
// its path. When branch is set the commit is also reachable from it.
func initRecipeRepo(t *testing.T, files map[string]string, branch string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
		_, err := wt.Add(name)
		require.NoError(t, err)
	}
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "raur", Email: "raur@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	if branch != "" {
		ref := gitPlumbing.NewHashReference(gitPlumbing.NewBranchReferenceName(branch), hash)
		require.NoError(t, repo.Storer.SetReference(ref))
	}
	return dir
}

func TestGitRecipeStagerClonesPackageBase(t *testing.T) {
	requireGit(t)
	source := initRecipeRepo(t, map[string]string{"PKGBUILD": samplePKGBUILD, ".SRCINFO": "pkgbase = hello\n"}, "")
	stager := NewGitRecipeStager(t.TempDir(), "", false)
	stager.Depth = 0

	staged, err := stager.Stage(context.Background(), types.PackageMetadata{Name: "hello", RecipeSource: source})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(stager.WorkDir, "hello"), staged.Dir)
	content, err := os.ReadFile(filepath.Join(staged.Dir, "PKGBUILD"))
	require.NoError(t, err)
	assert.Equal(t, samplePKGBUILD, string(content))

	sourceRepo, err := git.PlainOpen(source)
	require.NoError(t, err)
	head, err := sourceRepo.Head()
	require.NoError(t, err)
	assert.Equal(t, "git:"+head.Hash().String(), staged.Digest)

	// A second stage replaces the previous tree.
	require.NoError(t, os.WriteFile(filepath.Join(staged.Dir, "stale"), []byte("x"), 0o644))
	staged, err = stager.Stage(context.Background(), types.PackageMetadata{Name: "hello", RecipeSource: source})
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(staged.Dir, "stale"))
}

func TestGitRecipeStagerUsesMirrorBranch(t *testing.T) {
	requireGit(t)
	mirror := initRecipeRepo(t, map[string]string{"PKGBUILD": samplePKGBUILD}, "hello-base")
	stager := NewGitRecipeStager(t.TempDir(), mirror, true)
	stager.Depth = 0

	staged, err := stager.Stage(context.Background(), types.PackageMetadata{Name: "hello", PackageBase: "hello-base"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(stager.WorkDir, "hello-base"), staged.Dir)
	assert.FileExists(t, filepath.Join(staged.Dir, "PKGBUILD"))
	assert.Regexp(t, `^git:[0-9a-f]{40}$`, staged.Digest)
}

func TestGitRecipeStagerRequiresPKGBUILD(t *testing.T) {
	requireGit(t)
	source := initRecipeRepo(t, map[string]string{"README": "nothing here"}, "")
	stager := NewGitRecipeStager(t.TempDir(), "", false)
	stager.Depth = 0

	_, err := stager.Stage(context.Background(), types.PackageMetadata{Name: "hello", RecipeSource: source})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no PKGBUILD")
}

func TestGitRecipeStagerRejectsBadInput(t *testing.T) {
	_, err := GitRecipeStager{}.Stage(context.Background(), types.PackageMetadata{Name: "hello"})
	require.Error(t, err)

	stager := NewGitRecipeStager(t.TempDir(), "", false)
	_, err = stager.Stage(context.Background(), types.PackageMetadata{Name: "hello"})
	require.Error(t, err)

	_, err = stager.Stage(context.Background(), types.PackageMetadata{Name: "hello", PackageBase: "../escape", RecipeSource: "x"})
	require.Error(t, err)
}

type tarEntry struct {
	name     string
	body     string
	typeflag byte
	linkname string
}

func buildTar(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, entry := range entries {
		typeflag := entry.typeflag
		if typeflag == 0 {
			typeflag = tar.TypeReg
		}
		hdr := &tar.Header{Name: entry.name, Typeflag: typeflag, Mode: 0o644, Size: int64(len(entry.body)), Linkname: entry.linkname}
		if typeflag != tar.TypeReg {
			hdr.Size = 0
			hdr.Mode = 0o755
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if typeflag == tar.TypeReg {
			_, err := io.WriteString(tw, entry.body)
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := pgzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func xzBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func snapshotServer(t *testing.T, files map[string][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(body)
	}))
}

func TestSnapshotRecipeStagerExtractsTarball(t *testing.T) {
	archive := buildTar(t, []tarEntry{
		{name: "hello/", typeflag: tar.TypeDir},
		{name: "hello/PKGBUILD", body: samplePKGBUILD},
		{name: "hello/patches/fix.patch", body: "--- a\n+++ b\n"},
		{name: "hello/link", typeflag: tar.TypeSymlink, linkname: "PKGBUILD"},
	})
	gz := gzipBytes(t, archive)
	xzArchive := xzBytes(t, archive)
	server := snapshotServer(t, map[string][]byte{
		"/cgit/aur.git/snapshot/hello.tar.gz": gz,
		"/snapshots/hello.tar.xz":             xzArchive,
	})
	defer server.Close()

	stager := NewSnapshotRecipeStager(server.URL, t.TempDir(), 5)
	staged, err := stager.Stage(context.Background(), types.PackageMetadata{Name: "hello"})
	require.NoError(t, err)
	gzSum := blake3.Sum256(gz)
	assert.Equal(t, fmt.Sprintf("blake3:%x", gzSum), staged.Digest)
	dir := staged.Dir
	content, err := os.ReadFile(filepath.Join(dir, "PKGBUILD"))
	require.NoError(t, err)
	assert.Equal(t, samplePKGBUILD, string(content))
	assert.FileExists(t, filepath.Join(dir, "patches", "fix.patch"))
	target, err := os.Readlink(filepath.Join(dir, "link"))
	require.NoError(t, err)
	assert.Equal(t, "PKGBUILD", target)

	staged, err = stager.Stage(context.Background(), types.PackageMetadata{Name: "hello", SnapshotPath: "/snapshots/hello.tar.xz"})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(staged.Dir, "PKGBUILD"))
	xzSum := blake3.Sum256(xzArchive)
	assert.Equal(t, fmt.Sprintf("blake3:%x", xzSum), staged.Digest)

	leftovers, err := filepath.Glob(filepath.Join(stager.WorkDir, ".snapshot-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestSnapshotRecipeStagerRejectsTraversal(t *testing.T) {
	tests := map[string][]tarEntry{
		"dotdot": {
			{name: "hello/PKGBUILD", body: samplePKGBUILD},
			{name: "hello/../../evil", body: "x"},
		},
		"absolute symlink": {
			{name: "hello/PKGBUILD", body: samplePKGBUILD},
			{name: "hello/passwd", typeflag: tar.TypeSymlink, linkname: "/etc/passwd"},
		},
		"relative symlink": {
			{name: "hello/PKGBUILD", body: samplePKGBUILD},
			{name: "hello/up", typeflag: tar.TypeSymlink, linkname: "../../up"},
		},
	}
	for name, entries := range tests {
		t.Run(name, func(t *testing.T) {
			server := snapshotServer(t, map[string][]byte{
				"/cgit/aur.git/snapshot/hello.tar.gz": gzipBytes(t, buildTar(t, entries)),
			})
			defer server.Close()

			stager := NewSnapshotRecipeStager(server.URL, t.TempDir(), 5)
			_, err := stager.Stage(context.Background(), types.PackageMetadata{Name: "hello"})
			require.Error(t, err)
			assert.NoDirExists(t, filepath.Join(stager.WorkDir, "hello"))
		})
	}
}

func TestSnapshotRecipeStagerNotFound(t *testing.T) {
	server := snapshotServer(t, map[string][]byte{})
	defer server.Close()

	stager := NewSnapshotRecipeStager(server.URL, t.TempDir(), 5)
	_, err := stager.Stage(context.Background(), types.PackageMetadata{Name: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot not found")
}

func TestFileDigestIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(path, []byte("raur"), 0o644))
	first, err := fileDigest(path)
	require.NoError(t, err)
	second, err := fileDigest(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, len("blake3:")+64)
}

func TestStripTopLevel(t *testing.T) {
	assert.Equal(t, "PKGBUILD", stripTopLevel("hello/PKGBUILD"))
	assert.Equal(t, "a/b", stripTopLevel("./hello/a/b/"))
	assert.Equal(t, "", stripTopLevel("hello/"))
	assert.Equal(t, "", stripTopLevel("pax_global_header"))
}
