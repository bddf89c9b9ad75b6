package adapters

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/pgzip"
	"github.com/rs/zerolog/log"
	"github.com/ulikunitz/xz"
	"lukechampine.com/blake3"

	"raur/internal/ports"
	"raur/internal/shared"
	"raur/internal/types"
)

const maxSnapshotBytes = 64 << 20

// SnapshotRecipeStager downloads the package base snapshot tarball and
// extracts it into WorkDir/<base>.
type SnapshotRecipeStager struct {
	AURURL  string
	WorkDir string
	Timeout time.Duration
	Client  *http.Client
}

func NewSnapshotRecipeStager(aurURL string, workDir string, timeoutSec int) SnapshotRecipeStager {
	if strings.TrimSpace(aurURL) == "" {
		aurURL = DefaultAURURL
	}
	timeout := time.Duration(timeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultRPCTimeout
	}
	return SnapshotRecipeStager{
		AURURL:  strings.TrimRight(aurURL, "/"),
		WorkDir: workDir,
		Timeout: timeout,
	}
}

func (s SnapshotRecipeStager) Stage(ctx context.Context, meta types.PackageMetadata) (types.StagedRecipe, error) {
	if strings.TrimSpace(s.WorkDir) == "" {
		return types.StagedRecipe{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("work directory is empty")
	}
	snapshot := meta.SnapshotPath
	if snapshot == "" {
		snapshot = fmt.Sprintf("/cgit/aur.git/snapshot/%s.tar.gz", meta.Base())
	}
	url := snapshot
	if !strings.Contains(snapshot, "://") {
		url = s.AURURL + "/" + strings.TrimLeft(snapshot, "/")
	}

	dir, err := prepareStageDir(s.WorkDir, meta.Base())
	if err != nil {
		return types.StagedRecipe{}, err
	}
	archive, err := s.download(ctx, url)
	if err != nil {
		return types.StagedRecipe{}, err
	}
	defer os.Remove(archive)

	digest, err := fileDigest(archive)
	if err != nil {
		return types.StagedRecipe{}, err
	}
	log.Ctx(ctx).Debug().Str("url", url).Str("digest", digest).Msg("snapshot downloaded")

	if err := extractSnapshot(archive, url, dir); err != nil {
		_ = os.RemoveAll(dir)
		return types.StagedRecipe{}, err
	}
	if err := requirePKGBUILD(dir); err != nil {
		return types.StagedRecipe{}, err
	}
	return types.StagedRecipe{Dir: dir, Digest: digest}, nil
}

func (s SnapshotRecipeStager) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to create snapshot request").
			WithCause(err)
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: s.Timeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("snapshot download failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("snapshot not found").
			WithCause(shared.HTTPStatusError(resp.StatusCode, url))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("snapshot download failed").
			WithCause(shared.HTTPStatusError(resp.StatusCode, url))
	}

	tmp, err := os.CreateTemp(s.WorkDir, ".snapshot-*")
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create snapshot file").
			WithCause(err)
	}
	defer tmp.Close()
	n, err := io.Copy(tmp, io.LimitReader(resp.Body, maxSnapshotBytes+1))
	if err == nil && n > maxSnapshotBytes {
		err = fmt.Errorf("snapshot exceeds %d bytes", maxSnapshotBytes)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to save snapshot").
			WithCause(err)
	}
	return tmp.Name(), nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open snapshot").
			WithCause(err)
	}
	defer f.Close()
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to hash snapshot").
			WithCause(err)
	}
	return fmt.Sprintf("blake3:%x", h.Sum(nil)), nil
}

// extractSnapshot unpacks archive into dest, stripping the single top-level
// directory the AUR puts in every snapshot. Entries that would land
// outside dest are rejected.
func extractSnapshot(archive string, name string, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open snapshot").
			WithCause(err)
	}
	defer f.Close()

	var r io.Reader = f
	switch {
	case strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz"):
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return snapshotFormatError(err)
		}
		defer gz.Close()
		r = gz
	case strings.HasSuffix(name, ".tar.xz"):
		xzr, err := xz.NewReader(f)
		if err != nil {
			return snapshotFormatError(err)
		}
		r = xzr
	case strings.HasSuffix(name, ".tar"):
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported snapshot format: %s", name))
	}

	if err := os.MkdirAll(dest, 0o750); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create recipe directory").
			WithCause(err)
	}
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return snapshotFormatError(err)
		}
		if hdr.Typeflag == tar.TypeXHeader || hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}
		rel := stripTopLevel(hdr.Name)
		if rel == "" {
			continue
		}
		target := filepath.Join(dest, rel)
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("snapshot entry escapes recipe directory: %s", hdr.Name))
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return extractError(target, err)
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o750); err != nil {
				return extractError(target, err)
			}
		case tar.TypeReg:
			mode := os.FileMode(hdr.Mode).Perm() & 0o755
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode|0o600)
			if err != nil {
				return extractError(target, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return extractError(target, err)
			}
			if err := out.Close(); err != nil {
				return extractError(target, err)
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) || strings.HasPrefix(filepath.Clean(filepath.Join(filepath.Dir(rel), hdr.Linkname)), "..") {
				return errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("snapshot symlink escapes recipe directory: %s", hdr.Name))
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil && !os.IsExist(err) {
				return extractError(target, err)
			}
		default:
			log.Debug().Str("entry", hdr.Name).Msg("skipping unsupported snapshot entry")
		}
	}
}

func stripTopLevel(name string) string {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	idx := strings.Index(name, "/")
	if idx < 0 {
		return ""
	}
	return strings.TrimSuffix(name[idx+1:], "/")
}

func snapshotFormatError(err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("failed to read snapshot archive").
		WithCause(err)
}

func extractError(path string, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("failed to extract %s", path)).
		WithCause(err)
}

var _ ports.RecipeStagerPort = SnapshotRecipeStager{}
