package adapters

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"raur/internal/ports"
	"raur/internal/shared"
)

const defaultMakepkgBinary = "makepkg"

// MakepkgAdapter runs the unprivileged build step. It refuses to run as
// root and never prefixes an elevation tool.
type MakepkgAdapter struct {
	Binary string
	// Output receives the build log unchanged.
	Output  io.Writer
	Geteuid func() int
}

func NewMakepkgAdapter(binary string, output io.Writer) MakepkgAdapter {
	if strings.TrimSpace(binary) == "" {
		binary = defaultMakepkgBinary
	}
	if output == nil {
		output = os.Stderr
	}
	return MakepkgAdapter{
		Binary:  binary,
		Output:  output,
		Geteuid: unix.Geteuid,
	}
}

// Build runs makepkg in req.Dir and returns the package files it produced,
// without debug split packages.
func (a MakepkgAdapter) Build(ctx context.Context, req ports.BuildRequest) ([]string, error) {
	if strings.TrimSpace(req.Dir) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("build directory is empty")
	}
	if a.euid() == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodePermissionDenied).
			WithMsg("refusing to run the build step as root")
	}

	log.Ctx(ctx).Debug().Str("package", string(req.Name)).Str("dir", req.Dir).Msg("running makepkg")
	// Not bound to ctx: a started build runs to completion.
	cmd := exec.Command(a.binary(), "--force", "--cleanbuild", "--noconfirm")
	cmd.Dir = req.Dir
	cmd.Stdout = a.output()
	cmd.Stderr = a.output()
	if err := cmd.Run(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("makepkg failed for %s", req.Name)).
			WithCause(err)
	}

	list := exec.Command(a.binary(), "--packagelist")
	list.Dir = req.Dir
	output, err := list.Output()
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("makepkg --packagelist failed for %s", req.Name)).
			WithCause(shared.CommandError(output, err))
	}
	return packageArtifacts(output, req.Dir), nil
}

// packageArtifacts keeps the listed package files that exist, dropping
// debug split packages.
func packageArtifacts(output []byte, dir string) []string {
	var out []string
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		path := strings.TrimSpace(scanner.Text())
		if path == "" {
			continue
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if isDebugArtifact(filepath.Base(path)) {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		out = append(out, path)
	}
	return out
}

func isDebugArtifact(file string) bool {
	name, ok := shared.ArtifactPackageName(file)
	return ok && shared.IsDebugPackage(name)
}

func (a MakepkgAdapter) binary() string {
	if a.Binary == "" {
		return defaultMakepkgBinary
	}
	return a.Binary
}

func (a MakepkgAdapter) output() io.Writer {
	if a.Output == nil {
		return io.Discard
	}
	return a.Output
}

func (a MakepkgAdapter) euid() int {
	if a.Geteuid == nil {
		return unix.Geteuid()
	}
	return a.Geteuid()
}

var _ ports.BuildStepPort = MakepkgAdapter{}
