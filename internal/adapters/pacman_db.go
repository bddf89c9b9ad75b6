package adapters

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"raur/internal/ports"
	"raur/internal/shared"
	"raur/internal/types"
)

const defaultPacmanBinary = "pacman"

// PacmanDBAdapter answers read-only queries against the local and sync
// package databases. It never requests elevation.
type PacmanDBAdapter struct {
	Binary string
}

func NewPacmanDBAdapter(binary string) PacmanDBAdapter {
	if strings.TrimSpace(binary) == "" {
		binary = defaultPacmanBinary
	}
	return PacmanDBAdapter{Binary: binary}
}

// Query reports the installed version of name. A name that is not a
// package itself but is provided by an installed one (e.g. "sh") is
// reported as installed with an empty version.
func (a PacmanDBAdapter) Query(ctx context.Context, name types.PackageName) (string, bool, error) {
	output, err := a.run(ctx, "-Q", "--", string(name))
	if err == nil {
		pkgs, parseErr := parseNameVersionLines(output)
		if parseErr != nil {
			return "", false, parseErr
		}
		for _, pkg := range pkgs {
			if pkg.Name == name {
				return pkg.Version, true, nil
			}
		}
		return "", false, nil
	}
	if !isExitCode(err, 1) {
		return "", false, pacmanError("query local database", output, err)
	}
	// -T prints nothing and exits 0 when the dependency is satisfied.
	output, err = a.run(ctx, "-T", "--", string(name))
	switch {
	case err == nil:
		return "", true, nil
	case isExitCode(err, 127):
		return "", false, nil
	default:
		return "", false, pacmanError("test dependency", output, err)
	}
}

// ListForeign lists installed packages that no sync repository provides.
func (a PacmanDBAdapter) ListForeign(ctx context.Context) ([]types.InstalledPackage, error) {
	output, err := a.run(ctx, "-Qm")
	if err != nil {
		// pacman exits 1 without output when nothing matches.
		if isExitCode(err, 1) && strings.TrimSpace(string(output)) == "" {
			return []types.InstalledPackage{}, nil
		}
		return nil, pacmanError("list foreign packages", output, err)
	}
	return parseNameVersionLines(output)
}

// Satisfied asks pacman -T whether dep, including its version
// constraint, is met by an installed package or by one of its provides.
func (a PacmanDBAdapter) Satisfied(ctx context.Context, dep types.Dependency) (bool, error) {
	output, err := a.run(ctx, "-T", "--", dep.String())
	switch {
	case err == nil:
		return true, nil
	case isExitCode(err, 127):
		return false, nil
	default:
		return false, pacmanError("test dependency", output, err)
	}
}

// Provider resolves dep against the sync repositories, following
// versioned provides, without resolving the provider's own dependencies.
func (a PacmanDBAdapter) Provider(ctx context.Context, dep types.Dependency) (types.InstalledPackage, bool, error) {
	output, err := a.run(ctx, "-Sddp", "--print-format", "%n %v", "--", dep.String())
	if err != nil {
		if isExitCode(err, 1) {
			return types.InstalledPackage{}, false, nil
		}
		return types.InstalledPackage{}, false, pacmanError("query sync database", output, err)
	}
	pkgs, err := parseNameVersionLines(output)
	if err != nil {
		return types.InstalledPackage{}, false, err
	}
	if len(pkgs) == 0 {
		return types.InstalledPackage{}, false, nil
	}
	return pkgs[0], true, nil
}

func (a PacmanDBAdapter) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, a.binary(), args...)
	cmd.Env = append(cmd.Environ(), "LC_ALL=C")
	return cmd.Output()
}

func (a PacmanDBAdapter) binary() string {
	if a.Binary == "" {
		return defaultPacmanBinary
	}
	return a.Binary
}

// parseNameVersionLines parses "name version" lines as printed by
// pacman -Q and --print-format "%n %v".
func parseNameVersionLines(output []byte) ([]types.InstalledPackage, error) {
	var out []types.InstalledPackage
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "::") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("unexpected pacman output line: %q", line))
		}
		name, err := shared.ValidatePackageName(fields[0])
		if err != nil {
			return nil, err
		}
		out = append(out, types.InstalledPackage{Name: name, Version: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read pacman output").
			WithCause(err)
	}
	return out, nil
}

func isExitCode(err error, code int) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == code
}

func pacmanError(action string, output []byte, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(output) == 0 {
		output = exitErr.Stderr
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("pacman failed to %s", action)).
		WithCause(shared.CommandError(output, err))
}

var (
	_ ports.InstalledPort = PacmanDBAdapter{}
	_ ports.RepoPort      = PacmanDBAdapter{}
)
