package adapters

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"raur/internal/ports"
	"raur/internal/types"
)

const defaultElevateCommand = "sudo"

// PacmanInstallAdapter applies changes to the local package database.
// command is the only place in the program that requests elevation.
type PacmanInstallAdapter struct {
	Binary         string
	ElevateCommand string
	AllowElevation bool
	NoConfirm      bool
	Stdin          io.Reader
	Output         io.Writer
	Geteuid        func() int
	LookPath       func(string) (string, error)
}

func NewPacmanInstallAdapter(binary string, elevateCommand string, allowElevation bool, noConfirm bool) PacmanInstallAdapter {
	if strings.TrimSpace(binary) == "" {
		binary = defaultPacmanBinary
	}
	if strings.TrimSpace(elevateCommand) == "" {
		elevateCommand = defaultElevateCommand
	}
	return PacmanInstallAdapter{
		Binary:         binary,
		ElevateCommand: elevateCommand,
		AllowElevation: allowElevation,
		NoConfirm:      noConfirm,
		Stdin:          os.Stdin,
		Output:         os.Stderr,
		Geteuid:        unix.Geteuid,
		LookPath:       exec.LookPath,
	}
}

// Preflight reports, before any build starts, whether installs will be
// possible with the configured elevation policy.
func (a PacmanInstallAdapter) Preflight() error {
	if a.euid() == 0 {
		return nil
	}
	if !a.AllowElevation {
		return errbuilder.New().
			WithCode(errbuilder.CodePermissionDenied).
			WithMsg("installing packages requires elevation but allow_elevation is false")
	}
	tool := a.elevateTool()
	if tool == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("elevate_command is empty")
	}
	lookPath := a.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath(tool); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("elevation tool %q not found", tool)).
			WithCause(err)
	}
	return nil
}

// Install installs built artifacts with -U or sync targets with -S.
func (a PacmanInstallAdapter) Install(ctx context.Context, req ports.InstallRequest) error {
	var args []string
	switch {
	case len(req.Artifacts) > 0 && len(req.Packages) == 0:
		args = append(args, "-U")
	case len(req.Packages) > 0 && len(req.Artifacts) == 0:
		args = append(args, "-S", "--needed")
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("install request needs either artifacts or packages")
	}
	if req.AsDeps {
		args = append(args, "--asdeps")
	} else {
		args = append(args, "--asexplicit")
	}
	if a.NoConfirm {
		args = append(args, "--noconfirm")
	}
	args = append(args, "--")
	args = append(args, req.Artifacts...)
	for _, name := range req.Packages {
		args = append(args, string(name))
	}
	return a.run(ctx, "install", args)
}

// Remove uninstalls packages together with dependencies nothing else
// needs.
func (a PacmanInstallAdapter) Remove(ctx context.Context, names []types.PackageName) error {
	if len(names) == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("no packages to remove")
	}
	args := []string{"-Rns"}
	if a.NoConfirm {
		args = append(args, "--noconfirm")
	}
	args = append(args, "--")
	for _, name := range names {
		args = append(args, string(name))
	}
	return a.run(ctx, "remove", args)
}

func (a PacmanInstallAdapter) run(ctx context.Context, action string, args []string) error {
	if err := a.Preflight(); err != nil {
		return err
	}
	cmd := a.command(args)
	log.Ctx(ctx).Debug().Strs("argv", cmd.Args).Msg("running installer")
	if err := cmd.Run(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("pacman %s failed", action)).
			WithCause(err)
	}
	return nil
}

// command builds the installer invocation, prefixed with the elevation
// tool unless already running as root. It is not bound to a context so an
// install that has started is never interrupted.
func (a PacmanInstallAdapter) command(args []string) *exec.Cmd {
	binary := a.Binary
	if binary == "" {
		binary = defaultPacmanBinary
	}
	var cmd *exec.Cmd
	if a.euid() == 0 {
		cmd = exec.Command(binary, args...)
	} else {
		cmd = exec.Command(a.elevateTool(), append([]string{binary}, args...)...)
	}
	cmd.Stdin = a.Stdin
	cmd.Stdout = a.Output
	cmd.Stderr = a.Output
	return cmd
}

func (a PacmanInstallAdapter) elevateTool() string {
	return strings.TrimSpace(a.ElevateCommand)
}

func (a PacmanInstallAdapter) euid() int {
	if a.Geteuid == nil {
		return unix.Geteuid()
	}
	return a.Geteuid()
}

var _ ports.InstallStepPort = PacmanInstallAdapter{}
