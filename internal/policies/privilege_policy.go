package policies

import (
	"github.com/ZanzyTHEbar/errbuilder-go"
	"golang.org/x/sys/unix"
)

// PrivilegePolicy is checked before resolution starts. Builds must run as
// an unprivileged user; elevation happens only inside the install step.
type PrivilegePolicy struct {
	AllowElevation bool
	Geteuid        func() int
}

func NewPrivilegePolicy(allowElevation bool) PrivilegePolicy {
	return PrivilegePolicy{AllowElevation: allowElevation, Geteuid: unix.Geteuid}
}

func (p PrivilegePolicy) Check(needsInstall bool) error {
	geteuid := p.Geteuid
	if geteuid == nil {
		geteuid = unix.Geteuid
	}
	if geteuid() == 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodePermissionDenied).
			WithMsg("refusing to run as root; packages are built as the invoking user")
	}
	if needsInstall && !p.AllowElevation {
		return errbuilder.New().
			WithCode(errbuilder.CodePermissionDenied).
			WithMsg("installing packages requires elevation but allow_elevation is false")
	}
	return nil
}
