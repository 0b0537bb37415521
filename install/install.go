// Package install installs OS-level and interpreter-level packages into
// a workspace, one at a time, continuing past individual failures.
package install

import (
	"context"
	"strings"
	"time"

	"github.com/erayyap/scriptbench/log"
	execpkg "github.com/erayyap/scriptbench/runtime/exec"
	"github.com/erayyap/scriptbench/types"
)

// dpkgQueryTimeout bounds the pre-install presence check.
const dpkgQueryTimeout = 10 * time.Second

// aptUpdateTimeout bounds the best-effort `apt-get update` run before
// the install loop; its failure is swallowed and installation continues.
const aptUpdateTimeout = 5 * time.Minute

// Installer runs the OS-level and interpreter-level install operations
// against a workspace.
type Installer struct {
	PerPackageTimeout time.Duration
	Logger            *log.Logger
	Cache             Cache
}

// Cache is an optional package-install result cache. A nil Cache
// disables caching entirely; install always proceeds as if every
// package were a cache miss.
type Cache interface {
	// Known reports whether image+name is already known to install
	// cleanly. ok=false means "unknown, attempt the install".
	Known(ctx context.Context, image, name string) (known, ok bool)
	// Record stores the outcome of attempting to install image+name.
	Record(ctx context.Context, image, name string, succeeded bool)
}

func New(perPackageTimeout time.Duration, logger *log.Logger, cache Cache) *Installer {
	if perPackageTimeout <= 0 {
		perPackageTimeout = 5 * time.Minute
	}
	return &Installer{PerPackageTimeout: perPackageTimeout, Logger: logger, Cache: cache}
}

// InstallOSPackages installs OS-level packages via apt, pre-checking
// presence via dpkg-query, skipping already-installed packages, and
// continuing past individual failures.
func (in *Installer) InstallOSPackages(ctx context.Context, taskID string, packages []string) types.InstallSummary {
	summary := types.InstallSummary{Requested: packages}
	if len(packages) == 0 {
		return summary
	}
	logger := in.Logger.ForTask(taskID)

	missing := in.missingAptPackages(ctx, taskID, packages, logger)
	if len(missing) == 0 {
		logger.Info("all apt packages already installed", nil)
		return summary
	}

	in.updateAptPackageList(ctx, taskID, logger)

	for _, pkg := range missing {
		ok := in.installSingle(ctx, taskID, []string{"bash", "-c", "apt-get install -y " + pkg}, logger, "apt", pkg)
		if ok {
			summary.Installed = append(summary.Installed, pkg)
		} else {
			summary.Failed = append(summary.Failed, pkg)
		}
	}
	return summary
}

// InstallInterpreterPackages installs packages into the workspace's venv
// via pip, one at a time, continuing past failures.
func (in *Installer) InstallInterpreterPackages(ctx context.Context, taskID string, ws *types.Workspace, packages []string) types.InstallSummary {
	summary := types.InstallSummary{Requested: packages}
	if len(packages) == 0 {
		return summary
	}
	logger := in.Logger.ForTask(taskID)
	pipPath := ws.VenvPath + "/bin/pip"

	for _, pkg := range packages {
		ok := in.installSingle(ctx, taskID, []string{pipPath, "install", pkg}, logger, "pip", pkg)
		if ok {
			summary.Installed = append(summary.Installed, pkg)
		} else {
			summary.Failed = append(summary.Failed, pkg)
		}
	}
	return summary
}

func (in *Installer) installSingle(ctx context.Context, taskID string, argv []string, logger *log.Logger, kind, pkg string) bool {
	image := "default"
	if in.Cache != nil && kind == "apt" {
		if known, ok := in.Cache.Known(ctx, image, pkg); ok {
			logger.Info("package install cache hit", map[string]any{"package": pkg, "known_good": known})
			return known
		}
	}

	res := execpkg.Run(ctx, argv, "", nil, in.PerPackageTimeout, logger, kind+"("+pkg+")")
	ok := res.ExitCode == 0 && res.Error == ""
	if ok {
		logger.Info("package installed", map[string]any{"kind": kind, "package": pkg})
	} else {
		logger.Warn("package install failed, continuing with next package", map[string]any{
			"kind": kind, "package": pkg, "exit_code": res.ExitCode, "timed_out": res.TimedOut, "error": res.Error,
		})
	}

	if in.Cache != nil && kind == "apt" {
		in.Cache.Record(ctx, image, pkg, ok)
	}
	return ok
}

// missingAptPackages pre-checks each package via dpkg-query, so an
// install run is idempotent at the package level.
func (in *Installer) missingAptPackages(ctx context.Context, taskID string, packages []string, logger *log.Logger) []string {
	var missing []string
	for _, pkg := range packages {
		res := execpkg.Run(ctx, []string{"dpkg-query", "-W", "-f=${Status}", pkg}, "", nil, dpkgQueryTimeout, logger, "dpkg-query")
		if res.ExitCode != 0 || !strings.Contains(res.Stdout, "install ok installed") {
			missing = append(missing, pkg)
		} else {
			logger.Info("package already installed", map[string]any{"package": pkg})
		}
	}
	return missing
}

func (in *Installer) updateAptPackageList(ctx context.Context, taskID string, logger *log.Logger) {
	res := execpkg.Run(ctx, []string{"bash", "-c", "apt-get update"}, "", nil, aptUpdateTimeout, logger, "apt-update")
	if res.ExitCode != 0 {
		logger.Warn("apt-get update failed, continuing with installations anyway", map[string]any{"error": res.Error})
	}
}
