// Command door-server installs a trivial door at a path and serves until
// interrupted. It exists for poking at doors from the shell together with
// door-call and door-info.
package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/illumos-ipc/go-doors/doors"
)

var (
	path  = pflag.StringP("path", "p", "/var/run/echo.door", "filesystem path to install the door at")
	upper = pflag.BoolP("upper", "u", false, "serve an upper-casing procedure instead of echo")
	force = pflag.BoolP("force", "f", true, "replace a pre-existing entry at the path")
)

func main() {
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(logger); err != nil {
		logger.Error("door-server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	proc := echo
	name := "echo"
	if *upper {
		proc = upperCase
		name = "upper"
	}

	door, err := doors.Create(loggedProc(logger, name, proc))
	if err != nil {
		return err
	}
	defer door.Close()

	install := door.Install
	if *force {
		install = door.ForceInstall
	}
	if err := install(*path); err != nil {
		return err
	}
	logger.Info("door installed", "path", *path, "procedure", name, "pid", os.Getpid())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	sig := <-stop
	logger.Info("shutting down", "signal", fmt.Sprint(sig))

	if err := door.Uninstall(); err != nil {
		logger.Warn("uninstall failed", "path", *path, "error", err)
	}
	return door.Revoke()
}

func echo(req doors.Request) doors.Response {
	return doors.NewResponse(bytes.Clone(req.Data))
}

func upperCase(req doors.Request) doors.Response {
	return doors.NewResponse(bytes.ToUpper(req.Data))
}

func loggedProc(logger *slog.Logger, name string, proc doors.Procedure) doors.Procedure {
	return func(req doors.Request) doors.Response {
		logger.Debug("door invocation", "procedure", name, "bytes", len(req.Data), "descriptors", len(req.Descriptors))
		return proc(req)
	}
}
