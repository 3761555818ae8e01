package main

import (
	"log"
	"os"
	"syscall"

	corecmd "github.com/m3rciful/walletbot/core/cmd"
	"github.com/m3rciful/walletbot/internal/app"
)

func main() {
	process := app.NewProcess()
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "WALLETBOT_CONFIG",
		DefaultConfigPath: "configs/config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap(process),
	})
	if err != nil {
		log.Fatalf("walletbot: %v", err)
	}
	if process.RestartRequested() {
		reexec()
	}
}

// reexec replaces the process image with a fresh copy of the binary. The new process sends
// the pending restart notice once it is up.
func reexec() {
	exe, err := os.Executable()
	if err != nil {
		log.Fatalf("walletbot: restart: %v", err)
	}
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		log.Fatalf("walletbot: restart: %v", err)
	}
}
