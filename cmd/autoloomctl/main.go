// Command autoloomctl is an interactive console over one engine/controller
// pair: connect a device, load a demo pipeline, submit tasks, and watch
// lifecycle events stream by.
//
// Grounded on the teacher's cmd/agsh/main.go: load .env, redirect debug logs
// to a cache-dir file so they don't fight the terminal UI, then either run
// one-shot from os.Args or drop into a readline REPL.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/autoloom/autoloom/internal/controllerkit"
	"github.com/autoloom/autoloom/internal/enginekit"
	"github.com/autoloom/autoloom/internal/pipelinekit"
	"github.com/autoloom/autoloom/internal/resourcekit"
	"github.com/autoloom/autoloom/internal/transportkit"
	"github.com/autoloom/autoloom/internal/visionkit"
)

func main() {
	_ = godotenv.Load(".env")

	homeDir, _ := os.UserHomeDir()
	cacheDir := filepath.Join(homeDir, ".cache", "autoloomctl")
	_ = os.MkdirAll(cacheDir, 0755)

	// Debug logs go to a file, not the terminal, so they don't interleave
	// with the REPL's own output. Tail ~/.cache/autoloomctl/debug.log to
	// see controller/engine-internal [CTRL]/[REC]/[ACT]/[ENGINE] activity.
	if f, err := os.OpenFile(filepath.Join(cacheDir, "debug.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
		log.SetOutput(f)
		defer f.Close()
	}

	transport := buildTransport()
	controller := controllerkit.New(transport, uuid.New().String())
	controller.LazyConnect(true)

	registry := visionkit.NewRegistry()
	manager := pipelinekit.NewManager()
	loader := resourcekit.New(manager)
	engine := enginekit.New(manager, registry, controller)

	defer func() {
		engine.Stop()
		controller.Stop()
		loader.Stop()
	}()

	if len(os.Args) > 1 && strings.TrimSpace(os.Args[1]) != "" {
		runOneShot(engine, loader, strings.Join(os.Args[1:], " "))
		return
	}
	runREPL(engine, controller, loader, cacheDir)
}

// buildTransport picks an AdbTransport bound to AUTOLOOM_ADB_SERIAL, or adb's
// sole/default device if unset. A CustomTransport (spec.md §6) is also
// available to any embedder that wires controllerkit.New directly instead
// of going through this console.
func buildTransport() transportkit.Transport {
	if serial := os.Getenv("AUTOLOOM_ADB_SERIAL"); serial != "" {
		return transportkit.NewAdbTransport(serial)
	}
	return transportkit.NewAdbTransport("")
}

func runOneShot(engine *enginekit.Engine, loader *resourcekit.Loader, entry string) {
	loader.Jobs().Wait(loader.Load(demoGraph()))
	engine.OnEvent(printEvent)
	taskID, err := engine.Submit(entry, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	status := engine.Wait(taskID)
	fmt.Printf("task %d: %s\n", taskID, status)
}
