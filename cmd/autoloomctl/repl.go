package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-runewidth"

	"github.com/autoloom/autoloom/internal/controllerkit"
	"github.com/autoloom/autoloom/internal/enginekit"
	"github.com/autoloom/autoloom/internal/resourcekit"
)

// runREPL is the console's interactive loop, grounded on the teacher's
// cmd/agsh/main.go runREPL: readline for line editing/history, one line of
// help on entry, a handful of '/'-prefixed commands alongside plain task
// submission.
func runREPL(engine *enginekit.Engine, controller *controllerkit.Controller, loader *resourcekit.Loader, cacheDir string) {
	fmt.Println("\033[1m\033[36m⚡ autoloomctl\033[0m — device automation console  " +
		"\033[2m(type 'help'; exit/Ctrl-D to quit)\033[0m")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "\033[36m>\033[0m ",
		HistoryFile:       filepath.Join(cacheDir, "history"),
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init error: %v\n", err)
		return
	}
	defer rl.Close()

	verbose := false
	engine.OnEvent(func(ev enginekit.Event) {
		if verbose {
			printEvent(ev)
		}
	})

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			return
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		fields := strings.Fields(input)
		switch fields[0] {
		case "exit", "quit":
			return
		case "help":
			printHelp()
		case "connect":
			id := controller.Connect()
			status := controller.Jobs().Wait(id)
			fmt.Printf("connect: %s\n", status)
		case "load":
			jobID := loader.Load(demoGraph())
			status := loader.Jobs().Wait(jobID)
			fmt.Printf("load: %s (job %d)\n", status, jobID)
		case "submit":
			if len(fields) < 2 {
				fmt.Println("usage: submit <entry-node>")
				continue
			}
			taskID, err := engine.Submit(fields[1], nil)
			if err != nil {
				fmt.Printf("submit error: %v\n", err)
				continue
			}
			fmt.Printf("submitted task %d\n", taskID)
		case "status":
			id, ok := parseID(fields)
			if !ok {
				continue
			}
			fmt.Println(engine.Status(id))
		case "wait":
			id, ok := parseID(fields)
			if !ok {
				continue
			}
			fmt.Println(engine.Wait(id))
		case "jobs":
			printJobTable(engine)
		case "verbose":
			verbose = !verbose
			fmt.Printf("event logging: %v\n", verbose)
		case "stop":
			engine.Stop()
			fmt.Println("engine stopped; outstanding tasks failed with Interrupted")
		default:
			fmt.Printf("unknown command %q (type 'help')\n", fields[0])
		}
	}
}

func parseID(fields []string) (uint64, bool) {
	if len(fields) < 2 {
		fmt.Println("usage: " + fields[0] + " <task-id>")
		return 0, false
	}
	id, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		fmt.Printf("bad task id %q: %v\n", fields[1], err)
		return 0, false
	}
	return id, true
}

func printHelp() {
	lines := [][2]string{
		{"connect", "connect the bound controller's transport"},
		{"load", "publish the built-in demo pipeline (A -> B)"},
		{"submit <node>", "start a task run at the given entry node"},
		{"status <id>", "print a task id's current status"},
		{"wait <id>", "block until a task id reaches a terminal status"},
		{"jobs", "list every tracked job and its status"},
		{"verbose", "toggle printing lifecycle events as they fire"},
		{"stop", "stop the engine, failing outstanding tasks"},
		{"exit", "quit the console"},
	}
	width := 0
	for _, l := range lines {
		if w := runewidth.StringWidth(l[0]); w > width {
			width = w
		}
	}
	for _, l := range lines {
		pad := strings.Repeat(" ", width-runewidth.StringWidth(l[0])+2)
		fmt.Printf("  %s%s%s\n", l[0], pad, l[1])
	}
}

func printJobTable(engine *enginekit.Engine) {
	jobs := engine.Jobs().Snapshot()
	if len(jobs) == 0 {
		fmt.Println("no task jobs yet (try 'submit <node>')")
		return
	}
	kindWidth := 0
	for _, j := range jobs {
		if w := runewidth.StringWidth(string(j.Kind)); w > kindWidth {
			kindWidth = w
		}
	}
	for _, j := range jobs {
		pad := strings.Repeat(" ", kindWidth-runewidth.StringWidth(string(j.Kind))+1)
		fmt.Printf("  %6d  %s%s%s\n", j.ID, j.Kind, pad, j.Status)
	}
}

func printEvent(ev enginekit.Event) {
	fmt.Printf("\033[2m[event]\033[0m task=%d %s node=%q\n", ev.TaskID, ev.Message, ev.Node)
}
