package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/wippyai/objtrack/config"
	"github.com/wippyai/objtrack/diag"
	"github.com/wippyai/objtrack/driver/mock"
	"github.com/wippyai/objtrack/driver/native"
	"github.com/wippyai/objtrack/errors"
	"github.com/wippyai/objtrack/layer"
	"github.com/wippyai/objtrack/replay"
	"github.com/wippyai/objtrack/router"
	"github.com/wippyai/objtrack/tracker"
	"github.com/wippyai/objtrack/vk"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: objtrack run -script <file.yaml> [-config c.yaml] [-log out.cbor] [-i]")
	fmt.Fprintln(os.Stderr, "       objtrack log -file <out.cbor> [-kind k] [-call name] [-session id] [-severity s]")
	fmt.Fprintln(os.Stderr, "       objtrack probe [-lib libvulkan.so.1]")
	fmt.Fprintln(os.Stderr, "       objtrack commands")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:])
	case "log":
		err = logCmd(os.Args[2:], os.Stdout)
	case "probe":
		err = probeCmd(os.Args[2:], os.Stdout)
	case "commands":
		err = commandsCmd(os.Stdout)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var (
		scriptFile  = fs.String("script", "", "Path to call script (YAML)")
		configFile  = fs.String("config", "", "Path to settings (YAML)")
		logFile     = fs.String("log", "", "Write violations to this CBOR file")
		interactive = fs.Bool("i", false, "Step through the script in a TUI")
		verbose     = fs.Bool("v", false, "Log every call")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *scriptFile == "" {
		usage()
		return errors.InvalidInput(errors.PhaseReplay, "missing -script")
	}

	settings, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	if *logFile != "" {
		settings.Log.File = *logFile
	}
	if *verbose {
		settings.Log.Level = "debug"
		if !settings.Enabled("call_log") {
			settings.Interceptors = append(settings.Interceptors, "call_log")
		}
	}

	script, err := replay.Load(*scriptFile)
	if err != nil {
		return err
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.Unsupported(errors.PhaseReplay, "interactive mode needs a terminal")
		}
		// The TUI owns the screen.
		settings.Log.Stderr = false
	}

	l, drv, err := newLayer(settings)
	if err != nil {
		return err
	}
	defer l.Close()

	if *interactive {
		return runInteractive(l, drv, script)
	}
	return runScript(l, drv, script, os.Stdout)
}

func newLayer(settings *config.Settings) (*layer.Layer, *mock.Driver, error) {
	log, err := settings.BuildLogger()
	if err != nil {
		return nil, nil, err
	}
	router.SetLogger(log.Named("router"))
	tracker.SetLogger(log.Named("tracker"))
	layer.SetLogger(log)

	drv := mock.New()
	l, err := layer.New(settings, drv, layer.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	return l, drv, nil
}

func runScript(l *layer.Layer, drv *mock.Driver, script *replay.Script, w io.Writer) error {
	fmt.Fprintf(w, "Script: %s\n", script.Name)
	if script.Description != "" {
		fmt.Fprintf(w, "%s\n", script.Description)
	}
	fmt.Fprintf(w, "Session: %s\n\n", l.Session())

	out, err := replay.Run(context.Background(), l, drv, script)
	for _, st := range out.Steps {
		printStep(w, st)
	}
	if err != nil {
		return err
	}

	if err := l.Close(); err != nil {
		return err
	}
	printStats(w, l.Stats())
	return out.Err()
}

func printStep(w io.Writer, st replay.StepResult) {
	fmt.Fprintf(w, "%3d  %s -> %s\n", st.Index+1, st.Call, st.Result)
	for _, v := range st.Violations {
		fmt.Fprintf(w, "       %-8s %s\n", v.Severity, v.Message)
	}
	for _, m := range st.Mismatches {
		fmt.Fprintf(w, "       MISMATCH %s\n", m)
	}
}

func printStats(w io.Writer, s layer.Stats) {
	fmt.Fprintf(w, "\nViolations: %d\n", s.TotalViolations())
	for _, k := range s.Kinds() {
		fmt.Fprintf(w, "  %-30s %d\n", k, s.Violations[k])
	}
	var live []string
	for t, n := range s.Objects {
		live = append(live, fmt.Sprintf("%s=%d", t, n))
	}
	if len(live) > 0 {
		fmt.Fprintf(w, "Live objects: %s\n", strings.Join(live, " "))
	}
}

func logCmd(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	var (
		file     = fs.String("file", "", "CBOR violation log")
		kind     = fs.String("kind", "", "Only this violation kind")
		call     = fs.String("call", "", "Only this entry point")
		session  = fs.String("session", "", "Only this session")
		severity = fs.String("severity", "", "Only these severities (error|warning)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		usage()
		return errors.InvalidInput(errors.PhaseConfig, "missing -file")
	}

	filter := diag.Filter{Session: *session, Kind: errors.Kind(*kind), Call: *call}
	if *severity != "" {
		mask, err := diag.ParseSeverities(*severity)
		if err != nil {
			return err
		}
		filter.Severity = mask
	}

	r, err := diag.NewFilteredReader(*file, filter)
	if err != nil {
		return err
	}
	defer r.Close()

	events, err := r.ReadAll()
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Fprintf(w, "%s %-8s %-40s %s\n", e.Timestamp.Format("15:04:05.000"), e.Severity, e.ID, e.Message)
	}
	fmt.Fprintf(w, "%d events\n", len(events))
	return nil
}

func probeCmd(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	lib := fs.String("lib", "", "Vulkan loader library (default: search system paths)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := native.Open(*lib)
	if err != nil {
		return err
	}
	defer l.Close()

	procs, err := l.GlobalProcs()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Library: %s\n", l.Path())
	for _, name := range procs.Names() {
		fmt.Fprintf(w, "  %s\n", name)
	}
	return nil
}

func commandsCmd(w io.Writer) error {
	for _, name := range vk.Commands() {
		cmd, _ := vk.Lookup(name)
		fmt.Fprintf(w, "%-45s %-9s %-8s", name, cmd.Scope(), cmd.Op)
		if cmd.Op.Produces() {
			fmt.Fprintf(w, " %s", cmd.Creates)
		}
		fmt.Fprintln(w)
	}
	return nil
}
