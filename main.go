package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/Alijeyrad/gowm/internal/config"
	"github.com/Alijeyrad/gowm/internal/logging"
	"github.com/Alijeyrad/gowm/internal/wm"
)

type options struct {
	configPath  string
	logLevel    string
	display     string
	writeConfig bool
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("gowm", flag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", config.Path(), "configuration file")
	fs.StringVarP(&opts.logLevel, "log-level", "l", "", "trace, debug, info, warn or error (overrides the configuration file)")
	fs.StringVarP(&opts.display, "display", "d", "", "X display to manage (default $DISPLAY)")
	fs.BoolVar(&opts.writeConfig, "write-config", false, "write the default configuration to --config and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err == nil {
		err = run(opts)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "gowm:", err)
		os.Exit(1)
	}
}

func run(opts *options) error {
	if opts.writeConfig {
		return writeDefaultConfig(opts.configPath)
	}

	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.Setup(os.Stderr, level)

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	srv, err := wm.Dial(opts.display)
	if err != nil {
		return err
	}
	app, err := wm.New(srv, registry)
	if err != nil {
		srv.Close()
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		sig, ok := <-sigs
		if !ok {
			return
		}
		slog.Info("shutting down", "signal", sig.String())
		app.Stop()
	}()

	return app.Run()
}

// writeDefaultConfig refuses to replace an existing file.
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.Default().SaveFile(path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Println("wrote", path)
	return nil
}
