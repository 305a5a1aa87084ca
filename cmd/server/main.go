package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/cricklet/chessforge/internal/config"
	"github.com/cricklet/chessforge/internal/engine"
	. "github.com/cricklet/chessforge/internal/helpers"
	"github.com/cricklet/chessforge/internal/server"
	"github.com/pkg/profile"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, fmt.Sprint(r))
			fmt.Fprintln(os.Stderr, string(debug.Stack()))
		}
	}()

	args := os.Args[1:]

	if Contains(args, "profile") {
		p := profile.Start(profile.ProfilePath(RootDir() + "/data/CmdServerMain"))
		defer p.Stop()
	}
	args = FilterSlice(args, func(arg string) bool {
		return arg != "profile"
	})

	c, remaining, err := config.FromArgs(args)
	if err.HasError() {
		fmt.Fprintln(os.Stderr, "config:", err)
		fmt.Fprintln(os.Stderr, "usage: server [port] [config=path.yaml] [engine=path] [skill=N] [depth=N | movetime=1s] [profile]")
		os.Exit(1)
	}
	if len(remaining) > 0 {
		fmt.Fprintln(os.Stderr, "ignoring", remaining)
	}

	var logger Logger = &DefaultLogger
	var engineLogger Logger = &SilentLogger
	if c.Verbose {
		engineLogger = PrefixLogger(logger, "engine: ")
	}
	logger.Println(c)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := engine.NewRegistry(c.EngineFactory(engineLogger))
	defer func() {
		err := registry.Shutdown()
		if err.HasError() {
			logger.Println("shutdown:", err)
		}
	}()

	// start the engine up front so a bad path fails before anyone connects
	_, err = registry.Acquire(ctx)
	if err.HasError() {
		logger.Println("engine:", err)
	}

	err = server.NewServer(c, registry, server.WithLogger(logger)).ListenAndServe(ctx)
	if err.HasError() {
		logger.Println("server:", err)
	}
}
