package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reusee/dscope"
	"github.com/reusee/taidoc/cmds"
	"github.com/reusee/taidoc/configs"
	"github.com/reusee/taidoc/controllers"
	"github.com/reusee/taidoc/generators"
	"github.com/reusee/taidoc/logs"
	"github.com/reusee/taidoc/modes"
	"github.com/reusee/taidoc/taiconfigs"
	"github.com/reusee/taidoc/watches"
	"golang.org/x/sync/errgroup"
)

var once = cmds.Switch("-once")

func init() {
	cmds.GlobalExecutor.Describe("-once", "handle the file once and exit")
}

func main() {
	cmds.Execute(os.Args[1:])

	// interrupt and broken pipe stop the program gracefully
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGPIPE,
	)
	defer stop()

	scope := dscope.New(
		new(Module),
		modes.ForProduction(),
	)

	// config errors first, providers below read the config
	var err error
	scope.Call(func(
		loader configs.Loader,
	) {
		err = loader.Err()
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	scope.Call(func(
		logger logs.Logger,
		getWorkFile taiconfigs.GetWorkFile,
		getSyntax taiconfigs.GetSyntax,
		debounce taiconfigs.Debounce,
		getGenerator generators.GetDefaultGenerator,
		newController controllers.NewController,
		newWatcher watches.NewWatcher,
	) {

		path, err := getWorkFile()
		if err != nil {
			fatal(err)
		}
		syntax, err := getSyntax()
		if err != nil {
			fatal(err)
		}

		generator, err := getGenerator()
		if err != nil {
			fatal(err)
		}
		if checker, ok := generator.(generators.CredentialChecker); ok {
			if err := checker.CheckCredentials(ctx); err != nil {
				fatal(err)
			}
		}

		// watch before recording the initial content, so no edit falls between the two
		var watcher *watches.Watcher
		if !*once {
			watcher, err = newWatcher(string(path))
			if err != nil {
				fatal(err)
			}
		}

		controller := newController(string(path), syntax)
		if err := controller.Init(); err != nil {
			fatal(err)
		}

		if *once {
			outcome, err := controller.Process(ctx)
			if err != nil {
				fatal(err)
			}
			logger.Info("processed",
				"path", path,
				"outcome", outcome.String(),
			)
			return
		}

		group, ctx := errgroup.WithContext(ctx)
		group.Go(func() error {
			return watcher.Run(ctx)
		})
		group.Go(func() error {
			return controller.Run(ctx, watcher.Changes(), time.Duration(debounce))
		})
		if err := group.Wait(); err != nil {
			fatal(err)
		}

		logger.Info("stopped", "path", path)
	})

}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "%v\n", err)
	os.Exit(1)
}
