package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/OCAP2/demo/internal/config"
	"github.com/OCAP2/demo/internal/dispatcher"
	"github.com/OCAP2/demo/internal/geo"
	"github.com/OCAP2/demo/internal/handlers"
	"github.com/OCAP2/demo/internal/logging"
	"github.com/OCAP2/demo/internal/monitor"
	"github.com/OCAP2/demo/internal/session"
	"github.com/OCAP2/demo/internal/world/memworld"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// consoleTick is the host frame interval of the console.
const consoleTick = time.Second / 20

func newConsoleCmd(a *app) *cobra.Command {
	var pathJSON string

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Drive the demo controller with host commands read from stdin",
		Long: "Reads one command per line, for example\n" +
			"  :DEMO:RECORD:START: run\n  :DEMO:RECORD:STOP:\n  :DEMO:PLAY: run\n  :DEMO:STATUS:\n" +
			"While recording, a robot walks the --path scenario one step per tick.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := geo.ParsePolyline(pathJSON)
			if err != nil {
				return err
			}
			if err := a.startSinks(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.runConsole(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), scenario{
				Mission: "pilot.mn3",
				Level:   1,
				Path:    path,
				Frames:  200,
			})
		},
	}
	cmd.Flags().StringVar(&pathJSON, "path", "[[0,0,0],[10,0,0],[10,0,10]]", "robot path as a JSON array of [x,y,z] points")
	return cmd
}

// runConsole serves host commands from in until it is exhausted or ctx
// ends. Commands and frames run on one goroutine, so the world is never
// touched concurrently.
func (a *app) runConsole(ctx context.Context, in io.Reader, out io.Writer, sc scenario) error {
	w := newWorld(config.GetDemoConfig().MaxObjects)
	robot, err := sc.setup(w)
	if err != nil {
		return err
	}
	c, err := a.newController(w, memworld.NewScreen())
	if err != nil {
		return err
	}
	defer c.Close()

	d, err := dispatcher.New(logging.NewDispatcherLogger(a.zlog))
	if err != nil {
		return err
	}
	defer d.Close()
	handlers.NewService(handlers.Dependencies{
		Controller:       c,
		LogManager:       a.logs,
		ExtensionName:    AppName,
		ExtensionVersion: CurrentVersion,
	}).Register(d)

	mon := monitor.NewService(monitor.Dependencies{
		Source:  c,
		Logger:  a.logger,
		Dir:     viper.GetString("logsDir"),
		Backend: a.backend,
	})
	if err := mon.Start(); err != nil {
		a.logger.Warn("Status monitor not started", "error", err)
	}
	defer mon.Stop()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(consoleTick)
	defer ticker.Stop()
	step := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			res, err := d.DispatchLine(line)
			if errors.Is(err, dispatcher.ErrEmptyLine) {
				continue
			}
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintln(out, res)
		case <-ticker.C:
			switch c.Mode() {
			case session.Playback:
				c.Frame(ctx)
			case session.Recording:
				step++
				w.Tick(frameSeconds)
				if o, ok := w.Object(robot); ok {
					w.Move(robot, o.Room, sc.position(step%(sc.Frames+1)), o.Orient)
				}
				c.RecordChangedObjects()
				c.RecordNewFrame()
			}
		}
	}
}
