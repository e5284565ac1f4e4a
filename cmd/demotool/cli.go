package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/OCAP2/demo/internal/config"
	"github.com/OCAP2/demo/internal/geo"
	"github.com/OCAP2/demo/internal/inspect"
	"github.com/OCAP2/demo/internal/session"
	"github.com/OCAP2/demo/internal/util"
	"github.com/OCAP2/demo/internal/world/memworld"
	"github.com/OCAP2/demo/pkg/core"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newRootCmd(a *app) *cobra.Command {
	var configDir string

	root := &cobra.Command{
		Use:           AppName,
		Short:         "Record, play back and inspect demo files",
		Version:       fmt.Sprintf("%s (%s)", CurrentVersion, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(configDir); err != nil {
				return err
			}
			return a.setupLogging()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configDir, "config", ".", "directory containing "+config.FileName)
	flags.String("demo-dir", "", "directory demo files are read from and written to")
	flags.Bool("fast", false, "play back as fast as possible instead of at recorded speed")
	flags.Bool("movie", false, "take a screenshot every playback frame")
	flags.Bool("loop", false, "restart a demo when it ends")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	bindFlags(flags, map[string]string{
		"demo.dir":       "demo-dir",
		"demo.fast":      "fast",
		"demo.makeMovie": "movie",
		"demo.looping":   "loop",
		"logLevel":       "log-level",
	})

	root.AddCommand(
		newRecordCmd(a),
		newPlayCmd(a),
		newInspectCmd(a),
		newCatalogCmd(a),
		newConsoleCmd(a),
	)
	return root
}

// bindFlags binds each config key to the named flag so flags override file values.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if f := flags.Lookup(name); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}
}

func newRecordCmd(a *app) *cobra.Command {
	var (
		missionName string
		level       int32
		pathJSON    string
		frames      int
	)

	cmd := &cobra.Command{
		Use:   "record <name>",
		Short: "Record a scripted scenario: a robot walking a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := geo.ParsePolyline(pathJSON)
			if err != nil {
				return err
			}
			if frames < 1 {
				return fmt.Errorf("frames must be positive, got %d", frames)
			}
			sc := scenario{Mission: missionName, Level: level, Path: path, Frames: frames}

			if err := a.startSinks(); err != nil {
				return err
			}
			w := newWorld(config.GetDemoConfig().MaxObjects)
			robot, err := sc.setup(w)
			if err != nil {
				return err
			}
			c, err := a.newController(w, memworld.NewScreen())
			if err != nil {
				return err
			}

			if err := c.StartRecording(args[0]); err != nil {
				return err
			}
			file := c.Status().File
			for i := 1; i <= sc.Frames; i++ {
				w.Tick(frameSeconds)
				o, ok := w.Object(robot)
				if !ok {
					break
				}
				w.Move(robot, o.Room, sc.position(i), o.Orient)
				c.RecordChangedObjects()
				c.RecordNewFrame()
			}
			if err := c.StopRecording(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %d frames to %s\n", sc.Frames, file)
			return nil
		},
	}

	cmd.Flags().StringVar(&missionName, "mission", "pilot.mn3", "mission filename stored in the header")
	cmd.Flags().Int32Var(&level, "level", 1, "mission level")
	cmd.Flags().StringVar(&pathJSON, "path", "[[0,0,0],[10,0,0],[10,0,10]]", "robot path as a JSON array of [x,y,z] points")
	cmd.Flags().IntVar(&frames, "frames", 60, "number of frames to record")
	return cmd
}

func newPlayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "play <name>",
		Short: "Play a demo back against an empty world",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := sessionOptions()
			path := util.DemoPath(opts.Dir, util.EnsureDemoExt(args[0]))
			w, err := newPlaybackWorld(path, opts.MaxObjects)
			if err != nil {
				return err
			}
			if err := a.startSinks(); err != nil {
				return err
			}
			c, err := a.newController(w, memworld.NewScreen())
			if err != nil {
				return err
			}
			if err := c.StartPlayback(args[0]); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			st := c.Status()
			out := runPlayback(ctx, c)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", filepath.Base(st.File), out)
			return nil
		},
	}
}

// runPlayback plays frames until the controller goes idle and returns how
// the last session ended.
func runPlayback(ctx context.Context, c *session.Controller) session.Outcome {
	last := session.OutcomeIdle
	for {
		if ctx.Err() != nil {
			c.Abort(false)
		}
		out := c.Frame(ctx)
		switch out {
		case session.OutcomeFrame, session.OutcomePaused:
			continue
		case session.OutcomeIdle:
			return last
		}
		last = out
		if c.Mode() == session.Idle {
			return out
		}
	}
}

func newInspectCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <file>...",
		Short: "Summarise demo files without playing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetDemoConfig()
			for _, name := range args {
				path := name
				if _, err := os.Stat(path); err != nil {
					path = util.DemoPath(cfg.Dir, util.EnsureDemoExt(name))
				}
				rep, err := inspect.File(path, newWorld(cfg.MaxObjects))
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					if err := enc.Encode(rep); err != nil {
						return err
					}
					continue
				}
				printReport(cmd.OutOrStdout(), path, rep)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printReport(out io.Writer, path string, rep *inspect.Report) {
	h := rep.Header
	fmt.Fprintf(out, "%s\n", path)
	fmt.Fprintf(out, "  signature %s version %d\n", h.Signature, h.Version)
	fmt.Fprintf(out, "  mission   %s level %d\n", h.Mission, h.Level)
	fmt.Fprintf(out, "  start     gametime %.2f frame %d player %d\n", h.Gametime, h.FrameCount, h.PlayerSlot)
	fmt.Fprintf(out, "  length    %d bytes, %d frames, %d events, %.2fs\n", rep.Size, rep.Frames, rep.Events, rep.Duration)
	if rep.Error != "" {
		fmt.Fprintf(out, "  end       %s: %s\n", rep.End, rep.Error)
	} else {
		fmt.Fprintf(out, "  end       %s\n", rep.End)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  OPCODE\tCOUNT")
	for _, oc := range rep.Histogram() {
		fmt.Fprintf(tw, "  %s\t%d\n", oc.Name, oc.Count)
	}
	_ = tw.Flush()

	if len(rep.Paths) == 0 {
		return
	}
	ids := make([]core.ObjectID, 0, len(rep.Paths))
	for id := range rep.Paths {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fmt.Fprintln(tw, "  OBJECT\tPATH")
	for _, id := range ids {
		fmt.Fprintf(tw, "  %d\t%.2f\n", id, rep.Paths[id])
	}
	_ = tw.Flush()
}

func newCatalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Query the demo catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every recording stored in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.startSinks(); err != nil {
				return err
			}
			demos, err := a.backend.ListDemos()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFILE\tMISSION\tLEVEL\tFRAMES\tDURATION\tRECORDED")
			for _, d := range demos {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
					d.ID, d.Filename, d.Mission.Filename, d.Mission.Level, d.Frames,
					d.Duration.Round(time.Millisecond), d.StartTime.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	})
	return cmd
}
