/*
 * main.go, part of mdbench.
 *
 * Copyright 2024 The mdbench authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

// Command mdbench times the iteration over the frames of a molecular dynamics trajectory.
//
// With no arguments it reads test.gro and test.xtc from the current directory.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rmera/mdbench/bench"
	"github.com/rmera/mdbench/config"
	"github.com/rmera/mdbench/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "mdbench:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		cfgPath    string
		topology   string
		trajectory string
		outputJSON bool
		plotPath   string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "mdbench",
		Short: "Benchmark the reading of a molecular dynamics trajectory",
		Long: `mdbench opens a topology (.gro) and a trajectory (.xtc or .dcd, optionally
compressed), reads one frame to warm up and then times two full passes
over the trajectory, reporting the average time and frames per second.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			if cfgPath != "" {
				var err error
				cfg, err = config.New(cfgPath)
				if err != nil {
					return err
				}
			}
			flags := cmd.Flags()
			if flags.Changed("topology") {
				cfg.Topology = topology
			}
			if flags.Changed("trajectory") {
				cfg.Trajectory = trajectory
			}
			if flags.Changed("json") {
				cfg.JSON = outputJSON
			}
			if flags.Changed("plot") {
				cfg.Plot = plotPath
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Check(); err != nil {
				return err
			}
			logger, err := newLogger(cfg, stderr)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return run(cmd.Context(), cfg, stdout, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgPath, "config", "",
		"YAML or TOML configuration file")
	flags.StringVar(&topology, "topology", bench.DefaultTopology,
		"Topology (.gro) file")
	flags.StringVar(&trajectory, "trajectory", bench.DefaultTrajectory,
		"Trajectory file (.xtc, .dcd, optionally .gz, .zst or .lzw). Empty means the topology coordinates")
	flags.BoolVar(&outputJSON, "json", false,
		"Also print the results as JSON")
	flags.StringVar(&plotPath, "plot", "",
		"Save a plot of the run times to this file (.png, .svg, .pdf...)")
	flags.StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn, error")

	return cmd
}

// newLogger builds a development (human readable) logger that writes to w.
func newLogger(cfg *config.Config, w io.Writer) (*zap.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	sink := zapcore.AddSync(w)
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), sink, level)
	return zap.New(core, zap.Development(), zap.AddCaller(), zap.ErrorOutput(sink)), nil
}

func run(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *zap.Logger) error {
	logger.Debug("starting benchmark",
		zap.String("topology", cfg.Topology),
		zap.String("trajectory", cfg.Trajectory))
	res, err := bench.RunFiles(ctx, cfg.Topology, cfg.Trajectory, bench.WithOutput(stdout), bench.WithLogger(logger))
	if err != nil {
		return err
	}
	logger.Info("benchmark finished",
		zap.String("id", res.ID),
		zap.Int("frames", res.Frames),
		zap.Float64("fps", res.FPS))
	if cfg.JSON {
		if err := report.JSON(stdout, res); err != nil {
			return err
		}
	}
	if cfg.Plot != "" {
		if err := report.Plot(cfg.Plot, res); err != nil {
			return err
		}
		logger.Info("plot saved", zap.String("file", cfg.Plot))
	}
	return nil
}
