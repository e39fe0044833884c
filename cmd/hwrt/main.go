// hwrt inspects and exercises the hardware-adaptive runtime layer: feature
// detection, FPU bring-up, and the bulk memory/string dispatch table.
//
// Usage:
//
//	hwrt features
//	hwrt selftest --level vector128
//	hwrt bench --size 64KiB
//	hwrt serve --port 8080
//	hwrt features --sim sse2 --disable avx2
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hartyporpoise/hwrt/internal/config"
	"github.com/hartyporpoise/hwrt/internal/cpu"
	"github.com/hartyporpoise/hwrt/internal/kernel"
	"github.com/hartyporpoise/hwrt/internal/platform"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	disable    []string
	fpuScope   string
	contexts   int
	sim        string
}

func main() {
	if err := newRootCmd(&globalFlags{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(gf *globalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:           "hwrt",
		Short:         "hwrt: hardware-adaptive runtime layer diagnostics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&gf.configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&gf.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringSliceVar(&gf.disable, "disable", nil, "Features to force off after detection (e.g. avx2,sse4.2)")
	pf.StringVar(&gf.fpuScope, "fpu-scope", "", "FPU image scope: global or per-context")
	pf.IntVar(&gf.contexts, "contexts", 0, "Number of FPU contexts for per-context scope")
	pf.StringVar(&gf.sim, "sim", "", "Run against a simulated core instead of the host: "+strings.Join(platform.SimProfiles(), ", "))

	root.AddCommand(
		newFeaturesCmd(gf),
		newSelftestCmd(gf),
		newBenchCmd(gf),
		newServeCmd(gf),
	)
	return root
}

// loadConfig layers defaults, the config file, the environment and the
// flags that were set, in that order.
func loadConfig(cmd *cobra.Command, gf *globalFlags) (config.Config, error) {
	cfg := config.Default()
	if gf.configPath != "" {
		var err error
		if cfg, err = config.Load(gf.configPath); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = gf.logLevel
	}
	if flags.Changed("disable") {
		cfg.DisabledFeatures = gf.disable
	}
	if flags.Changed("fpu-scope") {
		cfg.FPUScope = config.Scope(gf.fpuScope)
	}
	if flags.Changed("contexts") {
		cfg.Contexts = gf.contexts
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

// env is what every subcommand runs against.
type env struct {
	cfg config.Config
	log *zap.Logger
	sub *kernel.Subsystem
}

// setup loads the config, builds the logger, and initializes a subsystem on
// the host or on the requested simulated core.
func setup(cmd *cobra.Command, gf *globalFlags) (*env, error) {
	cfg, err := loadConfig(cmd, gf)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	opts := []kernel.Option{kernel.WithConfig(cfg), kernel.WithLogger(log)}
	var sub *kernel.Subsystem
	if gf.sim != "" {
		profile, ok := platform.SimProfile(gf.sim)
		if !ok {
			return nil, fmt.Errorf("unknown --sim profile %q (want one of %s)", gf.sim, strings.Join(platform.SimProfiles(), ", "))
		}
		sub = kernel.New(platform.NewSim(profile), opts...)
	} else {
		sub = kernel.New(platform.Host(), append(opts, kernel.WithRegistry(cpu.Default))...)
	}
	sub.Init()
	return &env{cfg: cfg, log: log, sub: sub}, nil
}
