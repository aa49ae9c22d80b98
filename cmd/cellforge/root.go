package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chazu/cellforge/pkg/engine"
	"github.com/chazu/cellforge/pkg/vars"
)

// app carries the per-invocation config and logger to subcommands.
type app struct {
	v   *viper.Viper
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zap.NewNop()}
	var cfgFile string

	root := &cobra.Command{
		Use:          "cellforge",
		Short:        "Build CSG cell models from reusable components",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(cfgFile); err != nil {
				return err
			}
			return a.initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./cellforge.yaml)")
	root.PersistentFlags().String("db", "", "SQLite build database")
	root.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	_ = a.v.BindPFlag("db", root.PersistentFlags().Lookup("db"))
	_ = a.v.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))

	root.AddCommand(a.buildCmd(), a.listCmd(), a.showCmd())
	return root
}

func (a *app) initConfig(cfgFile string) error {
	a.v.SetDefault("format", "text")
	a.v.SetDefault("verbose", false)
	a.v.SetDefault("vars", []string{})
	a.v.SetEnvPrefix("CELLFORGE")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("cellforge")
		a.v.SetConfigType("yaml")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func (a *app) initLogger() error {
	cfg := zap.NewProductionConfig()
	if a.v.GetBool("verbose") {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	a.log = log
	return nil
}

// loadVars reads variable files in order into one store. Later files
// override earlier ones; scripts see everything loaded before them.
func (a *app) loadVars(paths []string) (*vars.Store, error) {
	store := vars.NewStore()
	eng := engine.NewEngine(a.log)
	for _, p := range paths {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".zy", ".lisp":
			src, err := os.ReadFile(p)
			if err != nil {
				return nil, err
			}
			out, evalErrs, err := eng.EvaluateWith(store, string(src))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p, err)
			}
			if len(evalErrs) > 0 {
				errs := make([]error, len(evalErrs))
				for i, e := range evalErrs {
					errs[i] = e
				}
				return nil, fmt.Errorf("%s: %w", p, errors.Join(errs...))
			}
			store = out
		default:
			if err := vars.LoadFile(store, p); err != nil {
				return nil, err
			}
		}
		a.log.Debug("loaded variables", zap.String("file", p), zap.Int("total", store.Len()))
	}
	return store, nil
}
