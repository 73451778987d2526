// Package cli implements the assetc command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gogpu/assetc"
	"github.com/gogpu/assetc/ir"
)

// RootOptions holds flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool

	// Flag overrides; applied only when the flag was set.
	Workers      int
	MaxDimension int
	CacheDir     string
	Compression  string
	NormalInvert string
	Progress     bool
}

// NewRootCommand creates the root command for the assetc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "assetc",
		Short: "assetc - scene asset compiler",
		Long: `Compile scene manifests into deduplicated, quantized, render-ready scenes.

A manifest lists textures, materials, meshes and instances in YAML.
Compiler settings come from an optional YAML config file (-c) and
can be overridden by flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging to stderr")
	f.IntVar(&opts.Workers, "workers", 0, "number of workers (0 = GOMAXPROCS)")
	f.IntVar(&opts.MaxDimension, "max-dimension", 0, "downsample textures larger than this (0 = never)")
	f.StringVar(&opts.CacheDir, "cache-dir", "", "texture cache directory")
	f.StringVar(&opts.Compression, "compression", "bc3", "texture compression (bc3|none)")
	f.StringVar(&opts.NormalInvert, "normal-invert", "", "normal map channel to invert (r|g|b|a)")
	f.BoolVar(&opts.Progress, "progress", true, "show progress bars on stderr")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))

	return cmd
}

// config merges the config file and the flags that were set on cmd.
func (o *RootOptions) config(cmd *cobra.Command) (Config, error) {
	cfg := DefaultConfig()
	if o.ConfigPath != "" {
		c, err := LoadConfig(o.ConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	f := cmd.Flags()
	if f.Changed("workers") {
		cfg.Workers = o.Workers
	}
	if f.Changed("max-dimension") {
		cfg.MaxDimension = o.MaxDimension
	}
	if f.Changed("cache-dir") {
		cfg.CacheDir = o.CacheDir
	}
	if f.Changed("compression") {
		cfg.Compression = o.Compression
	}
	if f.Changed("normal-invert") {
		cfg.NormalInvert = o.NormalInvert
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// compile loads the manifest at path and compiles it with the merged
// configuration. Logs and progress go to stderr.
func (o *RootOptions) compile(cmd *cobra.Command, path string) (*assetc.Scene, error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return nil, err
	}
	copts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	stderr := cmd.ErrOrStderr()
	assetc.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))
	defer assetc.SetLogger(nil)

	if o.Progress {
		p := newProgress(stderr)
		defer p.close()
		copts = append(copts, assetc.WithProgress(p.update))
	}

	scene, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	return compileScene(scene, copts)
}

func compileScene(scene *ir.Scene, opts []assetc.Option) (*assetc.Scene, error) {
	out, err := assetc.NewCompiler(opts...).Compile(scene)
	if err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("compiled scene is inconsistent: %w", err)
	}
	return out, nil
}

// plural returns "s" unless n is 1.
func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
