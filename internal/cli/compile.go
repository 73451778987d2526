package cli

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <scene.yaml>",
		Short: "Compile a scene manifest to a binary scene",
		Long: `Compile a scene manifest and write the compiled scene in its binary form.

Compiling the same manifest with the same settings always writes the same bytes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "scene.bin", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, cmd *cobra.Command, path string) error {
	scene, err := opts.compile(cmd, path)
	if err != nil {
		return err
	}

	f, err := os.Create(opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	w := bufio.NewWriter(f)
	n, err := scene.WriteTo(w)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.Output, err)
	}

	printf(cmd.OutOrStdout(), "✓ Compiled %d texture%s, %d material%s, %d mesh%s, %d instance%s to %s (%d bytes)\n",
		len(scene.Textures), plural(len(scene.Textures)),
		len(scene.Materials), plural(len(scene.Materials)),
		len(scene.Meshes), pluralES(len(scene.Meshes)),
		len(scene.Instances), plural(len(scene.Instances)),
		opts.Output, n)
	return nil
}

func pluralES(n int) string {
	if n == 1 {
		return ""
	}
	return "es"
}
