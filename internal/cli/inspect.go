package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/gogpu/assetc"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <scene.yaml>",
		Short: "Compile a scene manifest and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scene, err := rootOpts.compile(cmd, args[0])
			if err != nil {
				return err
			}
			printScene(cmd.OutOrStdout(), scene)
			return nil
		},
	}
}

func printScene(w io.Writer, s *assetc.Scene) {
	textures := make(map[*assetc.Texture]int, len(s.Textures))
	printf(w, "Textures:\n")
	for i, t := range s.Textures {
		textures[t] = i
		printf(w, "  #%d %dx%d %s alpha [%.3f, %.3f] %d bytes\n",
			i, t.Width, t.Height, t.Format, t.MinAlpha, t.MaxAlpha, len(t.Payload))
	}

	materials := make(map[*assetc.Material]int, len(s.Materials))
	printf(w, "Materials:\n")
	for i, m := range s.Materials {
		materials[m] = i
		printf(w, "  #%d %q", i, m.Name)
		for c, t := range m.Textures {
			printf(w, " %s=#%d", assetc.Channel(c), textures[t])
		}
		switch {
		case m.AlphaMask:
			printf(w, " mask(%.2f)", m.AlphaCutoff)
		case m.AlphaBlend:
			printf(w, " blend")
		}
		printf(w, "\n")
	}

	meshes := make(map[*assetc.Mesh]int, len(s.Meshes))
	printf(w, "Meshes:\n")
	for i, m := range s.Meshes {
		meshes[m] = i
		printf(w, "  #%d %q %d vertices, %d triangles\n", i, m.Name, len(m.Positions), len(m.Indices)/3)
		for _, sm := range m.Submeshes {
			printf(w, "    submesh indices [%d,%d) vertices [%d,%d] material #%d\n",
				sm.FirstIndex, sm.FirstIndex+sm.IndexCount, sm.VertexOffset, sm.MaxVertex, materials[sm.Material])
		}
	}

	printf(w, "Instances:\n")
	for i, in := range s.Instances {
		t := in.Transform
		printf(w, "  #%d mesh #%d at (%g, %g, %g)\n", i, meshes[in.Mesh], t[9], t[10], t[11])
	}
}
