// Command assetc compiles scene manifests into render-ready binary scenes.
//
// Usage:
//
//	assetc compile -c config.yaml scene.yaml -o scene.bin
//	assetc inspect scene.yaml
package main

import (
	"fmt"
	"os"

	"github.com/gogpu/assetc/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "assetc: %v\n", err)
		os.Exit(1)
	}
}
