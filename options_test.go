package assetc

import (
	"testing"

	"github.com/gogpu/assetc/imageproc"
)

func TestDefaultOptions(t *testing.T) {
	c := NewCompiler()
	if c.opts.compression != imageproc.CompressionBC3 {
		t.Errorf("default compression = %v, want BC3", c.opts.compression)
	}
	if c.opts.maxDimension != 0 || c.opts.cacheDir != "" || c.opts.workers != 0 {
		t.Errorf("unexpected defaults: %+v", c.opts)
	}
	if c.opts.normalInvert != imageproc.ChannelNone {
		t.Errorf("default normal invert = %v, want none", c.opts.normalInvert)
	}
}

func TestOptionsApply(t *testing.T) {
	called := false
	c := NewCompiler(
		WithWorkers(3),
		WithMaxDimension(512),
		WithCacheDir("cache"),
		WithCompression(imageproc.CompressionNone),
		WithNormalInvert(imageproc.ChannelG),
		WithProgress(func(Stage, int, int) { called = true }),
	)
	o := c.opts
	if o.workers != 3 || o.maxDimension != 512 || o.cacheDir != "cache" ||
		o.compression != imageproc.CompressionNone || o.normalInvert != imageproc.ChannelG {
		t.Errorf("options not applied: %+v", o)
	}
	o.progress(StageMeshes, 0, 0)
	if !called {
		t.Error("WithProgress did not install the callback")
	}

	if got := NewCompiler(WithMaxDimension(-5)).opts.maxDimension; got != 0 {
		t.Errorf("negative max dimension stored as %d, want 0", got)
	}
}

func TestStageString(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageTextures, "textures"},
		{StageMaterials, "materials"},
		{StageMeshes, "meshes"},
		{StageInstances, "instances"},
		{Stage(99), "[!] invalid Stage value"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("Stage(%d).String() = %q, want %q", tt.stage, got, tt.want)
		}
	}
	if got := ChannelMetalRough.String(); got != "metal-rough" {
		t.Errorf("ChannelMetalRough.String() = %q", got)
	}
}
