// Package assetc compiles 3D scene descriptions into render-ready data.
//
// # Overview
//
// Format parsers produce an [ir.Scene]: textures given as files, embedded
// bytes or raw pixels, materials as bags of semantic properties, indexed
// triangle meshes and mesh instances. A [Compiler] turns it into a [Scene]
// of deduplicated textures, fully resolved materials, meshes with packed
// 64-bit shading attributes and instances sharing those meshes.
//
// # Quick Start
//
//	c := assetc.NewCompiler(
//	    assetc.WithMaxDimension(2048),
//	    assetc.WithCacheDir(".assetc-cache"),
//	)
//	scene, err := c.Compile(irScene)
//	if err != nil {
//	    return err
//	}
//	_, err = scene.WriteTo(f)
//
// # Pipeline
//
// Compile runs four stages in order, each parallel across its items:
//
//  1. Textures sampled by a material channel go through [imageproc]:
//     decode, downsample, alpha scan, channel inversion and BC3
//     compression, with an optional content-addressed disk cache.
//  2. Every material resolves its five channels (base color, normal,
//     metal/roughness, emissive, transmission). A channel uses its
//     texture if that texture was processed, otherwise its constant
//     value as a single-pixel texture, otherwise a fixed default.
//     Single-pixel textures with the same RGBA8 value are one object.
//  3. Every mesh is copied and its tangent frames are packed by [attrib].
//  4. Instances are bound to the compiled meshes.
//
// # Errors
//
// A texture that is missing or cannot be decoded is logged at warn level
// and replaced by the defaults of the channels that sample it. Invalid
// references, bad cache configuration and malformed geometry abort the
// compile.
//
// # Logging
//
// assetc is silent by default. See [SetLogger].
package assetc
