package assetc

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/assetc/attrib"
	"github.com/gogpu/assetc/cache"
	"github.com/gogpu/assetc/imageproc"
	"github.com/gogpu/assetc/internal/parallel"
	"github.com/gogpu/assetc/ir"
	"github.com/gogpu/assetc/strided"
)

// ErrNilScene is returned by Compile for a nil scene.
var ErrNilScene = errors.New("assetc: nil scene")

// cacheExt is the file extension of texture cache entries.
const cacheExt = ".tex"

// Compiler compiles IR scenes. A Compiler holds only configuration; every
// Compile call creates its own workers and processors, so one Compiler may
// run several compiles concurrently.
type Compiler struct {
	opts options
}

// NewCompiler creates a Compiler with the given options.
func NewCompiler(opts ...Option) *Compiler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Compiler{opts: o}
}

// compilation is the state of one Compile call.
type compilation struct {
	opts   options
	scene  *ir.Scene
	pool   *parallel.WorkerPool
	logger *slog.Logger

	progressMu sync.Mutex
	done       int
}

// Compile validates scene and compiles it. Stages run in order: textures,
// materials, meshes, instances. Within a stage, items are processed in
// parallel.
//
// A texture that cannot be read or decoded is logged and replaced by the
// defaults of the channels that sample it. Any other failure aborts the
// compile and is returned with the index of the offending entity.
func (c *Compiler) Compile(scene *ir.Scene) (*Scene, error) {
	if scene == nil {
		return nil, ErrNilScene
	}
	if err := scene.Validate(); err != nil {
		return nil, fmt.Errorf("assetc: %w", err)
	}

	cc := &compilation{
		opts:   c.opts,
		scene:  scene,
		pool:   parallel.NewWorkerPool(c.opts.workers),
		logger: Logger(),
	}
	defer cc.pool.Close()

	start := time.Now()
	textures, err := cc.compileTextures()
	if err != nil {
		return nil, err
	}
	materials, res, err := cc.compileMaterials(textures)
	if err != nil {
		return nil, err
	}
	meshes, materials, err := cc.compileMeshes(materials, res)
	if err != nil {
		return nil, err
	}
	out := &Scene{
		Materials: materials,
		Meshes:    meshes,
		Instances: cc.compileInstances(meshes),
	}
	out.Textures = collectTextures(out.Materials)

	cc.logger.Info("assetc: compiled scene",
		"textures", len(out.Textures),
		"materials", len(out.Materials),
		"meshes", len(out.Meshes),
		"instances", len(out.Instances),
		"elapsed", time.Since(start))
	return out, nil
}

// progress reports the start of a stage.
func (cc *compilation) progress(stage Stage, done, total int) {
	if cc.opts.progress == nil {
		return
	}
	cc.progressMu.Lock()
	defer cc.progressMu.Unlock()
	cc.done = done
	cc.opts.progress(stage, done, total)
}

// step reports one finished item of a stage.
func (cc *compilation) step(stage Stage, total int) {
	if cc.opts.progress == nil {
		return
	}
	cc.progressMu.Lock()
	defer cc.progressMu.Unlock()
	cc.done++
	cc.opts.progress(stage, cc.done, total)
}

// compileTextures processes every texture variant sampled by a material
// channel and returns the successful results.
func (cc *compilation) compileTextures() (map[textureKey]*Texture, error) {
	start := time.Now()
	jobs := textureUsage(cc.scene, cc.opts.normalInvert)

	var disk *cache.Disk
	if cc.opts.cacheDir != "" {
		d, err := cache.NewDisk(cc.opts.cacheDir, cacheExt)
		if err != nil {
			return nil, fmt.Errorf("assetc: texture cache: %w", err)
		}
		disk = d
	}

	procs := make([]*imageproc.Processor, cc.pool.Workers())
	for i := range procs {
		procs[i] = imageproc.NewProcessor(imageproc.WithCache(disk), imageproc.WithLogger(cc.logger))
	}

	results := make([]*imageproc.Texture, len(jobs))
	errs := make([]error, len(jobs))
	cc.progress(StageTextures, 0, len(jobs))
	tasks := make([]parallel.Task, len(jobs))
	for j, k := range jobs {
		src := cc.scene.Textures[k.index].Source
		_, isFile := src.(ir.FileSource)
		params := imageproc.Params{
			MaxDimension: cc.opts.maxDimension,
			Flags:        k.flags,
			Invert:       k.invert,
			Compression:  cc.opts.compression,
			Cache:        disk != nil && isFile,
		}
		tasks[j] = func(worker int) {
			results[j], errs[j] = procs[worker].Process(src, params)
			cc.step(StageTextures, len(jobs))
		}
	}
	if err := cc.pool.ExecuteAll(tasks); err != nil {
		return nil, err
	}

	out := make(map[textureKey]*Texture, len(jobs))
	for j, k := range jobs {
		name := cc.scene.Textures[k.index].Name
		if err := errs[j]; err != nil {
			if !recoverable(err) {
				return nil, fmt.Errorf("assetc: texture %d %q: %w", k.index, name, err)
			}
			cc.logger.Warn("assetc: texture replaced by defaults",
				"texture", k.index, "name", name, "err", err)
			continue
		}
		out[k] = fromProcessed(results[j])
	}

	var stats imageproc.Stats
	for _, p := range procs {
		s := p.Stats()
		stats.Decodes += s.Decodes
		stats.CacheReads += s.CacheReads
		stats.CacheWrites += s.CacheWrites
	}
	cc.logger.Debug("assetc: textures done",
		"processed", len(jobs),
		"decodes", stats.Decodes,
		"cache_reads", stats.CacheReads,
		"cache_writes", stats.CacheWrites,
		"elapsed", time.Since(start))
	return out, nil
}

// recoverable reports whether a texture failure is replaced by defaults
// rather than aborting the compile.
func recoverable(err error) bool {
	var de *imageproc.DecodeError
	var me *imageproc.MissingFileError
	return errors.As(err, &de) || errors.As(err, &me)
}

// compileMaterials resolves every IR material. Material resolution reads the
// alpha range of already processed textures.
func (cc *compilation) compileMaterials(textures map[textureKey]*Texture) ([]*Material, *resolver, error) {
	start := time.Now()
	res := newResolver(textures, cc.opts.normalInvert)
	n := len(cc.scene.Materials)
	out := make([]*Material, n)

	cc.progress(StageMaterials, 0, n)
	tasks := make([]parallel.Task, n)
	for i := range tasks {
		tasks[i] = func(int) {
			out[i] = res.resolve(&cc.scene.Materials[i])
			cc.step(StageMaterials, n)
		}
	}
	if err := cc.pool.ExecuteAll(tasks); err != nil {
		return nil, nil, err
	}
	hits, misses := res.constants.Stats()
	cc.logger.Debug("assetc: materials done",
		"materials", n,
		"constants", res.constants.Len(),
		"constant_hits", hits,
		"constant_misses", misses,
		"elapsed", time.Since(start))
	return out, res, nil
}

// compileMeshes packs every IR mesh. Meshes without a material use a shared
// default material, which is appended to the returned materials.
func (cc *compilation) compileMeshes(materials []*Material, res *resolver) ([]*Mesh, []*Material, error) {
	start := time.Now()
	n := len(cc.scene.Meshes)

	var fallback *Material
	mats := make([]*Material, n)
	for i := range cc.scene.Meshes {
		if j, ok := cc.scene.Meshes[i].Material.Index(); ok {
			mats[i] = materials[j]
			continue
		}
		if fallback == nil {
			fallback = res.resolve(&ir.Material{Name: "default"})
		}
		mats[i] = fallback
	}
	if fallback != nil {
		materials = append(materials, fallback)
	}

	procs := make([]*attrib.Processor, cc.pool.Workers())
	for i := range procs {
		procs[i] = attrib.NewProcessor()
	}

	out := make([]*Mesh, n)
	errs := make([]error, n)
	cc.progress(StageMeshes, 0, n)
	tasks := make([]parallel.Task, n)
	for i := range tasks {
		tasks[i] = func(worker int) {
			out[i], errs[i] = compileMesh(procs[worker], &cc.scene.Meshes[i], mats[i])
			cc.step(StageMeshes, n)
		}
	}
	if err := cc.pool.ExecuteAll(tasks); err != nil {
		return nil, nil, err
	}
	for i, err := range errs {
		if err != nil {
			return nil, nil, fmt.Errorf("assetc: mesh %d %q: %w", i, cc.scene.Meshes[i].Name, err)
		}
	}
	cc.logger.Debug("assetc: meshes done", "meshes", n, "elapsed", time.Since(start))
	return out, materials, nil
}

// compileMesh copies the geometry of m and packs its shading attributes.
func compileMesh(p *attrib.Processor, m *ir.Mesh, mat *Material) (*Mesh, error) {
	positions := slices.Clone(m.Positions)
	attrs := make([]attrib.Packed, len(positions))
	in := attrib.Input{
		Positions: strided.Of(positions),
		Normals:   strided.Of(m.Normals),
		UVs:       strided.Of(m.UVs),
		Indices:   strided.Of(m.Indices),
	}
	if err := p.Process(in, strided.Of(attrs)); err != nil {
		return nil, err
	}
	indices := slices.Clone(m.Indices)
	return &Mesh{
		Name:       m.Name,
		Positions:  positions,
		Attributes: attrs,
		Indices:    indices,
		Submeshes: []Submesh{{
			VertexOffset: 0,
			MaxVertex:    uint32(max(len(positions)-1, 0)),
			FirstIndex:   0,
			IndexCount:   uint32(len(indices)),
			Material:     mat,
		}},
	}, nil
}

// compileInstances places the compiled meshes.
func (cc *compilation) compileInstances(meshes []*Mesh) []Instance {
	n := len(cc.scene.Instances)
	out := make([]Instance, n)
	cc.progress(StageInstances, 0, n)
	for i, in := range cc.scene.Instances {
		j, _ := in.Mesh.Index()
		out[i] = Instance{Mesh: meshes[j], Transform: in.Transform}
		cc.step(StageInstances, n)
	}
	return out
}

// collectTextures lists the textures bound to materials, in material then
// channel order, without duplicates.
func collectTextures(materials []*Material) []*Texture {
	seen := make(map[*Texture]bool)
	var out []*Texture
	for _, m := range materials {
		for _, t := range m.Textures {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}
