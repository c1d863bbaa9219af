package main

import (
	"flag"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-anim/config"
	"github.com/Carmen-Shannon/oxy-anim/engine/loader"
	ma "github.com/Carmen-Shannon/oxy-anim/engine/model_animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/profiler"
)

func main() {
	configPath := flag.String("config", "rig.toml", "path of the rig TOML file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("animbake failed", "error", err)
		os.Exit(1)
	}
}

// bakedInstance pairs a configured instance with its running animation.
type bakedInstance struct {
	name string
	anim ma.ModelAnimation
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	l := loader.Init(loader.WithLogger(logger))
	defer loader.Shutdown()

	prof := profiler.NewProfiler(profiler.WithLogger(logger))

	instances := make([]bakedInstance, 0, len(cfg.Instances))
	defer func() {
		for _, inst := range instances {
			inst.anim.Release()
		}
	}()

	for _, ic := range cfg.Instances {
		imported, err := l.LoadModel(ic.Model)
		if err != nil {
			return fmt.Errorf("instance %q: %w", ic.Name, err)
		}

		opts := []ma.ModelAnimationBuilderOption{
			ma.WithLoop(ic.Looping()),
			ma.WithSkinIndex(ic.Skin),
			ma.WithRenormalizeWeights(ic.RenormalizeWeights),
			ma.WithAnimationLoader(l),
			ma.WithProfiler(prof),
			ma.WithLogger(logger.With("instance", ic.Name)),
		}
		if ic.Animation != "" {
			opts = append(opts, ma.WithAnimationPath(ic.Animation))
		}

		anim, err := ma.NewModelAnimation(imported, opts...)
		if err != nil {
			return fmt.Errorf("instance %q: %w", ic.Name, err)
		}
		instances = append(instances, bakedInstance{name: ic.Name, anim: anim})
	}

	dt := cfg.FrameDelta()
	for frame := 0; frame < cfg.Frames; frame++ {
		for _, inst := range instances {
			inst.anim.Update(dt)
		}
		prof.Tick()
	}

	for _, inst := range instances {
		report(logger, inst)
	}
	return nil
}

// report logs the final pose of one instance.
func report(logger *slog.Logger, inst bakedInstance) {
	if !inst.anim.HasAnimation() {
		logger.Info("instance not animated", "instance", inst.name)
		return
	}

	attrs := []any{
		"instance", inst.name,
		"time", inst.anim.Animator().Time(),
		"playing", inst.anim.Animator().Playing(),
		"palette_crc32", fmt.Sprintf("%08x", crc32.ChecksumIEEE(inst.anim.Palette())),
	}
	if skel := inst.anim.Skeleton(); skel != nil {
		root := skel.Root()
		attrs = append(attrs,
			"joints", skel.JointCount(),
			"root", root.Name,
			"root_translation", root.SkeletonSpaceMatrix.Col(3).Vec3(),
		)
	}
	logger.Info("instance baked", attrs...)
}
