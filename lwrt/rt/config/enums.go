package config

import (
	"fmt"

	"github.com/gekko3d/lightwave/lwrt/rt/frame"
	"github.com/gekko3d/lightwave/lwrt/rt/geometry"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
	"github.com/gekko3d/lightwave/lwrt/rt/pass"
)

var textureFormats = map[string]gpu.TextureFormat{
	"rgba8":    gpu.FormatRGBA8,
	"bgra8":    gpu.FormatBGRA8,
	"rgba16f":  gpu.FormatRGBA16F,
	"r8":       gpu.FormatR8,
	"depth24":  gpu.FormatDepth24,
	"depth32f": gpu.FormatDepth32F,
	"surface":  gpu.FormatSurface,
}

var bufferUsages = map[string]gpu.BufferUsage{
	"vertex":   gpu.UsageVertex,
	"index":    gpu.UsageIndex,
	"uniform":  gpu.UsageUniform,
	"storage":  gpu.UsageStorage,
	"indirect": gpu.UsageIndirect,
	"copy_dst": gpu.UsageCopyDst,
}

var blendModes = map[string]gpu.BlendMode{
	"":         gpu.BlendNone,
	"none":     gpu.BlendNone,
	"alpha":    gpu.BlendAlpha,
	"additive": gpu.BlendAdditive,
}

var cullModes = map[string]gpu.CullMode{
	"":      gpu.CullNone,
	"none":  gpu.CullNone,
	"back":  gpu.CullBack,
	"front": gpu.CullFront,
}

var sortModes = map[string]frame.SortMode{
	"":              frame.SortNone,
	"none":          frame.SortNone,
	"state":         frame.SortState,
	"front_to_back": frame.SortFrontToBack,
	"back_to_front": frame.SortBackToFront,
}

// streamLayouts are the vertex streams pipelines may name.
var streamLayouts = map[string]func() gpu.VertexLayout{
	"position":   geometry.DefaultPositionLayout,
	"attributes": geometry.DefaultAttributeLayout,
	"text":       pass.TextVertexLayout,
}

func lookup[T any](table map[string]T, kind, value string) (T, error) {
	v, ok := table[value]
	if !ok {
		return v, fmt.Errorf("%s %q: %w", kind, value, ErrUnknownValue)
	}
	return v, nil
}

func TextureFormat(s string) (gpu.TextureFormat, error) {
	if s == "" {
		return gpu.FormatRGBA8, nil
	}
	return lookup(textureFormats, "texture format", s)
}

func BufferUsage(names []string) (gpu.BufferUsage, error) {
	var u gpu.BufferUsage
	for _, n := range names {
		v, err := lookup(bufferUsages, "buffer usage", n)
		if err != nil {
			return 0, err
		}
		u |= v
	}
	return u, nil
}

func SortMode(s string) (frame.SortMode, error) { return lookup(sortModes, "sort mode", s) }
