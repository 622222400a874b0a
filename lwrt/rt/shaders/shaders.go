// Package shaders embeds the WGSL programs of the built-in pipelines.
package shaders

import (
	_ "embed"
	"sort"
)

//go:embed common.wgsl
var CommonWGSL string

//go:embed geometry.wgsl
var GeometryWGSL string

//go:embed shadow.wgsl
var ShadowWGSL string

//go:embed fullscreen.wgsl
var FullscreenWGSL string

//go:embed text.wgsl
var TextWGSL string

// Programs that read frame data are prefixed with the shared declarations.
var sources = map[string]string{
	"geometry":   CommonWGSL + GeometryWGSL,
	"shadow":     CommonWGSL + ShadowWGSL,
	"fullscreen": CommonWGSL + FullscreenWGSL,
	"text":       TextWGSL,
}

// Source returns the complete WGSL of a built-in program.
func Source(name string) (string, bool) {
	s, ok := sources[name]
	return s, ok
}

func Names() []string {
	names := make([]string, 0, len(sources))
	for n := range sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
