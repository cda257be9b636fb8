// Package build provides the canonical build pipeline for cmsbuild.
//
// A build runs two stages in order. The image stage processes every upload
// and must finish before the content stage starts, because content reads the
// placeholder records it persists. The content stage builds the content
// library and its reducer datasets. All execution paths (CLI commands and
// watch mode) route through BuildService.
package build
