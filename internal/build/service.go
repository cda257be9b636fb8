package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/cmsbuild/internal/config"
	"git.home.luguber.info/inful/cmsbuild/internal/library"
	"git.home.luguber.info/inful/cmsbuild/internal/picture"
)

// BuildService is the canonical interface for executing content builds.
type BuildService interface {
	// Run executes the requested stages: images, then content.
	Run(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// Stage names, also used as metric labels.
const (
	StageImages  = "images"
	StageContent = "content"
)

// BuildRequest contains all inputs required to execute a build.
type BuildRequest struct {
	// Config is the resolved configuration for this build.
	Config *config.Config

	// SkipImages skips the image stage. Content then resolves images against
	// records left by earlier runs.
	SkipImages bool

	// SkipContent skips the content stage.
	SkipContent bool

	// BuildID identifies the run in logs. Generated when empty.
	BuildID string
}

// BuildResult contains the outcome of a build execution.
type BuildResult struct {
	// Status indicates overall build outcome.
	Status BuildStatus

	// BuildID is the identifier attached to every log line of the run.
	BuildID string

	// Images is the image stage report, nil when the stage did not complete.
	Images *picture.Report

	// Library is the content stage report, possibly partial on failure.
	Library *library.Report

	// Duration is the total build execution time.
	Duration time.Duration

	// StartTime is when the build started.
	StartTime time.Time

	// EndTime is when the build completed.
	EndTime time.Time
}

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	// BuildStatusSuccess indicates the build completed successfully.
	BuildStatusSuccess BuildStatus = "success"

	// BuildStatusFailed indicates the build encountered an error.
	BuildStatusFailed BuildStatus = "failed"

	// BuildStatusCancelled indicates the build was cancelled.
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsTerminal returns true if the status represents a final state.
func (s BuildStatus) IsTerminal() bool {
	return s == BuildStatusSuccess || s == BuildStatusFailed || s == BuildStatusCancelled
}

// IsSuccess returns true if the build completed successfully.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess
}
