package picture

import (
	"log/slog"
	"net/url"
	"path/filepath"

	"git.home.luguber.info/inful/cmsbuild/internal/config"
	"git.home.luguber.info/inful/cmsbuild/internal/logfields"
)

// ResolutionKind classifies how an image reference was resolved.
type ResolutionKind int

const (
	// Resolved means the persisted markup of an uploaded image was used.
	Resolved ResolutionKind = iota
	// External means the reference points outside the upload root.
	External
	// Missing means the reference is under the upload root but has no record.
	Missing
)

func (k ResolutionKind) String() string {
	switch k {
	case Resolved:
		return "resolved"
	case External:
		return "external"
	case Missing:
		return "missing"
	default:
		return "unknown"
	}
}

// Resolution is the markup chosen for one image reference.
type Resolution struct {
	Kind   ResolutionKind
	Markup string
	Rel    string
}

// Resolver maps CMS image references to markup. Resolution never fails:
// external and unknown images fall back to a bare <img>.
type Resolver struct {
	workDir   string
	uploadDir string
	store     *RecordStore
	logger    *slog.Logger
}

// NewResolver builds a resolver reading records from store.
func NewResolver(cfg *config.Config, store *RecordStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		workDir:   cfg.WorkDir,
		uploadDir: cfg.Picture.UploadDir,
		store:     store,
		logger:    logger,
	}
}

// Resolve returns markup for src. src is resolved against the working root,
// so a CMS media path such as /src/lib/images/uploads/a.jpg maps into the
// upload directory. Percent-encoded paths, as emitted by the Markdown
// renderer, are decoded; the query and fragment are ignored.
func (r *Resolver) Resolve(src string) Resolution {
	fallback := func(kind ResolutionKind, rel string) Resolution {
		return Resolution{Kind: kind, Markup: FallbackImage(src), Rel: rel}
	}

	paths := []string{src}
	if u, err := url.Parse(src); err == nil {
		if u.Scheme != "" || u.Host != "" {
			r.logger.Warn("External image, using plain img", logfields.Src(src))
			return fallback(External, "")
		}
		if u.Path != src {
			paths = []string{u.Path, src}
		}
	}

	var (
		rel  string
		miss error
	)
	for _, p := range paths {
		abs := filepath.Join(r.workDir, filepath.FromSlash(p))
		candidate, ok := relPath(r.uploadDir, abs)
		if !ok {
			continue
		}
		rec, err := r.store.Get(candidate)
		if err == nil {
			return Resolution{Kind: Resolved, Markup: rec.Markup.String(), Rel: candidate}
		}
		if rel == "" {
			rel, miss = candidate, err
		}
	}
	if rel == "" {
		r.logger.Warn("Image outside upload directory, using plain img", logfields.Src(src))
		return fallback(External, "")
	}
	r.logger.Warn("No placeholder record for image, using plain img",
		logfields.Src(src), logfields.Image(rel), logfields.Error(miss))
	return fallback(Missing, rel)
}
