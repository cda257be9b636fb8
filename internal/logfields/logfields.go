package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyImage      = "image"
	KeyDest       = "dest"
	KeyFormat     = "format"
	KeyWidth      = "width"
	KeyCollection = "collection"
	KeyItem       = "item"
	KeyField      = "field"
	KeyDataset    = "dataset"
	KeyPath       = "path"
	KeySrc        = "src"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Image(rel string) slog.Attr       { return slog.String(KeyImage, rel) }
func Dest(p string) slog.Attr          { return slog.String(KeyDest, p) }
func Format(f string) slog.Attr        { return slog.String(KeyFormat, f) }
func Width(w int) slog.Attr            { return slog.Int(KeyWidth, w) }
func Collection(name string) slog.Attr { return slog.String(KeyCollection, name) }
func Item(p string) slog.Attr          { return slog.String(KeyItem, p) }
func Field(name string) slog.Attr      { return slog.String(KeyField, name) }
func Dataset(name string) slog.Attr    { return slog.String(KeyDataset, name) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Src(s string) slog.Attr           { return slog.String(KeySrc, s) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
