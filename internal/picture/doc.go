// Package picture generates image derivatives and placeholder records for
// every file under the upload root.
//
// For each source image the engine persists one PlaceholderRecord (natural
// size, a low-quality preview and a <picture> markup template) and writes one
// derivative per configured (format, width) pair to
// <BinaryDir>/<relPath>-<width>.<format>.
//
// Derivative freshness is decided by destination presence only. The cache is
// not content-addressed: replacing a source image in place under the same name
// does not regenerate its derivatives. Delete the derivatives to force it.
package picture
