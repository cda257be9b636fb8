package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"BuildID", KeyBuildID, "b1", BuildID("b1")},
		{"Stage", KeyStage, "images", Stage("images")},
		{"Image", KeyImage, "a/b.jpg", Image("a/b.jpg")},
		{"Dest", KeyDest, "/tmp/x", Dest("/tmp/x")},
		{"Format", KeyFormat, "avif", Format("avif")},
		{"Collection", KeyCollection, "posts", Collection("posts")},
		{"Item", KeyItem, "a.json", Item("a.json")},
		{"Field", KeyField, "body", Field("body")},
		{"Dataset", KeyDataset, "summaries", Dataset("summaries")},
		{"Path", KeyPath, "/tmp/y", Path("/tmp/y")},
		{"Src", KeySrc, "/img.png", Src("/img.png")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			t.Errorf("%s: key = %q, want %q", tc.name, tc.attr.Key, tc.attrKey)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Errorf("%s: value = %q, want %q", tc.name, got, tc.attrVal)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if a := Width(420); a.Key != KeyWidth || a.Value.Int64() != 420 {
		t.Errorf("Width attr = %v", a)
	}
	if a := DurationMS(1.5); a.Key != KeyDurationMS || a.Value.Float64() != 1.5 {
		t.Errorf("DurationMS attr = %v", a)
	}
}

func TestErrorHelper(t *testing.T) {
	if a := Error(nil); a.Value.String() != "" {
		t.Errorf("nil error should produce empty value, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Errorf("error value = %q", a.Value.String())
	}
}
