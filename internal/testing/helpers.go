package testing

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/imamik/fwupgrade/internal/image"
)

// TestContext returns a context with a reasonable timeout for tests.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// NewTestImage writes content to a file called name and returns it as an image.
func NewTestImage(t testing.TB, name, content string) *image.Image {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write image: %v", err)
	}
	img, err := image.Open(path)
	if err != nil {
		t.Fatalf("open image: %v", err)
	}
	return img
}

// NewSizedImage returns an image of size bytes.
func NewSizedImage(t testing.TB, name string, size int) *image.Image {
	t.Helper()
	return NewTestImage(t, name, strings.Repeat("x", size))
}
