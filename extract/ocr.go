package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Tesseract runs the tesseract CLI, feeding the image on stdin and reading
// the recognized text from stdout.
type Tesseract struct {
	// Path to the binary. Empty means "tesseract" on PATH.
	Path string
	// Lang is passed as -l when set, e.g. "eng".
	Lang string
}

func (t Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	bin := t.Path
	if bin == "" {
		bin = "tesseract"
	}
	args := []string{"stdin", "stdout"}
	if t.Lang != "" {
		args = append(args, "-l", t.Lang)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Available reports whether the binary can be found.
func (t Tesseract) Available() bool {
	bin := t.Path
	if bin == "" {
		bin = "tesseract"
	}
	_, err := exec.LookPath(bin)
	return err == nil
}
