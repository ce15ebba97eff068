package adapters

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/mitchellh/go-homedir"

	"app-installer/internal/ports"
)

type ScriptFileAdapter struct{}

func NewScriptFileAdapter() ScriptFileAdapter {
	return ScriptFileAdapter{}
}

// WriteScript writes an executable script, creating parent directories.
func (a ScriptFileAdapter) WriteScript(path string, content string) error {
	return writeArtifact(path, []byte(content), 0755, "script")
}

func (a ScriptFileAdapter) WriteSignature(path string, signature []byte) error {
	return writeArtifact(path, signature, 0644, "signature")
}

func writeArtifact(path string, data []byte, mode os.FileMode, kind string) error {
	expanded, err := homedir.Expand(strings.TrimSpace(path))
	if err != nil || expanded == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(kind + " output path is invalid").
			WithCause(err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create " + kind + " directory").
			WithCause(err)
	}
	if err := os.WriteFile(expanded, data, mode); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write " + kind).
			WithCause(err)
	}
	return os.Chmod(expanded, mode)
}

var _ ports.ScriptWriterPort = ScriptFileAdapter{}
