package ports

type ScriptWriterPort interface {
	WriteScript(path string, content string) error
	WriteSignature(path string, signature []byte) error
}

// ScriptSignerPort produces an armored detached signature of data using the
// private key stored at keyPath.
type ScriptSignerPort interface {
	SignDetached(keyPath string, data []byte) ([]byte, error)
}
