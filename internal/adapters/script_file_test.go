package adapters

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/require"
)

func TestScriptFileWritesExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "install.sh")
	require.NoError(t, NewScriptFileAdapter().WriteScript(path, "#!/usr/bin/env bash\nexit 0\n"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0755), info.Mode().Perm())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "#!/usr/bin/env bash\nexit 0\n", string(data))
}

func writeTestKey(t *testing.T) (string, *openpgp.Entity) {
	t.Helper()
	entity, err := openpgp.NewEntity("App Installer Test", "", "test@example.com", &packet.Config{Algorithm: packet.PubKeyAlgoEdDSA})
	require.NoError(t, err)
	var buf bytes.Buffer
	writer, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.SerializePrivate(writer, nil))
	require.NoError(t, writer.Close())

	path := filepath.Join(t.TempDir(), "signing.asc")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path, entity
}

func TestScriptSignerProducesVerifiableSignature(t *testing.T) {
	keyPath, entity := writeTestKey(t)
	script := []byte("#!/usr/bin/env bash\necho hi\n")

	signature, err := NewScriptSignerGPGAdapter("").SignDetached(keyPath, script)
	require.NoError(t, err)
	require.Contains(t, string(signature), "BEGIN PGP SIGNATURE")

	signer, err := openpgp.CheckArmoredDetachedSignature(openpgp.EntityList{entity}, bytes.NewReader(script), bytes.NewReader(signature), nil)
	require.NoError(t, err)
	require.Equal(t, entity.PrimaryKey.KeyId, signer.PrimaryKey.KeyId)

	_, err = openpgp.CheckArmoredDetachedSignature(openpgp.EntityList{entity}, bytes.NewReader([]byte("tampered")), bytes.NewReader(signature), nil)
	require.Error(t, err)
}

func TestScriptSignerMissingKey(t *testing.T) {
	_, err := NewScriptSignerGPGAdapter("").SignDetached(filepath.Join(t.TempDir(), "missing.asc"), []byte("x"))
	require.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestScriptSignerRejectsPublicKeyOnly(t *testing.T) {
	_, entity := writeTestKey(t)
	var buf bytes.Buffer
	writer, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.Serialize(writer))
	require.NoError(t, writer.Close())
	path := filepath.Join(t.TempDir(), "public.asc")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	_, err = NewScriptSignerGPGAdapter("").SignDetached(path, []byte("x"))
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}
