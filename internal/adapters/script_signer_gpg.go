package adapters

import (
	"bytes"
	"crypto"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/mitchellh/go-homedir"

	"app-installer/internal/ports"
)

// ScriptSignerGPGAdapter signs generated scripts with an OpenPGP key so that
// users can check a script before running it with gpg --verify.
type ScriptSignerGPGAdapter struct {
	Passphrase string
}

func NewScriptSignerGPGAdapter(passphrase string) ScriptSignerGPGAdapter {
	return ScriptSignerGPGAdapter{Passphrase: passphrase}
}

func (a ScriptSignerGPGAdapter) SignDetached(keyPath string, data []byte) ([]byte, error) {
	entity, err := a.loadEntity(keyPath)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = openpgp.ArmoredDetachSign(&buf, entity, bytes.NewReader(data), &packet.Config{
		DefaultHash: crypto.SHA512,
	})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create detached signature").
			WithCause(err)
	}
	return buf.Bytes(), nil
}

func (a ScriptSignerGPGAdapter) loadEntity(keyPath string) (*openpgp.Entity, error) {
	expanded, err := homedir.Expand(strings.TrimSpace(keyPath))
	if err != nil || expanded == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("signing key path is invalid").
			WithCause(err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("signing key not found").
			WithCause(err)
	}
	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
	}
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to read signing key").
			WithCause(err)
	}
	for _, entity := range entities {
		if entity.PrivateKey == nil {
			continue
		}
		if err := a.decrypt(entity); err != nil {
			return nil, err
		}
		return entity, nil
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("signing key file holds no private key")
}

func (a ScriptSignerGPGAdapter) decrypt(entity *openpgp.Entity) error {
	keys := []*packet.PrivateKey{entity.PrivateKey}
	for _, subkey := range entity.Subkeys {
		if subkey.PrivateKey != nil {
			keys = append(keys, subkey.PrivateKey)
		}
	}
	for _, key := range keys {
		if !key.Encrypted {
			continue
		}
		if a.Passphrase == "" {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("signing key is passphrase protected")
		}
		if err := key.Decrypt([]byte(a.Passphrase)); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodePermissionDenied).
				WithMsg("failed to unlock signing key").
				WithCause(err)
		}
	}
	return nil
}

var _ ports.ScriptSignerPort = ScriptSignerGPGAdapter{}
