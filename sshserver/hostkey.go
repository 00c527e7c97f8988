package sshserver

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// HostKey is the identity the playground terminal presents to clients.
type HostKey struct {
	Signer  ssh.Signer
	Path    string
	Created bool
}

// Fingerprint returns the SHA256 fingerprint clients see on first connect.
func (k HostKey) Fingerprint() string {
	if k.Signer == nil {
		return ""
	}
	return ssh.FingerprintSHA256(k.Signer.PublicKey())
}

// EnsureHostKey loads the key at path. A missing key is generated as
// ed25519 and written with mode 0600 through a temp file, so a crash never
// leaves a truncated key behind.
func EnsureHostKey(path string) (HostKey, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return HostKey{}, errors.New("ssh host key path is required")
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return HostKey{}, fmt.Errorf("parse host key %s: %w", path, err)
		}
		return HostKey{Signer: signer, Path: path}, nil
	case !errors.Is(err, fs.ErrNotExist):
		return HostKey{}, fmt.Errorf("read host key %s: %w", path, err)
	}

	signer, err := generateHostKey(path)
	if err != nil {
		return HostKey{}, err
	}
	return HostKey{Signer: signer, Path: path, Created: true}, nil
}

func generateHostKey(path string) (ssh.Signer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create host key dir: %w", err)
	}
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "codecanvas playground")
	if err != nil {
		return nil, fmt.Errorf("marshal host key: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".host_key-*")
	if err != nil {
		return nil, fmt.Errorf("write host key: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("write host key: %w", err)
	}
	if err := pem.Encode(tmp, block); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("encode host key: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("write host key: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("install host key: %w", err)
	}
	return ssh.NewSignerFromKey(priv)
}
