package debext

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/aptly-dev/aptly/pgp"
)

var (
	// ErrSignatureVerificationFailed indicates a signature verification failure
	ErrSignatureVerificationFailed = errors.New("signature verification failed")
	// ErrMissingSignature indicates a file is not signed
	ErrMissingSignature = errors.New("file is not signed")
)

// Verifier wraps aptly's pgp.Verifier with configuration options
type Verifier struct {
	pgp.Verifier
	AcceptUnsigned   bool // Accept files without signatures
	IgnoreSignatures bool // Skip signature verification
}

// NewVerifier loads a binary keyring and any number of armored or binary key
// files into aptly's Go verifier.
func NewVerifier(keyring string, keys []string, acceptUnsigned bool) (*Verifier, error) {
	verifier := &pgp.GoVerifier{}

	if keyring != "" {
		prepared, cleanup, err := prepareKeyFile(keyring)
		if err != nil {
			return nil, fmt.Errorf("keyring %s: %w", keyring, err)
		}
		defer cleanup()
		verifier.AddKeyring(prepared)
	}

	for _, keyPath := range keys {
		prepared, cleanup, err := prepareKeyFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", keyPath, err)
		}
		defer cleanup()
		verifier.AddKeyring(prepared)
	}

	// Keys are read into memory here, temporary files can go afterwards
	if err := verifier.InitKeyring(false); err != nil {
		return nil, err
	}

	return &Verifier{
		Verifier:       verifier,
		AcceptUnsigned: acceptUnsigned,
	}, nil
}

// VerifyAndClear verifies and extracts cleartext from a clearsigned file.
// The behavior depends on the verifier configuration:
// - If the input is not signed and AcceptUnsigned is false, it returns an error
// - If IgnoreSignatures is true, it extracts cleartext without verification
// - Otherwise, it verifies the signature before extracting cleartext
func (v *Verifier) VerifyAndClear(file io.ReadSeeker) (io.ReadCloser, []pgp.Key, error) {
	isClearSigned, err := v.IsClearSigned(file)
	if err != nil {
		return nil, nil, err
	}

	_, _ = file.Seek(0, io.SeekStart)

	if !isClearSigned && !v.AcceptUnsigned {
		return nil, nil, ErrMissingSignature
	}

	if v.IgnoreSignatures {
		if isClearSigned {
			rc, err := v.ExtractClearsigned(file)
			return rc, nil, err
		}
		return io.NopCloser(file), nil, nil
	}

	if isClearSigned {
		keyInfo, err := v.VerifyClearsigned(file, false)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrSignatureVerificationFailed, err)
		}

		_, _ = file.Seek(0, io.SeekStart)

		rc, err := v.ExtractClearsigned(file)
		return rc, keyInfo.GoodKeys, err
	}

	return io.NopCloser(file), nil, nil
}

// prepareKeyFile ensures a key file is in binary format for aptly's GoVerifier.
// Armored files are converted into a temporary binary keyring which the
// returned cleanup function removes.
func prepareKeyFile(keyPath string) (string, func(), error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return "", nil, err
	}

	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----")) {
		return keyPath, func() {}, nil
	}

	block, err := armor.Decode(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode armored key: %w", err)
	}
	if block.Type != openpgp.PublicKeyType {
		return "", nil, fmt.Errorf("unexpected armor type %q, expected %q", block.Type, openpgp.PublicKeyType)
	}

	entities, err := openpgp.ReadKeyRing(block.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read armored keyring: %w", err)
	}

	tmpFile, err := os.CreateTemp("", "venvpack-keyring-*.gpg")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp keyring: %w", err)
	}
	tmpFileName := tmpFile.Name()

	for _, entity := range entities {
		if err := entity.Serialize(tmpFile); err != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpFileName)
			return "", nil, fmt.Errorf("failed to serialize key: %w", err)
		}
	}

	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFileName)
		return "", nil, fmt.Errorf("failed to close temp keyring: %w", err)
	}

	return tmpFileName, func() { _ = os.Remove(tmpFileName) }, nil
}
