package binary

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork

	"github.com/ZebulonRouseFrantzich/pbsetup/internal/release"
)

// Verifier checks a freshly downloaded archive before it enters the cache.
type Verifier interface {
	Method() VerificationMethod
	// Verify checks the file at path, which holds the bytes of artifact.
	Verify(ctx context.Context, artifact release.Artifact, path string) error
}

// fetcher downloads small sidecar files.
type fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// NewVerifier returns the verifier for method. keyringPath is required for
// VerificationGPG and ignored otherwise.
func NewVerifier(method VerificationMethod, keyringPath string, d *Downloader) (Verifier, error) {
	switch method {
	case VerificationNone:
		return NoopVerifier{}, nil
	case VerificationGPG:
		if keyringPath == "" {
			return nil, fmt.Errorf("gpg verification requires a keyring")
		}
		return &GPGVerifier{fetcher: d, keyringPath: keyringPath}, nil
	default:
		return nil, fmt.Errorf("unknown verification method: %v", method)
	}
}

// NoopVerifier accepts every archive.
type NoopVerifier struct{}

func (NoopVerifier) Method() VerificationMethod { return VerificationNone }

func (NoopVerifier) Verify(ctx context.Context, artifact release.Artifact, path string) error {
	return nil
}

// GPGVerifier checks a detached signature published next to the archive
// (".asc" first, then ".sig") against a local keyring.
type GPGVerifier struct {
	fetcher     fetcher
	keyringPath string
}

func (v *GPGVerifier) Method() VerificationMethod { return VerificationGPG }

func (v *GPGVerifier) Verify(ctx context.Context, artifact release.Artifact, path string) error {
	keyring, err := loadKeyring(v.keyringPath)
	if err != nil {
		return fmt.Errorf("load keyring: %w", err)
	}

	var sig []byte
	var fetchErr error
	for _, ext := range []string{".asc", ".sig"} {
		sig, fetchErr = v.fetcher.Fetch(ctx, artifact.URL+ext)
		if fetchErr == nil {
			break
		}
	}
	if fetchErr != nil {
		return fmt.Errorf("download signature: %w", fetchErr)
	}

	if err := checkSignature(keyring, path, sig); err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}
	return nil
}

// checkSignature verifies sig (armored or binary) over the file at path.
func checkSignature(keyring openpgp.EntityList, path string, sig []byte) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	// Verify signature (try armored first)
	_, err = openpgp.CheckArmoredDetachedSignature(keyring, file, bytes.NewReader(sig), nil)
	if err != nil {
		// Try non-armored signature
		if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
			return seekErr
		}
		_, err = openpgp.CheckDetachedSignature(keyring, file, bytes.NewReader(sig), nil)
	}
	return err
}

// loadKeyring loads an armored or binary GPG keyring.
func loadKeyring(keyringPath string) (openpgp.EntityList, error) {
	keyringFile, err := os.Open(keyringPath)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer keyringFile.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(keyringFile)
	if err != nil {
		// Try reading as non-armored keyring
		if _, seekErr := keyringFile.Seek(0, io.SeekStart); seekErr != nil {
			return nil, seekErr
		}
		keyring, err = openpgp.ReadKeyRing(keyringFile)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}

	return keyring, nil
}
