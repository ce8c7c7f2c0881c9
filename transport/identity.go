// Copyright 2026 The Dragonlink Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"

	"github.com/dragonlink-project/dragonlink/lib/clock"
)

// Identity is one client TLS identity supplied by the enrollment
// collaborator.
type Identity struct {
	Certificate tls.Certificate

	// RootCAs verifies the destination server. Nil falls back to the
	// system pool.
	RootCAs *x509.CertPool
}

// IdentityProvider is the enrollment collaborator contract. The
// transport only reads from it; it never drives the enrollment
// workflow.
type IdentityProvider interface {
	// CurrentIdentity returns the identity to present, or an error
	// wrapping ErrCertificateUnavailable when none exists.
	CurrentIdentity() (*Identity, error)

	// Valid reports whether the current identity is usable (present
	// and not expired).
	Valid() bool
}

// FileIdentity loads a client identity from PEM files on disk and
// caches it. Valid re-checks the leaf certificate's validity window on
// every call, so an expired certificate stops connect attempts without
// a process restart.
type FileIdentity struct {
	certFile string
	keyFile  string
	caFile   string // optional
	clock    clock.Clock

	mu     sync.Mutex
	cached *Identity
	leaf   *x509.Certificate
}

// NewFileIdentity returns a provider reading the given PEM files.
// caFile may be empty to use the system root pool.
func NewFileIdentity(certFile, keyFile, caFile string, clk clock.Clock) *FileIdentity {
	return &FileIdentity{certFile: certFile, keyFile: keyFile, caFile: caFile, clock: clk}
}

// CurrentIdentity loads (or returns the cached) identity.
func (f *FileIdentity) CurrentIdentity() (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.loadLocked(); err != nil {
		return nil, err
	}
	if !f.validLocked() {
		return nil, fmt.Errorf("%w: certificate outside its validity window", ErrCertificateUnavailable)
	}
	return f.cached, nil
}

// Valid reports whether a loadable, unexpired identity exists.
func (f *FileIdentity) Valid() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.loadLocked(); err != nil {
		return false
	}
	return f.validLocked()
}

func (f *FileIdentity) loadLocked() error {
	if f.cached != nil {
		return nil
	}
	certificate, err := tls.LoadX509KeyPair(f.certFile, f.keyFile)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCertificateUnavailable, err)
	}
	leaf, err := x509.ParseCertificate(certificate.Certificate[0])
	if err != nil {
		return fmt.Errorf("%w: parse leaf: %v", ErrCertificateUnavailable, err)
	}
	identity := &Identity{Certificate: certificate}
	if f.caFile != "" {
		pem, err := os.ReadFile(f.caFile)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCertificateUnavailable, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return fmt.Errorf("%w: no certificates in %s", ErrCertificateUnavailable, f.caFile)
		}
		identity.RootCAs = pool
	}
	f.cached = identity
	f.leaf = leaf
	return nil
}

func (f *FileIdentity) validLocked() bool {
	now := f.clock.Now()
	return now.After(f.leaf.NotBefore) && now.Before(f.leaf.NotAfter)
}
