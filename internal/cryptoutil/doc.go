// Package cryptoutil holds the hashing and signature primitives used to
// publish and verify listing feeds.
//
// It supports:
//   - KMS-backed signing (feedctl publish) and local verification against the
//     cached KMS public key (ECDSA P-256/P-384, RSA-PSS with optional PKCS1v15 fallback)
//   - Constant-time hash comparison
//   - SHA-256 hashing helpers
package cryptoutil
