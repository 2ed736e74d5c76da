package cryptoutil

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

// KMSKeyFetcher is the subset of the KMS API needed to fetch a public key.
type KMSKeyFetcher interface {
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
}

// KMSSignerAPI adds Sign for publishers.
type KMSSignerAPI interface {
	KMSKeyFetcher
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
}

// KMSVerifier verifies signatures locally against a cached KMS public key.
type KMSVerifier struct {
	client KMSKeyFetcher
	keyARN string

	// AllowPKCS1v15 accepts RSA PKCS1v15 signatures when PSS fails.
	AllowPKCS1v15 bool

	mu     sync.RWMutex
	pubKey crypto.PublicKey
}

func NewKMSVerifier(client KMSKeyFetcher, keyARN string) *KMSVerifier {
	return &KMSVerifier{client: client, keyARN: keyARN}
}

// KeyARN returns the configured key id.
func (v *KMSVerifier) KeyARN() string { return v.keyARN }

// PublicKey fetches and caches the KMS public key for local verification.
// First call hits KMS API, subsequent calls return cached key.
func (v *KMSVerifier) PublicKey(ctx context.Context) (crypto.PublicKey, error) {
	v.mu.RLock()
	pub := v.pubKey
	v.mu.RUnlock()
	if pub != nil {
		return pub, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pubKey != nil {
		return v.pubKey, nil
	}

	pub, _, err := fetchPublicKey(ctx, v.client, v.keyARN)
	if err != nil {
		return nil, err
	}
	v.pubKey = pub
	return pub, nil
}

// Verify checks signature over message. Key type picks the hash:
//   - ECDSA P-384: SHA-384
//   - ECDSA P-256: SHA-256
//   - RSA: SHA-256 PSS (PKCS1v15 only when AllowPKCS1v15 is set)
func (v *KMSVerifier) Verify(ctx context.Context, message, signature []byte) error {
	pub, err := v.PublicKey(ctx)
	if err != nil {
		return err
	}
	switch key := pub.(type) {
	case *ecdsa.PublicKey:
		return verifyECDSA(key, message, signature)
	case *rsa.PublicKey:
		return verifyRSA(key, message, signature, v.AllowPKCS1v15)
	default:
		return xerrors.Newf("unsupported public key type: %T", pub)
	}
}

// KMSSigner signs feeds with an asymmetric KMS key. The signing algorithm is
// derived from the key spec on first use.
type KMSSigner struct {
	client KMSSignerAPI
	keyARN string

	once sync.Once
	alg  kmstypes.SigningAlgorithmSpec
	err  error
}

func NewKMSSigner(client KMSSignerAPI, keyARN string) *KMSSigner {
	return &KMSSigner{client: client, keyARN: keyARN}
}

func (s *KMSSigner) Sign(ctx context.Context, message []byte) ([]byte, error) {
	s.once.Do(func() {
		_, spec, err := fetchPublicKey(ctx, s.client, s.keyARN)
		if err != nil {
			s.err = err
			return
		}
		s.alg, s.err = signingAlgorithm(spec)
	})
	if s.err != nil {
		return nil, s.err
	}

	out, err := s.client.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(s.keyARN),
		Message:          message,
		MessageType:      kmstypes.MessageTypeRaw,
		SigningAlgorithm: s.alg,
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "kms sign")
	}
	return out.Signature, nil
}

func fetchPublicKey(ctx context.Context, client KMSKeyFetcher, keyARN string) (crypto.PublicKey, kmstypes.KeySpec, error) {
	if client == nil {
		return nil, "", xerrors.New("kms client is not configured")
	}
	out, err := client.GetPublicKey(ctx, &kms.GetPublicKeyInput{KeyId: aws.String(keyARN)})
	if err != nil {
		return nil, "", xerrors.Wrap(err, "kms get public key")
	}
	if out.KeyUsage != kmstypes.KeyUsageTypeSignVerify {
		return nil, "", xerrors.Newf("kms key %s has KeyUsage=%s, expected SIGN_VERIFY", keyARN, out.KeyUsage)
	}
	pub, err := x509.ParsePKIXPublicKey(out.PublicKey)
	if err != nil {
		return nil, "", xerrors.Wrap(err, "parse kms public key DER")
	}
	return pub, out.KeySpec, nil
}

func signingAlgorithm(spec kmstypes.KeySpec) (kmstypes.SigningAlgorithmSpec, error) {
	switch spec {
	case kmstypes.KeySpecEccNistP256:
		return kmstypes.SigningAlgorithmSpecEcdsaSha256, nil
	case kmstypes.KeySpecEccNistP384:
		return kmstypes.SigningAlgorithmSpecEcdsaSha384, nil
	case kmstypes.KeySpecRsa2048, kmstypes.KeySpecRsa3072, kmstypes.KeySpecRsa4096:
		return kmstypes.SigningAlgorithmSpecRsassaPssSha256, nil
	default:
		return "", xerrors.Newf("unsupported kms key spec %q", spec)
	}
}

func verifyECDSA(key *ecdsa.PublicKey, message, signature []byte) error {
	var digest []byte
	switch key.Curve {
	case elliptic.P256():
		d := sha256.Sum256(message)
		digest = d[:]
	case elliptic.P384():
		d := sha512.Sum384(message)
		digest = d[:]
	default:
		return xerrors.Newf("unsupported ECDSA curve: %v", key.Curve.Params().Name)
	}
	if !ecdsa.VerifyASN1(key, digest, signature) {
		return xerrors.Newf("ECDSA signature verification failed (curve %s)", key.Curve.Params().Name)
	}
	return nil
}

func verifyRSA(key *rsa.PublicKey, message, signature []byte, allowFallback bool) error {
	digest := sha256.Sum256(message)
	pssErr := rsa.VerifyPSS(key, crypto.SHA256, digest[:], signature, nil)
	if pssErr == nil {
		return nil
	}
	if !allowFallback {
		return xerrors.Newf("RSA-PSS verification failed (PKCS1v15 fallback disabled): %v", pssErr)
	}
	return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], signature)
}
