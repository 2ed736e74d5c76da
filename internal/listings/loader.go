package listings

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/rentwise-web/internal/cryptoutil"
	"github.com/keithlinneman/rentwise-web/internal/log"
	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

// SSMAPI is the subset of the SSM client the loader uses.
type SSMAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// S3API is the subset of the S3 client the loader uses.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Verifier checks a detached signature over the raw feed bytes.
type Verifier interface {
	Verify(ctx context.Context, message, signature []byte) error
}

type LoaderOptions struct {
	Logger log.Logger

	// SSM parameter containing the feed SHA-256
	SSMParam string

	// feeds live at s3://{bucket}/{prefix}/{hash}.json
	S3Bucket string
	S3Prefix string

	SSMClient SSMAPI
	S3Client  S3API

	// Verifier, when set, requires {hash}.json.sig next to every feed.
	Verifier Verifier

	Validation *ValidationOptions
}

type Loader struct {
	opts       LoaderOptions
	logger     log.Logger
	validation ValidationOptions
}

func NewLoader(opts LoaderOptions) (*Loader, error) {
	if opts.SSMParam == "" {
		return nil, xerrors.New("SSMParam is required")
	}
	if opts.S3Bucket == "" {
		return nil, xerrors.New("S3Bucket is required")
	}
	if opts.SSMClient == nil || opts.S3Client == nil {
		return nil, xerrors.New("SSM and S3 clients are required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	v := DefaultValidationOptions()
	if opts.Validation != nil {
		v = *opts.Validation
	}
	return &Loader{opts: opts, logger: opts.Logger, validation: v}, nil
}

// FeedKey and SignatureKey name the objects for a feed hash under prefix.
func FeedKey(prefix, hash string) string {
	if prefix = strings.Trim(prefix, "/"); prefix == "" {
		return hash + ".json"
	}
	return path.Join(prefix, hash+".json")
}

func SignatureKey(prefix, hash string) string { return FeedKey(prefix, hash) + ".sig" }

// FetchCurrentHash reads the published feed hash from SSM.
func (l *Loader) FetchCurrentHash(ctx context.Context) (string, error) {
	out, err := l.opts.SSMClient.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(l.opts.SSMParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get SSM parameter %s", l.opts.SSMParam)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", l.opts.SSMParam)
	}
	hash := strings.ToLower(strings.TrimSpace(*out.Parameter.Value))
	if !cryptoutil.IsSHA256Hex(hash) {
		return "", xerrors.Newf("SSM parameter %s is not a sha256 hex digest", l.opts.SSMParam)
	}
	return hash, nil
}

// Load fetches whatever SSM currently points at.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	hash, err := l.FetchCurrentHash(ctx)
	if err != nil {
		return nil, err
	}
	return l.LoadHash(ctx, hash)
}

// LoadHash downloads, checks and validates the feed for hash.
func (l *Loader) LoadHash(ctx context.Context, hash string) (*Snapshot, error) {
	loadedAt := time.Now().UTC()
	key := FeedKey(l.opts.S3Prefix, hash)

	l.logger.Info(ctx, "downloading listing feed",
		"bucket", l.opts.S3Bucket,
		"key", key,
	)
	raw, err := l.getObject(ctx, key)
	if err != nil {
		return nil, err
	}

	actual := cryptoutil.SHA256Hex(raw)
	if !cryptoutil.HashEqual(actual, hash) {
		return nil, xerrors.Newf("checksum mismatch: expected %s, got %s", hash, actual)
	}

	signed := false
	if l.opts.Verifier != nil {
		sig, err := l.getObject(ctx, SignatureKey(l.opts.S3Prefix, hash))
		if err != nil {
			return nil, xerrors.Wrap(err, "fetch feed signature")
		}
		if err := l.opts.Verifier.Verify(ctx, raw, bytes.TrimSpace(sig)); err != nil {
			return nil, xerrors.Wrap(err, "verify feed signature")
		}
		signed = true
	}

	feed, _, err := DecodeFeed(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if err := ValidateFeed(feed, l.validation); err != nil {
		return nil, err
	}

	snap := feed.Snapshot(raw, SourceS3)
	snap.Meta.VerifiedAt = time.Now().UTC()
	snap.Meta.Signed = signed
	snap.LoadedAt = loadedAt

	l.logger.Info(ctx, "loaded listing feed",
		"version", feed.Version,
		"listings", len(feed.Listings),
		"signed", signed,
	)
	return &snap, nil
}

// LoadIntoStore fetches the current feed and swaps it into st.
func (l *Loader) LoadIntoStore(ctx context.Context, st *Store) error {
	snap, err := l.Load(ctx)
	if err != nil {
		return err
	}
	st.Set(*snap)
	return nil
}

func (l *Loader) getObject(ctx context.Context, key string) ([]byte, error) {
	out, err := l.opts.S3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.opts.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "get S3 object s3://%s/%s", l.opts.S3Bucket, key)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(io.LimitReader(out.Body, maxFeedBytes+1))
	if err != nil {
		return nil, xerrors.Wrapf(err, "read S3 object %s", key)
	}
	if len(b) > maxFeedBytes {
		return nil, xerrors.Newf("S3 object %s exceeds %d bytes", key, maxFeedBytes)
	}
	return b, nil
}
