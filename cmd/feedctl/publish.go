package main

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/spf13/cobra"

	"github.com/keithlinneman/rentwise-web/internal/cryptoutil"
	"github.com/keithlinneman/rentwise-web/internal/listings"
	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

type s3Putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type ssmPutter interface {
	PutParameter(ctx context.Context, in *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

type signer interface {
	Sign(ctx context.Context, message []byte) ([]byte, error)
}

type publishFlags struct {
	file      string
	bucket    string
	prefix    string
	ssmParam  string
	kmsKeyARN string
}

// publisher uploads a feed and then flips the SSM pointer. The pointer moves
// last so a watcher never sees a hash whose objects are not there yet.
type publisher struct {
	s3     s3Putter
	ssm    ssmPutter
	signer signer
	out    io.Writer
}

func newPublishCmd() *cobra.Command {
	var f publishFlags
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload a feed to S3 and point the SSM parameter at it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			awsCfg, err := config.LoadDefaultConfig(ctx)
			if err != nil {
				return xerrors.Wrap(err, "load aws config")
			}
			p := &publisher{
				s3:  s3.NewFromConfig(awsCfg),
				ssm: ssm.NewFromConfig(awsCfg),
				out: cmd.OutOrStdout(),
			}
			if f.kmsKeyARN != "" {
				p.signer = cryptoutil.NewKMSSigner(kms.NewFromConfig(awsCfg), f.kmsKeyARN)
			}
			_, err = p.publish(ctx, f)
			return err
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.file, "file", "", "feed file to publish")
	fl.StringVar(&f.bucket, "bucket", "", "s3 bucket")
	fl.StringVar(&f.prefix, "prefix", "apps/rentwise-web/listings/feeds", "s3 key prefix")
	fl.StringVar(&f.ssmParam, "ssm-param", "/app/rentwise-web/listings/feed/current", "ssm parameter to update with the feed hash")
	fl.StringVar(&f.kmsKeyARN, "kms-key-arn", "", "asymmetric KMS key used to sign the feed (optional)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("bucket")
	return cmd
}

func (p *publisher) publish(ctx context.Context, f publishFlags) (string, error) {
	if f.ssmParam == "" {
		return "", xerrors.New("--ssm-param must not be empty")
	}
	feed, raw, err := readFeed(f.file)
	if err != nil {
		return "", err
	}
	hash := cryptoutil.SHA256Hex(raw)

	key := listings.FeedKey(f.prefix, hash)
	if err := p.put(ctx, f.bucket, key, raw, "application/json"); err != nil {
		return "", err
	}
	fmt.Fprintf(p.out, "uploaded s3://%s/%s\n", f.bucket, key)

	if p.signer != nil {
		sig, err := p.signer.Sign(ctx, raw)
		if err != nil {
			return "", xerrors.Wrap(err, "sign feed")
		}
		sigKey := listings.SignatureKey(f.prefix, hash)
		if err := p.put(ctx, f.bucket, sigKey, sig, "application/octet-stream"); err != nil {
			return "", err
		}
		fmt.Fprintf(p.out, "uploaded s3://%s/%s\n", f.bucket, sigKey)
	}

	_, err = p.ssm.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(f.ssmParam),
		Value:     aws.String(hash),
		Type:      ssmtypes.ParameterTypeString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "put ssm parameter %s", f.ssmParam)
	}
	fmt.Fprintf(p.out, "published version %s (%d listings) as %s\n", feed.Version, len(feed.Listings), hash)
	return hash, nil
}

func (p *publisher) put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	_, err := p.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return xerrors.Wrapf(err, "put s3://%s/%s", bucket, key)
	}
	return nil
}
