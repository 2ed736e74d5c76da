package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/rentwise-web/internal/cryptoutil"
	"github.com/keithlinneman/rentwise-web/internal/listings"
)

var testNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.types = map[string]string{}
	}
	k := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[k] = b
	f.types[k] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

type fakeSSM struct {
	name, value string
	overwrite   bool
	calls       int
}

func (f *fakeSSM) PutParameter(_ context.Context, in *ssm.PutParameterInput, _ ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
	f.calls++
	f.name, f.value = aws.ToString(in.Name), aws.ToString(in.Value)
	f.overwrite = aws.ToBool(in.Overwrite)
	return &ssm.PutParameterOutput{}, nil
}

type fakeSigner struct{}

func (fakeSigner) Sign(_ context.Context, msg []byte) ([]byte, error) {
	return []byte("sig:" + cryptoutil.SHA256Hex(msg)), nil
}

func generateTo(t *testing.T, f generateFlags) string {
	t.Helper()
	if f.out == "" {
		f.out = filepath.Join(t.TempDir(), "feed.json")
	}
	var stderr bytes.Buffer
	if err := runGenerate(io.Discard, &stderr, f, testNow); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr.String(), "wrote "+f.out) {
		t.Fatalf("stderr = %q", stderr.String())
	}
	return f.out
}

func TestGenerate_DeterministicAndValid(t *testing.T) {
	a := generateTo(t, generateFlags{count: 12, seed: 99, version: "v1"})
	b := generateTo(t, generateFlags{count: 12, seed: 99, version: "v1"})

	fa, rawA, err := readFeed(a)
	if err != nil {
		t.Fatal(err)
	}
	_, rawB, err := readFeed(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(fa.Listings) != 12 || fa.Version != "v1" {
		t.Fatalf("feed = %d listings, version %q", len(fa.Listings), fa.Version)
	}
	if !bytes.Equal(rawA, rawB) {
		t.Fatal("same seed produced different feeds")
	}
}

func TestGenerate_Stdout(t *testing.T) {
	var stdout bytes.Buffer
	if err := runGenerate(&stdout, io.Discard, generateFlags{count: 3, seed: 1, out: "-"}, testNow); err != nil {
		t.Fatal(err)
	}
	f, _, err := listings.DecodeFeed(&stdout)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Listings) != 3 || f.Version != "20261018T090000Z" {
		t.Fatalf("feed = %d listings, version %q", len(f.Listings), f.Version)
	}
}

func TestGenerate_RejectsZeroCount(t *testing.T) {
	if err := runGenerate(io.Discard, io.Discard, generateFlags{count: 0}, testNow); err == nil {
		t.Fatal("expected error")
	}
}

func TestPublish_UploadsThenPointsSSM(t *testing.T) {
	file := generateTo(t, generateFlags{count: 5, seed: 4, version: "v9"})
	_, raw, err := readFeed(file)
	if err != nil {
		t.Fatal(err)
	}
	hash := cryptoutil.SHA256Hex(raw)

	s3c, ssmc := &fakeS3{}, &fakeSSM{}
	var out bytes.Buffer
	p := &publisher{s3: s3c, ssm: ssmc, signer: fakeSigner{}, out: &out}

	got, err := p.publish(context.Background(), publishFlags{
		file: file, bucket: "feeds", prefix: "/listings/", ssmParam: "/rentwise/feed",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != hash {
		t.Fatalf("hash = %s, want %s", got, hash)
	}

	feedKey := "feeds/" + listings.FeedKey("listings", hash)
	if !bytes.Equal(s3c.objects[feedKey], raw) {
		t.Fatalf("feed object %s missing or altered", feedKey)
	}
	if s3c.types[feedKey] != "application/json" {
		t.Fatalf("content type = %q", s3c.types[feedKey])
	}
	sigKey := "feeds/" + listings.SignatureKey("listings", hash)
	if string(s3c.objects[sigKey]) != "sig:"+hash {
		t.Fatalf("signature object = %q", s3c.objects[sigKey])
	}
	if ssmc.name != "/rentwise/feed" || ssmc.value != hash || !ssmc.overwrite {
		t.Fatalf("ssm = %+v", ssmc)
	}
	if !strings.Contains(out.String(), "published version v9 (5 listings)") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestPublish_UnsignedSkipsSignature(t *testing.T) {
	file := generateTo(t, generateFlags{count: 2, seed: 1})
	s3c := &fakeS3{}
	p := &publisher{s3: s3c, ssm: &fakeSSM{}, out: io.Discard}
	if _, err := p.publish(context.Background(), publishFlags{file: file, bucket: "b", ssmParam: "/p"}); err != nil {
		t.Fatal(err)
	}
	if len(s3c.objects) != 1 {
		t.Fatalf("objects = %d, want 1", len(s3c.objects))
	}
}

func TestPublish_S3FailureLeavesSSMAlone(t *testing.T) {
	file := generateTo(t, generateFlags{count: 2, seed: 1})
	ssmc := &fakeSSM{}
	p := &publisher{s3: &fakeS3{err: errors.New("access denied")}, ssm: ssmc, out: io.Discard}
	if _, err := p.publish(context.Background(), publishFlags{file: file, bucket: "b", ssmParam: "/p"}); err == nil {
		t.Fatal("expected error")
	}
	if ssmc.calls != 0 {
		t.Fatal("ssm pointer moved after a failed upload")
	}
}

func TestPublish_RejectsInvalidFeed(t *testing.T) {
	p := &publisher{s3: &fakeS3{}, ssm: &fakeSSM{}, out: io.Discard}
	_, err := p.publish(context.Background(), publishFlags{
		file: filepath.Join(t.TempDir(), "missing.json"), bucket: "b", ssmParam: "/p",
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"generate", "validate", "publish"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Fatalf("subcommand %s: %v", name, err)
		}
	}
}
