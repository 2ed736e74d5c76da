package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/keithlinneman/rentwise-web/internal/cryptoutil"
	"github.com/keithlinneman/rentwise-web/internal/listings"
	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

type generateFlags struct {
	count   int
	seed    int64
	version string
	out     string
}

func newGenerateCmd() *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a feed of generated listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.OutOrStdout(), cmd.ErrOrStderr(), f, time.Now())
		},
	}
	cmd.Flags().IntVar(&f.count, "count", listings.DefaultCount, "number of listings")
	cmd.Flags().Int64Var(&f.seed, "seed", 1, "generator seed; the same seed yields the same listings")
	cmd.Flags().StringVar(&f.version, "version", "", "feed version (default: UTC timestamp)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "-", "output file, - for stdout")
	return cmd
}

func runGenerate(stdout, stderr io.Writer, f generateFlags, now time.Time) error {
	if f.count < 1 {
		return xerrors.Newf("--count must be >= 1 (got %d)", f.count)
	}
	feed := listings.NewFeed(listings.Generate(f.count, f.seed, now), f.version, now)
	if err := listings.ValidateFeed(feed, listings.DefaultValidationOptions()); err != nil {
		return xerrors.Wrap(err, "generated feed failed validation")
	}
	raw, err := feed.Encode()
	if err != nil {
		return err
	}
	if f.out == "-" || f.out == "" {
		_, err = stdout.Write(raw)
		return err
	}
	if err := writeFileAtomic(f.out, raw); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "wrote %s: %d listings, version %s, sha256 %s\n",
		f.out, len(feed.Listings), feed.Version, cryptoutil.SHA256Hex(raw))
	return nil
}

// writeFileAtomic renames into place so a FileWatcher never reads a partial
// feed.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return xerrors.Wrapf(err, "write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return xerrors.Wrapf(err, "rename %s", tmp)
	}
	return nil
}
