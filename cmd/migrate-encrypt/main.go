// Command migrate-encrypt sweeps stored financial profiles and encrypts
// legacy plaintext fields in place. Dry-run by default; pass -apply to
// write.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/finwise/dataguard/internal/app"
	"github.com/finwise/dataguard/internal/common"
	"github.com/finwise/dataguard/internal/config"
	"github.com/finwise/dataguard/internal/flagx"
	"github.com/finwise/dataguard/internal/sweep"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	args := flagx.FilterArgs(os.Args[1:], []string{"-apply"})
	fs := flag.NewFlagSet("migrate-encrypt", flag.ContinueOnError)
	apply := fs.Bool("apply", false, "write changes (default is a dry run)")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("%v", err)
	}

	key, err := app.ResolveKey()
	if err != nil {
		log.Fatalf("%v", err)
	}

	a, err := app.New(ctx, cfg, key)
	common.WipeByteArray(key)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer a.Close()

	backfill := sweep.NewBackfill(a.Profiles, a.Cipher, a.Logger)
	backfill.Apply = *apply

	report, err := backfill.Run(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}

	mode := "dry-run"
	if *apply {
		mode = "apply"
	}
	fmt.Printf("mode=%s records=%d updated=%d already-encrypted=%d null=%d errors=%d\n",
		mode, report.Records, report.Updated, report.SkippedEncrypted, report.SkippedNull, report.Errors)
	for _, r := range report.Results {
		if r.Err != "" {
			fmt.Printf("  %s/%s error: %s\n", r.UserID, r.Field, r.Err)
		}
	}
}
