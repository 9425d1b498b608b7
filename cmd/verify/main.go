// Command verify reports encryption coverage over stored financial
// profiles and confirms the configured key opens every stored envelope.
// It is strictly read-only and never prints decrypted values.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/finwise/dataguard/internal/app"
	"github.com/finwise/dataguard/internal/common"
	"github.com/finwise/dataguard/internal/config"
	"github.com/finwise/dataguard/internal/sweep"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

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

	report, err := sweep.NewVerify(a.Profiles, a.Cipher, a.Logger).Run(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Printf("records=%d fields=%d encrypted=%d legacy=%d null=%d ratio=%.2f\n",
		report.Records, report.FieldsTotal, report.Encrypted, report.Legacy, report.Null,
		report.EncryptedRatio())
	if report.DecryptFailures > 0 {
		fmt.Printf("decrypt failures: %d (wrong key or corrupted data)\n", report.DecryptFailures)
		for _, ref := range report.FailedFields {
			fmt.Printf("  %s\n", ref)
		}
	}
}
