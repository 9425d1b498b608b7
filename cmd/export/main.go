// Command export produces a user data-export bundle: the decrypted
// profile, consent record, and recent audit trail, uploaded to object
// storage. Prints a time-limited download URL. The actor token must belong
// to the exported user; exports of someone else's raw data are denied.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/finwise/dataguard/internal/app"
	"github.com/finwise/dataguard/internal/audit"
	"github.com/finwise/dataguard/internal/auth"
	"github.com/finwise/dataguard/internal/common"
	"github.com/finwise/dataguard/internal/config"
	"github.com/finwise/dataguard/internal/flagx"
	"github.com/finwise/dataguard/internal/protect"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	args := flagx.FilterArgs(os.Args[1:], []string{"-token", "-user"})
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	token := fs.String("token", "", "actor token")
	user := fs.String("user", "", "target user id")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("%v", err)
	}
	if *token == "" || *user == "" {
		log.Fatal("-token and -user are required")
	}

	actorID, actorType, err := auth.ParseToken(*token, []byte(cfg.SecretKey))
	if err != nil {
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

	actor := protect.Actor{ID: actorID, Type: audit.ActorType(actorType)}
	url, err := a.Protect.ExportUserData(ctx, actor, *user, protect.Meta{UserAgent: "dataguard-export-cli"})
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Println(url)
}
