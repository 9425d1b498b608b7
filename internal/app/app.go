// Package app wires the data-protection components together for the cmd
// binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/finwise/dataguard/internal/audit"
	"github.com/finwise/dataguard/internal/codec"
	"github.com/finwise/dataguard/internal/config"
	"github.com/finwise/dataguard/internal/consent"
	"github.com/finwise/dataguard/internal/cryptox"
	"github.com/finwise/dataguard/internal/export"
	"github.com/finwise/dataguard/internal/logging"
	"github.com/finwise/dataguard/internal/mask"
	"github.com/finwise/dataguard/internal/obs"
	"github.com/finwise/dataguard/internal/policy"
	"github.com/finwise/dataguard/internal/protect"
	"github.com/finwise/dataguard/internal/records"
	"github.com/finwise/dataguard/internal/store"
)

// App holds the wired components. The cmd binaries pick what they need.
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Logger   logging.Logger
	Cipher   *cryptox.Cipher
	Codec    *codec.Codec
	Policy   *policy.Policy
	Profiles records.Repository
	Consents *consent.Service
	Audit    *audit.Service
	Exporter *export.S3Exporter
	Protect  *protect.Service
}

// New builds the application graph: database (with migrations applied),
// cipher from the supplied key, and the services on top.
func New(ctx context.Context, cfg *config.Config, key []byte) (*App, error) {
	logger := logging.NewDefault()
	safe := mask.NewSafeLogger(logger)

	obs.Init()

	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := store.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	cipher, err := cryptox.NewCipher(key)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var codecOpts []codec.Option
	if cfg.BindFieldAAD {
		codecOpts = append(codecOpts, codec.WithFieldAAD())
	}
	cdc := codec.New(cipher, codecOpts...)

	pol := policy.New(policy.NewPostgresRoleStore(db), cfg.RootPrincipal, safe)
	profiles := records.NewPostgresRepository(db)
	consents := consent.NewService(db)
	auditSvc := audit.NewService(audit.NewPostgresRepository(db))
	exporter := export.NewS3Exporter(export.S3Config{
		RootUser:     cfg.S3RootUser,
		RootPassword: cfg.S3RootPassword,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})

	prot := protect.NewService(pol, cdc, profiles, consents, auditSvc, exporter, logger)

	return &App{
		Config:   cfg,
		DB:       db,
		Logger:   safe,
		Cipher:   cipher,
		Codec:    cdc,
		Policy:   pol,
		Profiles: profiles,
		Consents: consents,
		Audit:    auditSvc,
		Exporter: exporter,
		Protect:  prot,
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}
