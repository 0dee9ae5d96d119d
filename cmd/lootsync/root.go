package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/park285/lootsync/internal/catalog"
	"github.com/park285/lootsync/internal/config"
	"github.com/park285/lootsync/internal/lootlog"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lootsync",
		Short: "Parse raid loot logs and keep every officer's distribution list in sync",
		Long: `lootsync turns uploaded game chat logs into a shared loot list.

Officers connected over WebSocket see uploads and each other's
assignments live; finalized assignments are written to a history log.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(newServeCmd(), newParseCmd())
	return cmd
}

// buildParser loads the item catalog and rule table described by cfg.
func buildParser(ctx context.Context, cfg *config.AppConfig) (*lootlog.Parser, *catalog.Catalog, error) {
	fields := catalog.DefaultFields
	if cfg.CatalogFields != "" {
		f, err := catalog.ParseFieldMap(cfg.CatalogFields)
		if err != nil {
			return nil, nil, fmt.Errorf("CATALOG_FIELDS: %w", err)
		}
		fields = f
	}
	fetcher := catalog.NewFetcher(catalog.WithTimeout(time.Duration(cfg.CatalogFetchTimeoutS) * time.Second))
	cat := catalog.Load(ctx, cfg.CatalogSource, fields, fetcher)

	rules, err := lootlog.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loot rules: %w", err)
	}
	return lootlog.NewParser(rules, cat, lootlog.WithAllowlist(cfg.LooterAllowlist)), cat, nil
}

// originHosts turns ALLOWED_ORIGINS entries into websocket origin patterns,
// which match on host only.
func originHosts(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
