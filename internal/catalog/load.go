package catalog

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/lootsync/internal/obslog"
)

// IsRemote reports whether source should be fetched over HTTP.
func IsRemote(source string) bool {
	s := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Load reads the catalog from a local path or remote URL. It never fails:
// a missing source or any read error leaves the catalog empty or partial,
// and lookups then resolve to the unknown id.
func Load(ctx context.Context, source string, fields FieldMap, fetcher *Fetcher) *Catalog {
	log := obslog.Named("catalog")
	source = strings.TrimSpace(source)
	if source == "" {
		log.Warn("catalog_source_missing")
		return New()
	}

	var r io.Reader
	if IsRemote(source) {
		if fetcher == nil {
			fetcher = NewFetcher()
		}
		body, err := fetcher.Fetch(ctx, source)
		if err != nil {
			log.Error("catalog_fetch_failed", zap.String("source", source), zap.Error(err))
			return New()
		}
		r = bytes.NewReader(body)
	} else {
		f, err := os.Open(source)
		if err != nil {
			log.Error("catalog_open_failed", zap.String("source", source), zap.Error(err))
			return New()
		}
		defer f.Close()
		r = f
	}

	c, st, err := Parse(r, fields)
	if err != nil {
		log.Warn("catalog_partial", zap.String("source", source), zap.Int("loaded", st.Loaded), zap.Error(err))
		return c
	}
	log.Info("catalog_loaded",
		zap.String("source", source),
		zap.Int("items", c.Len()),
		zap.Int("lines", st.Lines),
		zap.Int("skipped", st.Skipped),
	)
	return c
}
