// Package redact masks credentials before URLs and headers reach the logs.
package redact

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/yourorg/clearsign/internal/config"
)

// Config is an alias of config.RedactConfig.
type Config = config.RedactConfig

// URL returns raw with the values of the configured query parameters
// replaced. Unparseable input is returned as the replacement text so it can
// never leak a credential.
func URL(raw string, cfg Config) string {
	u, err := url.Parse(raw)
	if err != nil {
		return replacement(cfg)
	}
	set := toLowerSet(orDefault(cfg.QueryParams, config.DefaultRedactQueryParams))
	if u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	for k, vs := range q {
		if _, ok := set[strings.ToLower(k)]; !ok {
			continue
		}
		repl := make([]string, len(vs))
		for i := range repl {
			repl[i] = replacement(cfg)
		}
		q[k] = repl
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Header flattens h into a map suitable for structured logging, replacing the
// values of the configured header names.
func Header(h http.Header, cfg Config) map[string]string {
	if len(h) == 0 {
		return nil
	}
	set := toLowerSet(orDefault(cfg.Headers, config.DefaultRedactHeaders))
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if _, ok := set[strings.ToLower(k)]; ok {
			out[k] = replacement(cfg)
			continue
		}
		out[k] = strings.Join(vs, ", ")
	}
	return out
}

func replacement(cfg Config) string {
	if cfg.Replacement == "" {
		return config.DefaultRedactReplacement
	}
	return cfg.Replacement
}

func orDefault(items, fallback []string) []string {
	if len(items) == 0 {
		return fallback
	}
	return items
}

func toLowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, v := range items {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}
