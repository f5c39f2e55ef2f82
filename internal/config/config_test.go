package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_DefaultsAreValid(t *testing.T) {
	cfg, err := Load("", envMap(nil))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("defaults changed (-want +got):\n%s", diff)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hub.yaml")
	yml := `
server:
  addr: ":9000"
  base_url: "https://hub.example.org"
cms:
  base_url: "https://cms.example.org"
  cache_ttl: 30s
  page_size: 24
email:
  contact_inbox: ["team@example.org"]
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, envMap(map[string]string{
		"HUB_ADDR":            ":9100",
		"HUB_SLOW_QUERY_MS":   "75",
		"HUB_CONTACT_INBOX":   "a@example.org, b@example.org ,",
		"HUB_OUTBOX_ENABLED":  "false",
		"HUB_CMS_TOKEN":       "tok",
		"HUB_TRUSTED_ORIGINS": "hub.example.org",
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Addr != ":9100" {
		t.Errorf("env should override file: Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.BaseURL != "https://hub.example.org" || cfg.CMS.PageSize != 24 || cfg.CMS.CacheTTL != 30*time.Second {
		t.Errorf("file values lost: %+v %+v", cfg.Server, cfg.CMS)
	}
	if cfg.Database.SlowQuery != 75*time.Millisecond {
		t.Errorf("SlowQuery = %v", cfg.Database.SlowQuery)
	}
	if diff := cmp.Diff([]string{"a@example.org", "b@example.org"}, cfg.Email.ContactInbox); diff != "" {
		t.Errorf("ContactInbox (-want +got):\n%s", diff)
	}
	if cfg.Outbox.Enabled || cfg.CMS.Token != "tok" || cfg.Log.Level != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Database.Path != "investhub.db" {
		t.Errorf("untouched defaults must survive: %q", cfg.Database.Path)
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]struct {
		env  map[string]string
		want string
	}{
		"bad millis":       {map[string]string{"HUB_SLOW_QUERY_MS": "fast"}, "HUB_SLOW_QUERY_MS"},
		"bad bool":         {map[string]string{"HUB_OUTBOX_ENABLED": "sometimes"}, "HUB_OUTBOX_ENABLED"},
		"bad cms url":      {map[string]string{"HUB_CMS_URL": "cms.local"}, "cms.base_url"},
		"short csrf key":   {map[string]string{"HUB_CSRF_KEY": "abcd"}, "csrf_key"},
		"prod needs key":   {map[string]string{"HUB_ENV": "production"}, "csrf_key is required"},
		"bad env":          {map[string]string{"HUB_ENV": "staging"}, "env must be"},
		"bad level":        {map[string]string{"HUB_LOG_LEVEL": "loud"}, "log.level"},
		"bad inbox":        {map[string]string{"HUB_CONTACT_INBOX": "team"}, "contact_inbox"},
		"resend from addr": {map[string]string{"HUB_RESEND_API_KEY": "re_x", "HUB_EMAIL_FROM": "Hub"}, "email.from"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load("", envMap(tc.env))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil)); err == nil {
		t.Error("missing file should fail")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("server: [unclosed"), 0o600)
	if _, err := Load(path, envMap(nil)); err == nil {
		t.Error("malformed YAML should fail")
	}
}

func TestLoad_ProductionWithKey(t *testing.T) {
	cfg, err := Load("", envMap(map[string]string{
		"HUB_ENV":      "production",
		"HUB_CSRF_KEY": strings.Repeat("ab", 32),
	}))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction = false")
	}
}
