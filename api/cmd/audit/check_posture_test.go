package main

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strictManifest(t *testing.T) SecurityManifest {
	t.Helper()
	raw, err := os.ReadFile("../../configs/security_strict.json")
	require.NoError(t, err)

	var m SecurityManifest
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func envFrom(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func failures(findings []finding) []string {
	var out []string
	for _, f := range findings {
		if !f.Pass {
			out = append(out, f.Message)
		}
	}
	return out
}

func TestAudit_HardenedEnvironmentPasses(t *testing.T) {
	env := envFrom(map[string]string{
		"ENCRYPTION_KEY":  strings.Repeat("k", 64),
		"DOWNLOAD_SECRET": strings.Repeat("d", 32),
		"JWT_SECRET":      strings.Repeat("j", 48),
		"ENCRYPTION_SALT": "deployment-7f3a",
		"REPORTS_DIR":     "/srv/reports",
		"DATABASE_URL":    "postgres://vault:s3cret@db/vault",
	})
	stat := func(string) (os.FileMode, error) { return 0o750, nil }

	assert.Empty(t, failures(audit(strictManifest(t), env, stat)))
}

func TestAudit_FlagsWeakPosture(t *testing.T) {
	env := envFrom(map[string]string{
		"ENCRYPTION_KEY":     "short",
		"JWT_SECRET":         strings.Repeat("j", 48),
		"DOWNLOAD_SECRET":    strings.Repeat("d", 32),
		"DOWNLOAD_TOKEN_TTL": "48h",
		"DATABASE_URL":       "postgres://vault:dev_password@db/vault",
	})
	stat := func(string) (os.FileMode, error) { return 0o777, nil }

	got := failures(audit(strictManifest(t), env, stat))

	joined := strings.Join(got, "\n")
	assert.Contains(t, joined, "ENCRYPTION_KEY is too short")
	assert.Contains(t, joined, "ENCRYPTION_SALT")
	assert.Contains(t, joined, "REPORTS_DIR mode is 0777")
	assert.Contains(t, joined, "DOWNLOAD_TOKEN_TTL of 48h0m0s exceeds")
	assert.Contains(t, joined, "default development credentials")
	assert.Len(t, got, 5)
}

func TestAudit_MissingReportsDir(t *testing.T) {
	env := envFrom(map[string]string{"REPORTS_DIR": "/nowhere"})
	stat := func(string) (os.FileMode, error) { return 0, errors.New("stat /nowhere: no such file or directory") }

	joined := strings.Join(failures(audit(strictManifest(t), env, stat)), "\n")
	assert.Contains(t, joined, `REPORTS_DIR "/nowhere" is not accessible`)
}
