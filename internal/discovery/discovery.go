// Package discovery finds OpenAPI specs and access-log files by convention
// so the common case needs no flags at all. Resolution priority is always
// explicit flag, then config file, then discovery.
package discovery

import (
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/adylagad/gh-api-graveyard/internal/config"
)

var specNames = []string{
	"openapi.yaml", "openapi.yml",
	"api-spec.yaml", "api-spec.yml",
	"swagger.yaml", "swagger.yml",
	"api.yaml", "api.yml",
}

var specDirs = []string{".", "spec", "specs", "api", "docs", "openapi"}

var logNames = []string{
	"access.jsonl", "access.log",
	"api.jsonl", "api.log",
	"logs.jsonl", "logs.json",
}

var logDirs = []string{".", "logs", "data", "samples"}

// FindSpec returns the first OpenAPI specification found under start, or an
// empty string. Candidate files are sanity-checked for an openapi/swagger
// version key so a stray api.yaml of some other kind is not picked up.
func FindSpec(start string) string {
	for _, dir := range specDirs {
		for _, name := range specNames {
			path := filepath.Join(start, dir, name)
			if !isFile(path) {
				continue
			}
			if looksLikeSpec(path) {
				return path
			}
		}
	}
	return ""
}

// FindLogs returns every candidate log file under start, deduplicated and
// sorted. Besides the well-known names, any *.jsonl or *.jsonl.gz file in
// the search directories qualifies.
func FindLogs(start string) []string {
	seen := make(map[string]bool)
	for _, dir := range logDirs {
		base := filepath.Join(start, dir)
		for _, name := range logNames {
			path := filepath.Join(base, name)
			if isFile(path) {
				seen[path] = true
			}
		}
		for _, pattern := range []string{"*.jsonl", "*.jsonl.gz"} {
			matches, _ := filepath.Glob(filepath.Join(base, pattern))
			for _, m := range matches {
				if isFile(m) {
					seen[m] = true
				}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Resolve determines the spec and log paths for one run: explicit arguments
// win, then config file values, then discovery. Either result may come back
// empty when nothing was found.
func Resolve(specArg, logsArg string, cfg *config.Config, start string) (specPath, logsPath string) {
	specPath = specArg
	if specPath == "" && cfg != nil {
		specPath = cfg.Spec
	}
	if specPath == "" {
		specPath = FindSpec(start)
	}

	logsPath = logsArg
	if logsPath == "" && cfg != nil {
		logsPath = cfg.Logs
	}
	if logsPath == "" {
		if found := FindLogs(start); len(found) > 0 {
			logsPath = found[0]
		}
	}
	return specPath, logsPath
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// looksLikeSpec checks the version key without fully parsing the document.
func looksLikeSpec(path string) bool {
	data, err := os.ReadFile(path) // #nosec G304 - discovered path under start dir
	if err != nil {
		return false
	}
	var head struct {
		OpenAPI string `yaml:"openapi"`
		Swagger string `yaml:"swagger"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return false
	}
	return head.OpenAPI != "" || head.Swagger != ""
}
