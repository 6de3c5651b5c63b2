package config

import (
	"bufio"
	"errors"
	"os"
	"strings"
)

// LoadDotEnv merges .env-style files into the process environment for local
// development. Variables already set keep precedence, so a developer can
// still override a file entry from the shell. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if err := mergeEnvFile(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func mergeEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := parseEnvLine(scanner.Text())
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		_ = os.Setenv(key, value)
	}
	return scanner.Err()
}

// parseEnvLine handles KEY=VALUE with an optional "export " prefix, quoting
// and trailing comments. Blank lines, comments and lines without "=" are
// dropped.
func parseEnvLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

	key, raw, found := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" {
		return "", "", false
	}
	return key, unquoteEnvValue(raw), true
}

func unquoteEnvValue(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && (raw[0] == '"' || raw[0] == '\'') && raw[len(raw)-1] == raw[0] {
		inner := raw[1 : len(raw)-1]
		if raw[0] == '\'' {
			return inner
		}
		return strings.NewReplacer(
			`\\`, `\`,
			`\n`, "\n",
			`\r`, "\r",
			`\t`, "\t",
			`\"`, `"`,
		).Replace(inner)
	}

	// VALUE # comment
	if index := strings.Index(raw, " #"); index >= 0 {
		raw = raw[:index]
	}
	return strings.TrimSpace(raw)
}
