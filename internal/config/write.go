package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// configFilePermissions is the standard permission mode for config files.
// Owner read/write, group and others read-only.
const configFilePermissions = 0o644

// configDirPermissions is the standard permission mode for config directories.
const configDirPermissions = 0o755

// configTemplate is the config file content written the first time a key
// is set. Every option is present as a commented-out default so users can
// discover them without reading docs. Later edits are line-level, so user
// changes to the template survive.
const configTemplate = `# drivetree configuration

# Log verbosity: debug, info, warn, error
# [logging]
# log_level = "warn"
# log_format = "auto"

# Requests per second sent to the server; 0 means unlimited.
# [network]
# timeout = "30s"
# max_rps = 0

# Defaults live in the platform data directory.
# [paths]
# token_file = ""
# state_db = ""

# Recursive listing limits for 'drivetree tree'.
# [tree]
# concurrency = 4
# max_depth = 0
`

// SetKey sets section.key to value in the config file at path, creating
// the file from the default template if it does not exist. An existing
// key line is replaced in place; otherwise the key is inserted under the
// section header, and a missing section is appended. The write is atomic.
func SetKey(path, section, key, value string) error {
	if !knownKey(section, key) {
		return unknownKeyError([]string{section, key})
	}

	slog.Info("setting config key",
		"path", path,
		"section", section,
		"key", key,
	)

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading config file: %w", err)
		}

		data = []byte(configTemplate)
	}

	lines := strings.Split(string(data), "\n")
	formatted, err := formatTOMLValue(section+"."+key, value)
	if err != nil {
		return err
	}

	newLine := fmt.Sprintf("%s = %s", key, formatted)

	headerLine := findSectionHeader(lines, section)
	if headerLine < 0 {
		content := strings.Join(lines, "\n")
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}

		content += fmt.Sprintf("\n[%s]\n%s\n", section, newLine)

		return atomicWriteFile(path, []byte(content))
	}

	lines = setKeyInSection(lines, headerLine, key, newLine)

	return atomicWriteFile(path, []byte(strings.Join(lines, "\n")))
}

func knownKey(section, key string) bool {
	for _, k := range knownKeys[section] {
		if k == key {
			return true
		}
	}

	return false
}

// findSectionHeader returns the line index of an uncommented [section]
// header, or -1.
func findSectionHeader(lines []string, section string) int {
	header := "[" + section + "]"

	for i, line := range lines {
		if strings.TrimSpace(line) == header {
			return i
		}
	}

	return -1
}

// findSectionEnd returns the index of the next section header after
// headerLine, or len(lines).
func findSectionEnd(lines []string, headerLine int) int {
	for i := headerLine + 1; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "[") {
			return i
		}
	}

	return len(lines)
}

// setKeyInSection either replaces an existing key line or inserts a new
// one after the section header.
func setKeyInSection(lines []string, headerLine int, key, newLine string) []string {
	sectionEnd := findSectionEnd(lines, headerLine)
	keyPrefix := key + " "
	keyPrefixEq := key + "="

	for i := headerLine + 1; i < sectionEnd; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, keyPrefix) || strings.HasPrefix(trimmed, keyPrefixEq) {
			lines[i] = newLine

			return lines
		}
	}

	inserted := make([]string, 0, len(lines)+1)
	inserted = append(inserted, lines[:headerLine+1]...)
	inserted = append(inserted, newLine)
	inserted = append(inserted, lines[headerLine+1:]...)

	return inserted
}

// intKeys are the keys whose TOML values are integers.
var intKeys = map[string]bool{
	"network.max_rps":  true,
	"tree.concurrency": true,
	"tree.max_depth":   true,
}

// formatTOMLValue writes integer keys bare and quotes everything else.
func formatTOMLValue(fullKey, value string) (string, error) {
	if !intKeys[fullKey] {
		return strconv.Quote(value), nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("config key %q must be an integer: %w", fullKey, err)
	}

	return strconv.Itoa(n), nil
}

// atomicWriteFile writes data to a temporary file in the same directory as
// path, then renames it to the target path. Parent directories are created
// as needed.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
