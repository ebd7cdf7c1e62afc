package config

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// StateIgnorePattern is the .gitignore entry for per-user UI state kept in a
// project's .menuadmin directory. config.yaml next to it stays tracked.
const StateIgnorePattern = DirName + "/tree-state.json"

// EnsureStateIgnored makes sure the project's .gitignore excludes the UI
// state file, creating .gitignore when needed. It is idempotent.
func EnsureStateIgnored(projectDir string) error {
	if projectDir == "" {
		var err error
		projectDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	gitignorePath := filepath.Join(projectDir, ".gitignore")
	covered, err := stateIgnored(gitignorePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if covered {
		return nil
	}
	return appendToGitignore(gitignorePath, StateIgnorePattern)
}

// stateIgnored reports whether any line of the file already covers the
// state file, either directly or through the whole .menuadmin directory.
func stateIgnored(gitignorePath string) (bool, error) {
	file, err := os.Open(gitignorePath)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if coversState(line) {
			return true, nil
		}
	}
	return false, scanner.Err()
}

func coversState(line string) bool {
	normalized := strings.TrimPrefix(line, "/")
	switch normalized {
	case DirName, DirName + "/", DirName + "/*", DirName + "/**", DirName + "/**/*",
		StateIgnorePattern, "tree-state.json", "**/tree-state.json":
		return true
	}
	if ok, _ := path.Match(normalized, StateIgnorePattern); ok {
		return true
	}
	return false
}

func appendToGitignore(gitignorePath, pattern string) error {
	content, err := os.ReadFile(gitignorePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	file, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	var toWrite string
	if len(content) > 0 {
		if content[len(content)-1] != '\n' {
			toWrite = "\n"
		}
		toWrite += "\n"
	}
	toWrite += "# menuadmin UI state\n" + pattern + "\n"

	_, err = file.WriteString(toWrite)
	return err
}
