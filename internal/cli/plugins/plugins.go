// Package plugins provides exec-based plugin support for replaycheck.
// Plugins are separate binaries named replaycheck-<command> that are
// discovered and executed when an unknown command is invoked.
//
// This follows the same pattern used by kubectl and git for plugins.
package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Prefix is prepended to a command name to form the plugin binary name.
const Prefix = "replaycheck-"

// EnvPluginDir names an extra directory searched before the defaults.
const EnvPluginDir = "REPLAYCHECK_PLUGIN_DIR"

// KnownPlugins lists plugins that have official implementations available.
// These get special error messages describing what they do.
var KnownPlugins = map[string]string{
	"capture": "Runs a replay against a live engine and broker and collects both logs for a suite.",
}

// ErrPluginNotFound is returned when no plugin binary can be located.
var ErrPluginNotFound = errors.New("plugin not found")

// searchDirs returns the plugin directories in search order, PATH excluded.
func searchDirs() []string {
	var dirs []string
	if dir := os.Getenv(EnvPluginDir); dir != "" {
		dirs = append(dirs, dir)
	}
	if execPath, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(execPath))
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(homeDir, ".replaycheck", "plugins"))
	}
	return dirs
}

// FindPlugin searches for a plugin binary named replaycheck-<command>.
// It searches in the following locations in order:
//  1. $REPLAYCHECK_PLUGIN_DIR, when set
//  2. Same directory as the replaycheck binary
//  3. ~/.replaycheck/plugins/
//  4. Anywhere in PATH
//
// Returns the full path to the plugin binary if found.
func FindPlugin(command string) (string, error) {
	if command == "" || strings.ContainsRune(command, filepath.Separator) {
		return "", ErrPluginNotFound
	}
	pluginName := Prefix + command

	for _, dir := range searchDirs() {
		candidate := filepath.Join(dir, pluginName)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(pluginName); err == nil {
		return path, nil
	}

	return "", ErrPluginNotFound
}

// List returns the command names of the plugins found outside PATH,
// sorted and without duplicates.
func List() []string {
	seen := map[string]bool{}
	for _, dir := range searchDirs() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if !strings.HasPrefix(name, Prefix) || len(name) == len(Prefix) {
				continue
			}
			if isExecutable(filepath.Join(dir, name)) {
				seen[strings.TrimPrefix(name, Prefix)] = true
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs a plugin with the given arguments.
// It connects stdin, stdout, and stderr to the plugin process
// and returns the plugin's exit code. The plugin sees the path of the
// invoking binary in REPLAYCHECK_BIN.
func Execute(ctx context.Context, pluginPath string, args []string) int {
	cmd := exec.CommandContext(ctx, pluginPath, args...) // #nosec G204 -- plugin path comes from FindPlugin
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if self, err := os.Executable(); err == nil {
		cmd.Env = append(cmd.Env, "REPLAYCHECK_BIN="+self)
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing plugin: %v\n", err)
		return 2
	}

	return 0
}

// FormatNotFoundError returns a helpful error message when a plugin is not found.
// If the command is a known plugin, includes a description of it.
func FormatNotFoundError(command string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "unknown command %q for \"replaycheck\"\n", command)

	if info, ok := KnownPlugins[command]; ok {
		fmt.Fprintf(&sb, "\n%q is available as a plugin.\n", command)
		sb.WriteString(info)
		sb.WriteString("\n\nInstall the plugin binary as one of:\n")
	} else {
		sb.WriteString("\nIf this is a plugin, install the binary as one of:\n")
	}

	name := Prefix + command
	fmt.Fprintf(&sb, "  - %s in $%s\n", name, EnvPluginDir)
	fmt.Fprintf(&sb, "  - %s in the same directory as replaycheck\n", name)
	fmt.Fprintf(&sb, "  - ~/.replaycheck/plugins/%s\n", name)
	fmt.Fprintf(&sb, "  - %s anywhere in your PATH\n", name)

	sb.WriteString("\nRun 'replaycheck --help' for usage.")

	return sb.String()
}

// isExecutable checks if a regular file exists with an execute bit set.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode()&0o111 != 0
}
