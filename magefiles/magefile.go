//go:build mage

// Package main contains Mage build targets for hidden-gems developer tooling.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories the pipeline expects.
var projectDirs = []string{
	"content/data",
	"content/data/cache",
	"content/posts",
	".secrets",
}

// Init creates the project directory structure for the pipeline.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "hidden-gems"
	cmdPkg  = "./cmd/hidden-gems"
)

// binPath is the CLI binary built by Build.
var binPath = filepath.Join(binDir, binName)

// Build compiles the CLI binary into bin/. The version is taken from
// `git describe` when available.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	ldflags := "-X main.version=" + version
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", binPath, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", binPath, version)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Vet runs go vet over every package.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Check runs Vet and Test.
func Check() {
	mg.SerialDeps(Vet, Test)
}

// postsDir is where the pick command writes posts by default.
const postsDir = "content/posts"

// Stats prints Go production/test line counts and a per-month summary of
// the posts in content/posts: picks, fallback posts and words.
func Stats() error {
	prod, tests, err := goLines(".")
	if err != nil {
		return err
	}
	fmt.Printf("Lines of code (Go, production): %d\n", prod)
	fmt.Printf("Lines of code (Go, tests):      %d\n", tests)

	months, err := postsByMonth(postsDir)
	if err != nil {
		return err
	}
	if len(months) == 0 {
		fmt.Printf("No posts in %s yet.\n", postsDir)
		return nil
	}
	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("\n%-8s  %5s  %8s  %7s\n", "Month", "Picks", "Fallback", "Words")
	fmt.Println(strings.Repeat("-", 34))
	for _, k := range keys {
		m := months[k]
		fmt.Printf("%-8s  %5d  %8d  %7d\n", k, m.picks, m.fallbacks, m.words)
	}
	return nil
}

// goLines counts non-blank lines in production and test Go files, skipping
// directories that start with "_" or ".".
func goLines(root string) (prod, tests int, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		n := 0
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				n++
			}
		}
		if strings.HasSuffix(path, "_test.go") {
			tests += n
		} else {
			prod += n
		}
		return nil
	})
	return prod, tests, err
}

type monthStats struct {
	picks, fallbacks, words int
}

// postsByMonth groups generated posts (<YYYY-MM-DD-HHMMSS>-auto.md) by the
// month in their file name. A missing directory has no posts.
func postsByMonth(dir string) (map[string]*monthStats, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	months := make(map[string]*monthStats)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, "-auto.md") || len(name) < len("2006-01") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		month := name[:len("2006-01")]
		m := months[month]
		if m == nil {
			m = &monthStats{}
			months[month] = m
		}
		if strings.Contains(string(data), "\nSlug: fallback-") {
			m.fallbacks++
		} else {
			m.picks++
		}
		m.words += len(strings.Fields(string(data)))
	}
	return months, nil
}
