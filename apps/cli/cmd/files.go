package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const featureExt = ".feature"

// collectFiles expands directories into the feature files below them.
// Explicit file arguments are kept in order; directory contents are sorted.
func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if !info.IsDir() {
			if isFeatureFile(arg) {
				files = append(files, arg)
			}
			continue
		}

		var found []string
		err = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && isFeatureFile(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		files = append(files, found...)
	}

	return files, nil
}

func isFeatureFile(path string) bool {
	return filepath.Ext(path) == featureExt
}
