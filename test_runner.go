package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// packages are tested one at a time so a failing package does not hide the others.
var packages = []string{
	"./pkg/constants",
	"./pkg/logging",
	"./pkg/utils",
	"./pkg/config",
	"./pkg/remap",
	"./pkg/media",
	"./pkg/playlist",
	"./pkg/httpClient",
	"./pkg/staging",
	"./pkg/plex",
	"./pkg/verify",
	"./pkg/metrics",
	"./pkg/pipeline",
	"./pkg/report",
	"./pkg/watch",
	"./cmd/main",
}

func main() {
	fmt.Println("plexsync test suite")
	fmt.Println("===================")

	startTime := time.Now()

	// PLEXSYNC_* settings from the shell would leak into config tests.
	saved := clearPlexsyncEnv()
	defer restoreEnvironment(saved)
	os.Setenv("LOG_LEVEL", "error")

	var failedPackages []string
	totalTests := 0
	passedTests := 0

	for _, pkg := range packages {
		fmt.Printf("Testing package: %s\n", pkg)

		cmd := exec.Command("go", "test", "-count=1", "-v", pkg)
		output, err := cmd.CombinedOutput()
		outputStr := string(output)

		testCount := strings.Count(outputStr, "=== RUN")
		passCount := strings.Count(outputStr, "--- PASS:")
		skipCount := strings.Count(outputStr, "--- SKIP:")

		totalTests += testCount
		passedTests += passCount + skipCount

		if err != nil {
			fmt.Printf("FAILED: %s (%d/%d tests passed)\n", pkg, passCount, testCount)
			failedPackages = append(failedPackages, pkg)

			for _, line := range strings.Split(outputStr, "\n") {
				if strings.Contains(line, "FAIL:") ||
					strings.Contains(line, "_test.go:") ||
					strings.Contains(line, "panic:") {
					fmt.Printf("   %s\n", line)
				}
			}
		} else {
			fmt.Printf("PASSED: %s (%d tests, %d skipped)\n", pkg, testCount, skipCount)
		}
		fmt.Println()
	}

	duration := time.Since(startTime)
	fmt.Println("Test Summary")
	fmt.Println("============")
	fmt.Printf("Total packages: %d\n", len(packages))
	fmt.Printf("Failed packages: %d\n", len(failedPackages))
	fmt.Printf("Total tests: %d\n", totalTests)
	fmt.Printf("Passed tests: %d\n", passedTests)
	fmt.Printf("Duration: %v\n", duration.Round(time.Millisecond))

	if len(failedPackages) > 0 {
		fmt.Println()
		fmt.Println("Failed packages:")
		for _, pkg := range failedPackages {
			fmt.Printf("   - %s\n", pkg)
		}
		os.Exit(1)
	}
	fmt.Println()
	fmt.Println("All tests passed!")
}

func clearPlexsyncEnv() map[string]string {
	saved := map[string]string{"LOG_LEVEL": os.Getenv("LOG_LEVEL")}
	for _, kv := range os.Environ() {
		key, value, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "PLEXSYNC_") {
			saved[key] = value
			os.Unsetenv(key)
		}
	}
	return saved
}

func restoreEnvironment(saved map[string]string) {
	for key, value := range saved {
		if value == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, value)
		}
	}
}
