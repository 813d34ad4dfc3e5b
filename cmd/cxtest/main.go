package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// Golden is the recorded compiler behaviour for one source file.
type Golden struct {
	SourceHash string    `json:"source_hash"`
	Args       []string  `json:"args,omitempty"`
	Compile    Execution `json:"compile"`
}

type FileTestResult struct {
	File    string     `json:"file"`
	Status  string     `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string     `json:"message,omitempty"`
	Diff    string     `json:"diff,omitempty"`
	Target  *Execution `json:"target,omitempty"`
}

var (
	targetCompiler = flag.String("target-compiler", "./cxc", "Path to the compiler to test.")
	targetArgs     = flag.String("target-args", "", "Extra arguments for the compiler (space-separated).")
	generateGolden = flag.String("generate-golden", "", "Generate a golden .json file for a given source file.")
	testFiles      = flag.String("test-files", "examples/*.cx examples/*.cxs", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each compiler invocation.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	if *generateGolden != "" {
		if err := writeGolden(*generateGolden); err != nil {
			log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
		}
		return
	}

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	results := runSuite(files, strings.Fields(*skipFiles))
	printSummary(os.Stdout, results)
	if err := writeJSONReport(results); err != nil {
		log.Printf("%s[WARN]%s %v\n", cYellow, cNone, err)
	}
	for _, r := range results {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			os.Exit(1)
		}
	}
}

func getJSONPath(sourceFile string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func expandGlobPatterns(patterns string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range strings.Fields(patterns) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func executeCommand(ctx context.Context, command string, args ...string) Execution {
	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		result.TimedOut = true
		result.ExitCode = -1
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	case err != nil:
		result.ExitCode = -2
		result.Stderr += "\nExecution error: " + err.Error()
	}
	return result
}

func compile(sourceFile string) (Execution, []string) {
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	args := append(strings.Fields(*targetArgs), sourceFile)
	return executeCommand(ctx, *targetCompiler, args...), args
}

func writeGolden(sourceFile string) error {
	log.Printf("Generating golden file for %s...\n", sourceFile)
	fileHash, err := hashFile(sourceFile)
	if err != nil {
		return fmt.Errorf("could not hash source file %s: %w", sourceFile, err)
	}
	run, args := compile(sourceFile)
	if run.TimedOut {
		return fmt.Errorf("compiler timed out on %s", sourceFile)
	}
	run.Duration = 0

	data, err := json.MarshalIndent(Golden{SourceHash: fileHash, Args: args[:len(args)-1], Compile: run}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal golden data to JSON: %w", err)
	}
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", *jsonDir, err)
		}
	}
	goldenFile := getJSONPath(sourceFile)
	if err := os.WriteFile(goldenFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file %s: %w", goldenFile, err)
	}
	log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, goldenFile)
	return nil
}

func runSuite(files, skip []string) []*FileTestResult {
	skipList := make(map[string]bool)
	for _, f := range skip {
		skipList[f] = true
	}

	type task struct{ file, hash string }
	tasks := make(chan task, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < max(*jobs, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				resultsChan <- testFile(t.file, t.hash)
			}
		}()
	}

	// Feed the tasks channel, skipping files with identical content
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- task{file, fileHash}
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var results []*FileTestResult
	for r := range resultsChan {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	return results
}

func testFile(file, fileHash string) *FileTestResult {
	goldenFile := getJSONPath(file)
	data, err := os.ReadFile(goldenFile)
	if err != nil {
		return &FileTestResult{File: file, Status: "SKIP", Message: "Cannot test without a corresponding .json golden file"}
	}
	var golden Golden
	if err := json.Unmarshal(data, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}
	if *verbose {
		log.Printf("[%s] comparing against %s", file, goldenFile)
	}

	target, _ := compile(file)
	result := compareExecution(file, &golden, &target)
	if result.Status == "PASS" && golden.SourceHash != fileHash {
		result.Message += fmt.Sprintf(" (stale golden: recorded hash %s, source is %s)", golden.SourceHash, fileHash)
	}
	return result
}

func compareExecution(file string, golden *Golden, target *Execution) *FileTestResult {
	var diffs strings.Builder
	if target.TimedOut {
		fmt.Fprintf(&diffs, "Compiler timed out after %s\n", *timeout)
	}
	if golden.Compile.ExitCode != target.ExitCode {
		fmt.Fprintf(&diffs, "Exit Code mismatch:\n  - Golden: %d\n  - Target: %d\n", golden.Compile.ExitCode, target.ExitCode)
	}
	if d := cmp.Diff(golden.Compile.Stdout, target.Stdout); d != "" {
		fmt.Fprintf(&diffs, "STDOUT mismatch (-golden +target):\n%s", d)
	}
	if d := cmp.Diff(golden.Compile.Stderr, target.Stderr); d != "" {
		fmt.Fprintf(&diffs, "STDERR mismatch (-golden +target):\n%s", d)
	}
	if diffs.Len() > 0 {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Compiler output or exit code mismatch", Diff: diffs.String(), Target: target}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "Output matches golden file", Target: target}
}

func printSummary(w io.Writer, results []*FileTestResult) {
	var passed, failed, skipped, errored int
	for _, r := range results {
		color := cNone
		switch r.Status {
		case "PASS":
			passed++
			color = cGreen
		case "FAIL":
			failed++
			color = cRed
		case "SKIP":
			skipped++
			color = cYellow
		case "ERROR":
			errored++
			color = cRed
		}
		if r.Status != "PASS" || *verbose {
			fmt.Fprintf(w, "%s[%s]%s %s: %s\n", color, r.Status, cNone, r.File, r.Message)
		}
		if r.Diff != "" {
			fmt.Fprintf(w, "%s\n", r.Diff)
		}
	}
	fmt.Fprintf(w, "\n%s----------------------%s\n", cCyan, cNone)
	fmt.Fprintf(w, "%d passed, %d failed, %d skipped, %d errored, %d total\n", passed, failed, skipped, errored, len(results))
}

func writeJSONReport(results []*FileTestResult) error {
	report := make(map[string]*FileTestResult, len(results))
	for _, r := range results {
		report[r.File] = r
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal test report: %w", err)
	}
	outputFile := *outputJSON
	if *jsonDir != "" {
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}
	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write test report %s: %w", outputFile, err)
	}
	return nil
}
