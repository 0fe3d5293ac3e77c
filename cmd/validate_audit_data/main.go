package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwaldner/fdmc/internal/audit"
	"github.com/jwaldner/fdmc/internal/config"
)

// ValidationIssue represents a data consistency issue
type ValidationIssue struct {
	Type        string
	Description string
	Severity    string
	Expected    interface{}
	Actual      interface{}
}

func main() {
	fmt.Println("🔍 Audit Data Validation Tool")
	fmt.Println("=============================")

	dir := config.Load().Audit.Dir
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	// Find all audit JSON files
	auditFiles, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		log.Fatalf("Error finding audit files: %v", err)
	}
	fmt.Printf("Found %d audit files to validate in %s\n\n", len(auditFiles), dir)

	total := 0
	for _, file := range auditFiles {
		fmt.Printf("📋 Analyzing: %s\n", filepath.Base(file))
		issues := validateAuditFile(file)
		total += len(issues)

		if len(issues) == 0 {
			fmt.Println("✅ No issues found")
		} else {
			fmt.Printf("⚠️  Found %d issues:\n", len(issues))
			for _, issue := range issues {
				fmt.Printf("  • [%s] %s: %s\n", issue.Severity, issue.Type, issue.Description)
				if issue.Expected != nil && issue.Actual != nil {
					fmt.Printf("    Expected: %v, Got: %v\n", issue.Expected, issue.Actual)
				}
			}
		}
		fmt.Println()
	}

	if total > 0 {
		os.Exit(1)
	}
}

// validateAuditFile checks one run file for internal consistency
func validateAuditFile(path string) []ValidationIssue {
	data, err := os.ReadFile(path)
	if err != nil {
		return []ValidationIssue{{Type: "READ", Description: err.Error(), Severity: "HIGH"}}
	}
	var f audit.AuditFile
	if err := json.Unmarshal(data, &f); err != nil {
		return []ValidationIssue{{Type: "DECODE", Description: err.Error(), Severity: "HIGH"}}
	}

	var issues []ValidationIssue
	h := f.Header
	if h.RunID == "" || h.Engine == "" {
		issues = append(issues, ValidationIssue{Type: "HEADER", Description: "run id or engine missing", Severity: "HIGH"})
	}
	if strings.HasSuffix(path, ".partial.json") {
		issues = append(issues, ValidationIssue{Type: "UNFINISHED", Description: "run never recorded a result", Severity: "MEDIUM"})
		return issues
	}
	if h.EndTime.Before(h.StartTime) {
		issues = append(issues, ValidationIssue{
			Type: "TIMING", Description: "end time before start time", Severity: "MEDIUM",
			Expected: h.StartTime, Actual: h.EndTime,
		})
	}
	if f.Result == nil && f.Error == "" {
		issues = append(issues, ValidationIssue{Type: "OUTCOME", Description: "neither result nor error recorded", Severity: "HIGH"})
	}

	if result, ok := f.Result.(map[string]interface{}); ok {
		for _, key := range []string{"price", "std_err", "std_dev"} {
			v, present := result[key].(float64)
			if !present {
				continue
			}
			if math.IsNaN(v) || math.IsInf(v, 0) || (key != "price" && v < 0) {
				issues = append(issues, ValidationIssue{Type: "RESULT", Description: key + " out of range", Severity: "HIGH", Actual: v})
			}
		}
	}

	issues = append(issues, validateProgress(f.Entries)...)
	return issues
}

// validateProgress checks that progress snapshots only move forward
func validateProgress(entries []map[string]interface{}) []ValidationIssue {
	var issues []ValidationIssue
	lastDone, lastHits := -1.0, -1.0
	for i, e := range entries {
		snap, ok := e["data"].(map[string]interface{})
		if !ok {
			continue
		}
		done, _ := snap["Done"].(float64)
		hits, _ := snap["OriginHits"].(float64)
		if done <= lastDone {
			issues = append(issues, ValidationIssue{
				Type: "PROGRESS", Description: fmt.Sprintf("entry %d did not advance", i), Severity: "MEDIUM",
				Expected: fmt.Sprintf("> %.0f", lastDone), Actual: done,
			})
		}
		if hits < lastHits {
			issues = append(issues, ValidationIssue{
				Type: "ORIGIN_HITS", Description: fmt.Sprintf("entry %d decreased", i), Severity: "MEDIUM",
				Expected: fmt.Sprintf(">= %.0f", lastHits), Actual: hits,
			})
		}
		lastDone, lastHits = done, hits
	}
	return issues
}
