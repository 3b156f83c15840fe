// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	apperrors "marketplace-workers/internal/common/errors"
	"marketplace-workers/internal/common/validation"
	hirebid "marketplace-workers/internal/workers/bidding/hire-bid"
	listjobbids "marketplace-workers/internal/workers/bidding/list-job-bids"
	queryworkerbids "marketplace-workers/internal/workers/bidding/query-worker-bids"
	submitbid "marketplace-workers/internal/workers/bidding/submit-bid"
	"marketplace-workers/pkg/registry"
)

const defaultRegistryPath = "pkg/registry/activity-registry.json"

// workerTaskTypes are the task types the worker manager can subscribe to.
var workerTaskTypes = []string{
	submitbid.TaskType,
	listjobbids.TaskType,
	hirebid.TaskType,
	queryworkerbids.TaskType,
}

func main() {
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)

	updatePath := updateCmd.String("path", defaultRegistryPath, "Path to registry file")
	idUpdate := updateCmd.String("id", "", "Activity ID to update")
	field := updateCmd.String("field", "", "Field to update (status, version, timeout, retries)")
	value := updateCmd.String("value", "", "New value for the field")

	validatePath := validateCmd.String("path", defaultRegistryPath, "Path to registry file")
	listPath := listCmd.String("path", defaultRegistryPath, "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "update":
		_ = updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateActivity(*updatePath, *idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating activity: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated activity %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		_ = validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(*validatePath)
		if err != nil {
			fmt.Printf("Failed to load registry: %v\n", err)
			os.Exit(1)
		}
		problems := checkRegistry(reg)
		if len(problems) > 0 {
			fmt.Println("Registry validation failed:")
			for _, p := range problems {
				fmt.Printf("  - %s\n", p)
			}
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))

	case "list":
		_ = listCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(*listPath)
		if err != nil {
			fmt.Printf("Failed to load registry: %v\n", err)
			os.Exit(1)
		}
		for _, a := range reg.Activities {
			fmt.Printf("%-20s %-12s %-8s timeout=%s retries=%d\n", a.TaskType, a.ImplementationStatus, a.Version, a.Timeout, a.Retries)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

// checkRegistry returns every problem found in reg. An empty result means the
// registry can back the worker manager.
func checkRegistry(reg *registry.ActivityRegistry) []string {
	var problems []string
	if len(reg.Activities) == 0 {
		return []string{"registry contains no activities"}
	}

	ids := make(map[string]bool)
	registered := make(map[string]bool)
	for _, a := range reg.Activities {
		switch {
		case a.ID == "":
			problems = append(problems, "activity missing required field: id")
			continue
		case ids[a.ID]:
			problems = append(problems, fmt.Sprintf("duplicate activity id: %s", a.ID))
		}
		ids[a.ID] = true

		if a.TaskType == "" {
			problems = append(problems, fmt.Sprintf("%s: missing taskType", a.ID))
		}
		registered[a.TaskType] = true

		if _, err := a.TimeoutDuration(); err != nil {
			problems = append(problems, err.Error())
		}
		for _, code := range a.ErrorCodes {
			if _, ok := apperrors.BPMNErrorMapping[apperrors.ErrorCode(code)]; !ok {
				problems = append(problems, fmt.Sprintf("%s: unknown error code %s", a.ID, code))
			}
		}
	}

	for _, tt := range workerTaskTypes {
		if !registered[tt] {
			problems = append(problems, fmt.Sprintf("no activity registered for worker task type %s", tt))
		}
	}

	if _, err := validation.NewValidator(reg); err != nil {
		problems = append(problems, err.Error())
	}

	sort.Strings(problems)
	return problems
}

func updateActivity(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	var target *registry.Activity
	for i := range reg.Activities {
		if reg.Activities[i].ID == id {
			target = &reg.Activities[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	switch field {
	case "status":
		target.ImplementationStatus = value
	case "version":
		target.Version = value
	case "timeout":
		candidate := *target
		candidate.Timeout = value
		if _, err := candidate.TimeoutDuration(); err != nil {
			return err
		}
		target.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		target.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	reg.LastUpdated = time.Now().Format("2006-01-02")
	return saveRegistry(reg, path)
}

func saveRegistry(reg *registry.ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  update    Update an existing activity's field
  validate  Check the registry against the bidding workers
  list      Print the registered activities
  help      Show this help message

Examples:
  registry-updater update -id hire-bid -field timeout -value 15s
  registry-updater validate -path pkg/registry/activity-registry.json
  registry-updater list`)
}
