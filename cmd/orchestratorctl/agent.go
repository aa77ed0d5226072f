package main

import (
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
)

func runAgent(c *client, action string, args []string) int {
	switch action {
	case "list":
		fs := flag.NewFlagSet("agent list", flag.ContinueOnError)
		tenant := fs.String("tenant", "", "filter by tenant id")
		if err := fs.Parse(args); err != nil {
			return exitValidation
		}
		path := "/agents"
		if *tenant != "" {
			path += "?tenant_id=" + url.QueryEscape(*tenant)
		}
		return doAndPrint(c, http.MethodGet, path, nil)

	case "create":
		fs := flag.NewFlagSet("agent create", flag.ContinueOnError)
		tenant := fs.String("tenant", "", "owning tenant id")
		bp := fs.String("blueprint", "", "blueprint name")
		maxIterations := fs.Int("max-iterations", 0, "overlay: max iterations (0 = blueprint default)")
		timeoutSeconds := fs.Int("timeout-seconds", 0, "overlay: timeout seconds (0 = blueprint default)")
		requireApproval := fs.Bool("require-human-approval", false, "overlay: force human approval gating on")
		if err := fs.Parse(args); err != nil {
			return exitValidation
		}
		if *tenant == "" || *bp == "" {
			fmt.Fprintln(os.Stderr, "--tenant and --blueprint are required")
			return exitValidation
		}
		return doAndPrint(c, http.MethodPost, "/agents", map[string]any{
			"tenant_id": *tenant,
			"blueprint": *bp,
			"overlay": map[string]any{
				"MaxIterations":        *maxIterations,
				"TimeoutSeconds":       *timeoutSeconds,
				"RequireHumanApproval": *requireApproval,
			},
		})

	case "delete":
		fs := flag.NewFlagSet("agent delete", flag.ContinueOnError)
		id := fs.String("id", "", "agent id")
		if err := fs.Parse(args); err != nil {
			return exitValidation
		}
		if *id == "" {
			fmt.Fprintln(os.Stderr, "--id is required")
			return exitValidation
		}
		return doAndPrint(c, http.MethodDelete, "/agents/"+*id, nil)

	default:
		fmt.Fprintln(os.Stderr, usage())
		return exitValidation
	}
}

func runBlueprint(c *client, action string, args []string) int {
	switch action {
	case "list":
		return doAndPrint(c, http.MethodGet, "/blueprints", nil)
	default:
		fmt.Fprintln(os.Stderr, usage())
		return exitValidation
	}
}
