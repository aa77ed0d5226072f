package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
)

func runHITL(c *client, action string, args []string) int {
	switch action {
	case "list":
		fs := flag.NewFlagSet("hitl list", flag.ContinueOnError)
		tenant := fs.String("tenant", "", "filter by tenant id")
		priority := fs.String("priority", "", "filter by priority (critical|high|medium|low)")
		reqType := fs.String("type", "", "filter by request type (approval|feedback|review)")
		if err := fs.Parse(args); err != nil {
			return exitValidation
		}
		q := url.Values{}
		if *tenant != "" {
			q.Set("tenant_id", *tenant)
		}
		if *priority != "" {
			q.Set("priority", *priority)
		}
		if *reqType != "" {
			q.Set("type", *reqType)
		}
		path := "/hitl/requests"
		if encoded := q.Encode(); encoded != "" {
			path += "?" + encoded
		}
		return doAndPrint(c, http.MethodGet, path, nil)

	case "assign":
		fs := flag.NewFlagSet("hitl assign", flag.ContinueOnError)
		id := fs.String("id", "", "request id")
		reviewer := fs.String("reviewer", "", "reviewer id")
		if err := fs.Parse(args); err != nil {
			return exitValidation
		}
		if *id == "" || *reviewer == "" {
			fmt.Fprintln(os.Stderr, "--id and --reviewer are required")
			return exitValidation
		}
		return doAndPrint(c, http.MethodPost, "/hitl/requests/"+*id+"/assign", map[string]any{"reviewer_id": *reviewer})

	case "respond":
		fs := flag.NewFlagSet("hitl respond", flag.ContinueOnError)
		id := fs.String("id", "", "request id")
		decision := fs.String("decision", "", "approve|reject|edit|answer")
		reviewer := fs.String("reviewer", "", "responding reviewer id")
		payloadJSON := fs.String("payload", "", "JSON-encoded response payload")
		if err := fs.Parse(args); err != nil {
			return exitValidation
		}
		if *id == "" || *decision == "" {
			fmt.Fprintln(os.Stderr, "--id and --decision are required")
			return exitValidation
		}
		var payload map[string]any
		if *payloadJSON != "" {
			if err := json.Unmarshal([]byte(*payloadJSON), &payload); err != nil {
				fmt.Fprintln(os.Stderr, "invalid --payload JSON:", err)
				return exitValidation
			}
		}
		return doAndPrint(c, http.MethodPost, "/hitl/requests/"+*id+"/respond", map[string]any{
			"RequestID": *id,
			"Decision":  *decision,
			"Reviewer":  *reviewer,
			"Payload":   payload,
		})

	case "cancel":
		fs := flag.NewFlagSet("hitl cancel", flag.ContinueOnError)
		id := fs.String("id", "", "request id")
		reason := fs.String("reason", "", "cancellation reason")
		if err := fs.Parse(args); err != nil {
			return exitValidation
		}
		if *id == "" {
			fmt.Fprintln(os.Stderr, "--id is required")
			return exitValidation
		}
		return doAndPrint(c, http.MethodPost, "/hitl/requests/"+*id+"/cancel", map[string]any{"reason": *reason})

	default:
		fmt.Fprintln(os.Stderr, usage())
		return exitValidation
	}
}
