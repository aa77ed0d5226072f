package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
)

func runTenant(c *client, action string, args []string) int {
	switch action {
	case "list":
		return doAndPrint(c, http.MethodGet, "/tenants", nil)

	case "create":
		fs := flag.NewFlagSet("tenant create", flag.ContinueOnError)
		name := fs.String("name", "", "tenant display name")
		tier := fs.String("tier", "free", "tenant tier (free|starter|professional|enterprise)")
		if err := fs.Parse(args); err != nil {
			return exitValidation
		}
		if *name == "" {
			fmt.Fprintln(os.Stderr, "--name is required")
			return exitValidation
		}
		return doAndPrint(c, http.MethodPost, "/tenants", map[string]any{"name": *name, "tier": *tier})

	case "suspend":
		return tenantByID(c, args, func(id string) int {
			return doAndPrint(c, http.MethodPost, "/tenants/"+id+"/suspend", nil)
		})

	case "resume":
		return tenantByID(c, args, func(id string) int {
			return doAndPrint(c, http.MethodPost, "/tenants/"+id+"/resume", nil)
		})

	case "delete":
		return tenantByID(c, args, func(id string) int {
			return doAndPrint(c, http.MethodDelete, "/tenants/"+id, nil)
		})

	default:
		fmt.Fprintln(os.Stderr, usage())
		return exitValidation
	}
}

func tenantByID(c *client, args []string, fn func(id string) int) int {
	fs := flag.NewFlagSet("tenant", flag.ContinueOnError)
	id := fs.String("id", "", "tenant id")
	if err := fs.Parse(args); err != nil {
		return exitValidation
	}
	if *id == "" {
		fmt.Fprintln(os.Stderr, "--id is required")
		return exitValidation
	}
	return fn(*id)
}
