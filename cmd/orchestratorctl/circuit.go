package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
)

func runCircuit(c *client, action string, args []string) int {
	switch action {
	case "list":
		return doAndPrint(c, http.MethodGet, "/circuits", nil)

	case "reset":
		fs := flag.NewFlagSet("circuit reset", flag.ContinueOnError)
		name := fs.String("name", "", "circuit breaker name")
		if err := fs.Parse(args); err != nil {
			return exitValidation
		}
		if *name == "" {
			fmt.Fprintln(os.Stderr, "--name is required")
			return exitValidation
		}
		return doAndPrint(c, http.MethodPost, "/circuits/"+*name+"/reset", nil)

	default:
		fmt.Fprintln(os.Stderr, usage())
		return exitValidation
	}
}
