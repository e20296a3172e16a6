// Command searchcli runs a single paper search against the live
// collaborators and prints the response. Intended for local testing;
// it needs AWS credentials and the table environment variables.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dante-labs/paper-search/internal/app"
	"github.com/dante-labs/paper-search/pkg/api"
	"github.com/dante-labs/paper-search/pkg/observability"
)

func main() {
	searchContext := flag.String("context", "", "research context to search for")
	k := flag.Int("k", 10, "number of results to return")
	flag.Parse()

	if *searchContext == "" {
		fmt.Fprintln(os.Stderr, "usage: searchcli -context \"...\" [-k N]")
		os.Exit(2)
	}

	ctx := context.Background()
	container, err := app.Build(ctx, observability.NewStandardLogger("searchcli"))
	if err != nil {
		log.Fatalf("Failed to build service: %v", err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"context": *searchContext,
		"k":       *k,
	})
	if err != nil {
		log.Fatalf("Failed to encode payload: %v", err)
	}

	response := container.Handler.Handle(ctx, api.RequestEvent{
		Body: string(payload),
		RequestContext: api.RequestContext{
			RequestID: "local",
			HTTP:      &api.HTTPRequestContext{SourceIP: "127.0.0.1"},
		},
	})

	fmt.Printf("status: %d\n%s\n", response.StatusCode, response.Body)
	if response.StatusCode != 200 {
		os.Exit(1)
	}
}
