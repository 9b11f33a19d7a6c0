package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	// Import for side effects: register every ModelClient adapter via init().
	_ "github.com/modelcouncil/council/internal/modelclients/anthropic"
	_ "github.com/modelcouncil/council/internal/modelclients/bedrock"
	_ "github.com/modelcouncil/council/internal/modelclients/openai"
	_ "github.com/modelcouncil/council/internal/modelclients/replicate"
	_ "github.com/modelcouncil/council/internal/modelclients/testclient"
)

var version = "dev"

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("council"),
		kong.Description("Multi-model council deliberation pipeline"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.Exit(func(code int) {
			// Kong uses 0 for success, non-zero for parse/validation errors;
			// parse errors should exit 2 (usage error).
			if code != 0 {
				os.Exit(2)
			}
			os.Exit(0)
		}),
	)

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
