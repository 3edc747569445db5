package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// .env is for local runs; CI passes secrets as real environment variables
	_ = godotenv.Load()

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return runStudio(nil)
	}
	switch args[0] {
	case "studio":
		return runStudio(args[1:])
	case "generate":
		return runGenerate(args[1:])
	case "render":
		return runRender(args[1:])
	case "styles":
		return runStyles(args[1:])
	case "publish":
		return runPublish(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printUsage() {
	fmt.Println("reel-studio: quote reels from an idea, a stock clip and a text style")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  studio    interactive studio (default)")
	fmt.Println("  generate  ask the selected provider for one idea")
	fmt.Println("  render    render one reel from a generated, given or hand-written idea")
	fmt.Println("  styles    list text styles")
	fmt.Println("  publish   upload a rendered reel to YouTube")
	fmt.Println("  doctor    check tools, credentials and directories")
	fmt.Println()
	fmt.Println("All commands take --config <path> (default config.yaml).")
	fmt.Println("Secrets come from the environment or .env: GROQ_API_KEY, GEMINI_API_KEY,")
	fmt.Println("PEXELS_API_KEY, YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, YOUTUBE_REFRESH_TOKEN.")
}
