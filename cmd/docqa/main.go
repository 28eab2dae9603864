// Command docqa answers the same question battery against one document per
// language category and compares the answers side by side.
//
// Run a session over three documents:
//
//	docqa run --foundation en.pdf --indic hi.pdf --international fr.pdf --out table.xlsx
//
// Browse earlier sessions:
//
//	docqa history
//	docqa show <session-id>
//
// API keys are read from the environment (OPENAI_API_KEY, GEMINI_API_KEY by
// default); a .env file in the working directory is loaded first.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
