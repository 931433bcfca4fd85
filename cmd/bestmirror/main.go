package main

import (
	"log"

	"github.com/MrSnakeDoc/bestmirror/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ bestmirror failed: %v", err)
	}
}
