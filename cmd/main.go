package main

import (
	"fmt"
	"os"

	"github.com/choiwab/promptsmith/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	addr := a.Cfg.ServerAddr
	a.Log.Info("server listening", "addr", addr)
	if err := a.Run(addr); err != nil {
		a.Log.Error("server failed", "error", err)
		os.Exit(1)
	}
}
