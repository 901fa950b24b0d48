package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/structa/knowledge-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		a.Log.Info("Shutting down...")
		a.Close()
		os.Exit(0)
	}()

	if err := a.Run(); err != nil {
		a.Log.Error("Server failed", "error", err)
	}
}
