package main

import (
	"context"
	"fmt"
	"log"
	"os"

	authservice "carpool-safety/internal/auth-service"
	"carpool-safety/internal/config"
	"carpool-safety/internal/mylogger"
	safetyservice "carpool-safety/internal/safety-service"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: app <safety-service|auth-service>")
		os.Exit(1)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mylog, err := mylogger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "safety-service":
		if err := safetyservice.Execute(ctx, mylog, cfg); err != nil {
			mylog.Error("safety service exited", err)
			os.Exit(1)
		}
	case "auth-service":
		if err := authservice.Execute(ctx, mylog, cfg); err != nil {
			mylog.Error("auth service exited", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown service %q\n", os.Args[1])
		os.Exit(1)
	}
}
