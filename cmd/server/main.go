/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the time-tracking server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration (.env / env vars)
  2. Parse command-line flags (flags win over env)
  3. Initialize SQLite store and seed default rates
  4. Wire the domain services and the API handler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: from PORT env, else 8080)
  -db      SQLite database path (default: from DB_PATH env)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/tracking.db"

  # Run with in-memory database
  ./server -db=":memory:"

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bazdi/zeiterfassung1337-sub000/api"
	"github.com/Bazdi/zeiterfassung1337-sub000/clock"
	"github.com/Bazdi/zeiterfassung1337-sub000/config"
	"github.com/Bazdi/zeiterfassung1337-sub000/payroll"
	"github.com/Bazdi/zeiterfassung1337-sub000/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Flags override environment values
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Seed the default rate set; existing codes are left untouched.
	if err := payroll.SeedDefaultRates(context.Background(), store); err != nil {
		log.Fatalf("Failed to seed default rates: %v", err)
	}

	// Wire domain services
	engine := clock.New(store, cfg.Timezone)
	calendar := payroll.NewCalendar(store)
	catalog := payroll.NewCatalog(store, calendar, cfg.Region, cfg.Timezone)
	absences := payroll.NewAbsences(store, catalog)
	calculator := payroll.NewCalculator(store, catalog, cfg.TaxRate, cfg.Timezone)

	handler := api.NewHandler(engine, catalog, calendar, absences, calculator, store, cfg.Region)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
