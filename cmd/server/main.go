package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/biosales/agent-sales/internal/adapter/handler"
	"github.com/biosales/agent-sales/internal/adapter/storage"
	"github.com/biosales/agent-sales/internal/core/service"
	"github.com/biosales/agent-sales/internal/port"
)

const (
	defaultHTTPAddr = ":5000"
	defaultMySQLDSN = "root:root@tcp(localhost:3306)/agent_sales?parseTime=true"
)

func main() {
	memoryMode := flag.Bool("memory", false, "run with in-memory stores (dev mode, no MySQL/Redis)")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpAddr := envOr("HTTP_ADDR", defaultHTTPAddr)

	var (
		stockStore port.StockStore
		txLog      port.TransactionLog
		agentStore port.AgentStore
		idemStore  port.IdempotencyStore
		closers    []func()
	)

	if *memoryMode {
		stockStore = storage.NewMemoryStockStore()
		txLog = storage.NewMemoryTransactionLog()
		agentStore = storage.NewMemoryAgentStore()
		idemStore = storage.NewMemoryIdempotencyStore()
		log.Println("running with in-memory stores")
	} else {
		dsn := envOr("MYSQL_DSN", defaultMySQLDSN)
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			log.Fatalf("failed to open mysql: %v", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("failed to ping mysql: %v", err)
		}
		log.Println("connected to mysql")
		closers = append(closers, func() { db.Close() })

		stockStore = storage.NewMySQLStockStore(db)
		txLog = storage.NewMySQLTransactionLog(db)
		agentStore = storage.NewMySQLAgentStore(db)

		// Redis is optional; without it the duplicate-request gate is off.
		if addr := os.Getenv("REDIS_ADDR"); addr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: addr, PoolSize: 100})
			if err := rdb.Ping(ctx).Err(); err != nil {
				log.Fatalf("failed to connect redis: %v", err)
			}
			log.Println("connected to redis")
			closers = append(closers, func() { rdb.Close() })
			idemStore = storage.NewRedisIdempotencyStore(rdb)
		}
	}

	engine := service.NewSettlementEngine(stockStore, txLog)
	h := handler.NewHTTPHandler(engine, stockStore, txLog, agentStore, idemStore)

	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: handler.NewRouter(h),
	}

	go func() {
		log.Printf("HTTP server listening on %s", httpAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	for _, c := range closers {
		c()
	}
	log.Println("connections closed")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
