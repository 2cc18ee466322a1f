package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"voltmesh.io/internal/auth"
	"voltmesh.io/internal/httpapi"
	"voltmesh.io/internal/obs"
	"voltmesh.io/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("VOLTMESH_PG_DSN")
	if dsn == "" {
		log.Fatal("VOLTMESH_PG_DSN is required")
	}
	accessSecret := os.Getenv("VOLTMESH_ACCESS_SECRET")
	refreshSecret := os.Getenv("VOLTMESH_REFRESH_SECRET")
	if accessSecret == "" || refreshSecret == "" {
		log.Fatal("VOLTMESH_ACCESS_SECRET and VOLTMESH_REFRESH_SECRET are required")
	}

	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	tokenOpts := []auth.TokenOption{auth.WithIssuer("voltmesh")}
	if ttl := durationEnv("VOLTMESH_ACCESS_TTL"); ttl > 0 {
		tokenOpts = append(tokenOpts, auth.WithAccessTTL(ttl))
	}
	if ttl := durationEnv("VOLTMESH_REFRESH_TTL"); ttl > 0 {
		tokenOpts = append(tokenOpts, auth.WithRefreshTTL(ttl))
	}
	issuer, err := auth.NewTokenIssuer(accessSecret, refreshSecret, tokenOpts...)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	resolver, err := auth.NewResolver(store, obs.Logger())
	if err != nil {
		log.Fatalf("resolver: %v", err)
	}
	svc, err := auth.NewService(store, resolver, issuer)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	authorizer, err := auth.NewAuthorizer(store)
	if err != nil {
		log.Fatalf("authorizer: %v", err)
	}
	reconciler, err := auth.NewReconciler(store, store)
	if err != nil {
		log.Fatalf("reconciler: %v", err)
	}

	readyProbe := httpapi.ReadyProbe{DB: store.DB()}
	api := httpapi.New(readyProbe, version, svc, authorizer, reconciler, store)

	handler := api.Handler()
	handler = httpapi.RateLimit(handler, 50, 25)
	handler = httpapi.MaxBodyBytes(handler, 1<<20)
	handler = httpapi.CORS(handler)
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.LoggingJSON(handler)
	handler = httpapi.RequestID(handler)

	httpAddr := envOr("VOLTMESH_HTTP_ADDR", ":8080")
	srv := &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	grpcAddr := envOr("VOLTMESH_GRPC_ADDR", ":9090")
	grpcSrv := grpc.NewServer()
	httpapi.RegisterHealth(grpcSrv, httpapi.NewHealthServer(readyProbe))

	log.Printf("Starting voltmesh-api %s on %s (grpc %s)", version, httpAddr, grpcAddr)

	go func() {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	grpcSrv.GracefulStop()
	log.Println("Stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("%s: %v", key, err)
	}
	return d
}
