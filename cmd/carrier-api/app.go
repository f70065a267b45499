package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	segkafka "github.com/segmentio/kafka-go"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"

	carrierapi "github.com/BearBump/ShipGate/internal/api/carrier_api"
	"github.com/BearBump/ShipGate/internal/broker/kafka"
	"github.com/BearBump/ShipGate/internal/broker/messages"
)

// Имя сервиса в gRPC health для потребителя tracking.updated.
const updatesHealthService = "shipgate.TrackingUpdates"

type carrierAPIOpts struct {
	grpcAddr     string
	httpAddr     string
	grpcDialAddr string
	swaggerPath  string

	topic         string
	consumerGroup string

	onListen func(grpcAddr, httpAddr string)
}

type updateConsumer interface {
	Consume(ctx context.Context, handler kafka.Handler) error
}

type updateApplier interface {
	ApplyTrackingUpdate(ctx context.Context, msg messages.TrackingUpdated) error
}

func runCarrierAPI(ctx context.Context, opts carrierAPIOpts, api *carrierapi.API, applier updateApplier, consumer updateConsumer) error {
	if opts.swaggerPath == "" {
		return fmt.Errorf("swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
	}

	grpcLis, err := net.Listen("tcp", opts.grpcAddr)
	if err != nil {
		return err
	}
	httpLis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		_ = grpcLis.Close()
		return err
	}

	if opts.onListen != nil {
		opts.onListen(grpcLis.Addr().String(), httpLis.Addr().String())
	}

	dialAddr := opts.grpcDialAddr
	if dialAddr == "" || strings.HasSuffix(dialAddr, ":0") {
		dialAddr = grpcLis.Addr().String()
	}

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(updatesHealthService, healthpb.HealthCheckResponse_SERVING)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runGRPCServer(gctx, grpcLis, hs)
	})
	g.Go(func() error {
		return runGatewayServer(gctx, httpLis, dialAddr, opts.swaggerPath, api)
	})
	g.Go(func() error {
		slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
		err := consumer.Consume(gctx, applyUpdates(applier))
		if err != nil && gctx.Err() == nil {
			// API продолжает работать, но /healthz?service=... покажет проблему.
			slog.Error("kafka consumer stopped", "error", err.Error())
			hs.SetServingStatus(updatesHealthService, healthpb.HealthCheckResponse_NOT_SERVING)
		}
		return nil
	})

	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return err
}

// applyUpdates decodes tracking.updated messages. Undecodable payloads are
// skipped, storage errors stop the consumer without commit.
func applyUpdates(applier updateApplier) kafka.Handler {
	return func(ctx context.Context, msg segkafka.Message) error {
		if t := kafka.Header(msg, kafka.HeaderMessageType); t != "" && t != messages.TypeTrackingUpdated {
			return errors.Wrapf(kafka.ErrSkipMessage, "unexpected message type %q", t)
		}
		var m messages.TrackingUpdated
		if err := json.Unmarshal(msg.Value, &m); err != nil {
			return errors.Wrapf(kafka.ErrSkipMessage, "decode: %v", err)
		}
		if err := m.Validate(); err != nil {
			return errors.Wrapf(kafka.ErrSkipMessage, "validate: %v", err)
		}
		return applier.ApplyTrackingUpdate(ctx, m)
	}
}

func runGRPCServer(ctx context.Context, lis net.Listener, hs *health.Server) error {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, hs)

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		stopped := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(2 * time.Second):
			s.Stop()
		}
		_ = lis.Close()
	}()

	slog.Info("gRPC server listening", "addr", lis.Addr().String())
	if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func newGatewayMux(conn *grpc.ClientConn) *runtime.ServeMux {
	return runtime.NewServeMux(
		runtime.WithHealthzEndpoint(healthpb.NewHealthClient(conn)),
		runtime.WithMarshalerOption(runtime.MIMEWildcard, &runtime.JSONPb{
			MarshalOptions:   protojson.MarshalOptions{UseProtoNames: true, EmitUnpopulated: true},
			UnmarshalOptions: protojson.UnmarshalOptions{DiscardUnknown: true},
		}),
	)
}

func runGatewayServer(ctx context.Context, lis net.Listener, grpcAddr string, swaggerPath string, api *carrierapi.API) error {
	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		_ = lis.Close()
		return errors.Wrap(err, "dial grpc")
	}
	defer conn.Close()

	r := chi.NewRouter()
	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, swaggerPath)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger.json"),
	))
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/healthz", newGatewayMux(conn))
	r.Mount("/", api.Routes())

	srv := &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP gateway listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
