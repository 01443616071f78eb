// README: Entry point; loads config, wires the rider session, serves the UI API until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"mototaxi/internal/config"
	httptransport "mototaxi/internal/http"
	"mototaxi/internal/infra"
	"mototaxi/internal/maps"
	"mototaxi/internal/modules/location"
	"mototaxi/internal/modules/pricing"
	"mototaxi/internal/modules/realtime"
	"mototaxi/internal/modules/ride"
	"mototaxi/internal/retry"
	"mototaxi/internal/service"
	"mototaxi/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	log := infra.NewLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.WithError(err).Fatal("postgres")
	}
	defer dbPool.Close()
	if err := infra.EnsureSchema(ctx, dbPool); err != nil {
		log.WithError(err).Warn("schema check failed, continuing with the existing tables")
	}

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	retrier := retry.New(retry.Config{
		Attempts:       cfg.Adapter.Attempts,
		AttemptTimeout: cfg.Adapter.AttemptTimeout,
		BaseDelay:      cfg.Adapter.BaseDelay,
		MaxDelay:       retry.DefaultConfig().MaxDelay,
		Multiplier:     retry.DefaultConfig().Multiplier,
		Jitter:         true,
	}, log.WithField("component", "retry"))

	router, err := newRouter(cfg)
	if err != nil {
		log.WithError(err).Fatal("router adapter")
	}
	geocoder, err := newGeocoder(cfg)
	if err != nil {
		log.WithError(err).Fatal("geocoder adapter")
	}

	fares := pricing.NewService(pricing.NewStore(dbPool), pricing.Config{
		PerKmRate:      cfg.Fare.PerKmRate,
		MinimumFare:    cfg.Fare.MinimumFare,
		PooledDiscount: cfg.Fare.PooledDiscount,
	}, log.WithField("component", "pricing"))
	fares.Load(ctx)

	positions, err := newPositionSource(ctx, cfg, dbPool, redisClient)
	if err != nil {
		log.WithError(err).Fatal("position source")
	}

	session := service.NewRiderSession(ctx, service.Deps{
		RiderID:          types.ID(cfg.Rider.ID),
		Router:           maps.WithRouteRetry(router, retrier),
		Geocoder:         maps.NewCachedGeocoder(maps.WithGeocodeRetry(geocoder, retrier), redisClient, cfg.Maps.LabelTTL, log.WithField("component", "geocode")),
		Fares:            fares,
		Rides:            ride.NewStore(dbPool),
		Positions:        positions,
		Changes:          newChangeSource(cfg, dbPool, redisClient, log),
		TrackingInterval: cfg.Tracking.Interval,
		MaxBackoff:       cfg.Realtime.MaxBackoff,
		Center:           types.DefaultCenter,
		Log:              log,
	})
	sessionDone := make(chan struct{})
	go func() {
		session.Run(ctx)
		close(sessionDone)
	}()

	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.NewRouter(session, log), log)
	if err := server.Run(ctx); err != nil {
		log.WithError(err).Fatal("http server")
	}
	<-sessionDone
}

func newRouter(cfg config.Config) (maps.Router, error) {
	if cfg.Maps.Router == config.ProviderGoogle {
		return maps.NewRouteService(cfg.Maps.GoogleAPIKey)
	}
	return maps.NewOSRMClient(cfg.Maps.OSRMURL), nil
}

func newGeocoder(cfg config.Config) (maps.Geocoder, error) {
	if cfg.Maps.Geocoder == config.ProviderGoogle {
		return maps.NewGeocodeService(cfg.Maps.GoogleAPIKey)
	}
	return maps.NewNominatimClient(cfg.Maps.NominatimURL, cfg.Maps.UserAgent), nil
}

func newPositionSource(ctx context.Context, cfg config.Config, db *pgxpool.Pool, rdb *redis.Client) (location.PositionSource, error) {
	switch cfg.Tracking.Source {
	case config.SourceRedis:
		return location.NewGeoStore(rdb), nil
	case config.SourceFirebase:
		client, err := infra.NewFirebaseDB(ctx, infra.FirebaseConfig{
			ProjectID:       cfg.Firebase.ProjectID,
			CredentialsFile: cfg.Firebase.CredentialsFile,
			DatabaseURL:     cfg.Firebase.DatabaseURL,
		})
		if err != nil {
			return nil, err
		}
		return location.NewFirebaseSource(client), nil
	default:
		return location.NewStore(db), nil
	}
}

func newChangeSource(cfg config.Config, db *pgxpool.Pool, rdb *redis.Client, log logrus.FieldLogger) realtime.Source {
	if cfg.Realtime.Source == config.SourceRedis {
		return realtime.NewRedisSource(rdb, log.WithField("component", "realtime"))
	}
	return realtime.NewPGSource(db, log.WithField("component", "realtime"))
}
