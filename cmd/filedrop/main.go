package main

import (
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"filedrop/internal/app"
	"filedrop/internal/blob"
	"filedrop/internal/catalog"
	"filedrop/internal/config"
	"filedrop/internal/domain"
	"filedrop/internal/otp"
	"filedrop/internal/ratelimit"
	"filedrop/internal/recordstore"
	"filedrop/internal/scan"
	"filedrop/internal/server"
	"filedrop/internal/session"
	"filedrop/internal/sms"
	"filedrop/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseDuration("sessionTTL", cfg.SessionTTL, 24*time.Hour)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}
	uploadTimeout, err := config.ParseDuration("uploadTimeout", cfg.UploadTimeout, 30*time.Second)
	if err != nil {
		log.Fatalf("failed to parse upload timeout: %v", err)
	}
	scanTimeout, err := config.ParseDuration("scanTimeout", cfg.ScanTimeout, 60*time.Second)
	if err != nil {
		log.Fatalf("failed to parse scan timeout: %v", err)
	}
	otpTTL, err := config.ParseDuration("otp.ttl", cfg.OTP.TTL, 5*time.Minute)
	if err != nil {
		log.Fatalf("failed to parse otp TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}

	blobs, err := blob.NewMinioStore(
		cfg.Minio.Endpoint,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.Bucket,
		cfg.Minio.UseSSL,
		cfg.Minio.PublicBaseURL,
	)
	if err != nil {
		log.Fatalf("failed to init object store: %v", err)
	}

	var scanner scan.Scanner = scan.Disabled{}
	if cfg.ClamdAddr != "" {
		scanner = scan.NewClamdScanner(cfg.ClamdAddr)
	}

	var codes otp.Store
	switch cfg.OTP.Store {
	case "redis":
		redisCodes, err := otp.NewRedisRegistry(
			cfg.OTP.RedisAddr,
			cfg.OTP.RedisPassword,
			otp.WithRedisTTL(otpTTL),
			otp.WithRedisCodeLength(cfg.OTP.CodeLength),
		)
		if err != nil {
			log.Fatalf("failed to init redis passcode store: %v", err)
		}
		codes = redisCodes
	default:
		col := recordstore.Open[domain.OtpRecord](filepath.Join(dataDir, "otps.json"))
		codes = otp.NewRegistry(col, otp.WithTTL(otpTTL), otp.WithCodeLength(cfg.OTP.CodeLength))
	}

	var sender sms.Sender
	switch cfg.SMS.Provider {
	case "pattern":
		sender = sms.NewPatternSender(cfg.SMS.BaseURL, cfg.SMS.APIKey, cfg.SMS.FromNumber, cfg.SMS.PatternCode)
	case "aliyun":
		aliyunSender, err := sms.NewAliyunSender(
			cfg.SMS.AliyunAccessKeyID,
			cfg.SMS.AliyunAccessKeySecret,
			cfg.SMS.AliyunSignName,
			cfg.SMS.AliyunTemplateCode,
		)
		if err != nil {
			log.Fatalf("failed to init aliyun sms sender: %v", err)
		}
		sender = aliyunSender
	default:
		sender = sms.LogSender{}
	}

	var sendLimiter *ratelimit.FixedWindowLimiter
	if cfg.OTP.SendLimitPerMinute > 0 {
		sendLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.OTP.RedisAddr,
			cfg.OTP.RedisPassword,
			"",
			cfg.OTP.SendLimitPerMinute,
			time.Minute,
		)
		if err != nil {
			log.Fatalf("failed to init send limiter: %v", err)
		}
	}

	sessions, err := session.NewIssuer(cfg.JWTSecret, sessionTTL)
	if err != nil {
		log.Fatalf("failed to init session issuer: %v", err)
	}

	files := catalog.New(recordstore.Open[domain.FileRecord](filepath.Join(dataDir, "files.json")))

	appCore, err := app.New(app.Config{
		Catalog:       files,
		Blobs:         blobs,
		Scanner:       scanner,
		Codes:         codes,
		Sender:        sender,
		Sessions:      sessions,
		SendLimiter:   sendLimiter,
		TempDir:       cfg.TempDir,
		UploadTimeout: uploadTimeout,
		ScanTimeout:   scanTimeout,
		ScanDetached:  cfg.ScanDetached,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		Sessions:       sessions,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("filedrop server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
