// Package main is the entry point for the quill headless gateway client.
// It connects to the chat gateway, mirrors server state locally, and logs
// change notifications until interrupted.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/quillchat/quill/internal/config"
	"github.com/quillchat/quill/internal/discord"
	"github.com/quillchat/quill/internal/frontend"
	"github.com/quillchat/quill/internal/settings"
	"github.com/quillchat/quill/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		// Sync errors on stdout/stderr are expected for non-syncable
		// descriptors and can be ignored.
		_ = log.Sync()
	}()

	store, err := settings.Open(cfg.Settings.Path)
	if err != nil {
		log.Fatal("failed to open settings", zap.Error(err))
	}

	client := discord.NewClient(discord.Options{
		GatewayURL:     cfg.Gateway.URL,
		RESTBaseURL:    cfg.REST.BaseURL,
		LargeThreshold: cfg.Gateway.LargeThreshold,
		HTTPTimeout:    time.Duration(cfg.REST.TimeoutSeconds) * time.Second,
	}, log, nil)

	// The frontend controller is the client's observer and the client is
	// the frontend's session, so the observer is attached after both exist.
	front := frontend.New(client, store, &logUI{log: log}, log)
	client.SetObserver(front)

	token := store.Token()
	if env := os.Getenv("GATEWAY_TOKEN"); env != "" {
		token = env
	}
	if token == "" {
		log.Fatal("no token: set GATEWAY_TOKEN or store one in the settings file")
	}
	client.SetToken(token)
	client.SetGuildPositions(store.GuildPositions())

	if err := front.Connect(); err != nil {
		log.Fatal("failed to connect", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	front.Disconnect()
}

// logUI logs every presentation update; it stands in for a real
// presentation layer.
type logUI struct {
	log *zap.Logger
}

func (u *logUI) UpdateReady() {
	u.log.Info("session ready")
}

func (u *logUI) UpdateChannelList() {
	u.log.Info("channel list changed")
}

func (u *logUI) UpdateNewMessage(channelID, messageID discord.Snowflake) {
	u.log.Info("message created",
		zap.String("channel_id", channelID.String()),
		zap.String("message_id", messageID.String()),
	)
}

func (u *logUI) UpdatePrependHistory(channelID discord.Snowflake, msgs []discord.Message) {
	u.log.Info("history loaded",
		zap.String("channel_id", channelID.String()),
		zap.Int("count", len(msgs)),
	)
}

func (u *logUI) UpdateActiveChannel(channelID discord.Snowflake) {
	u.log.Info("active channel changed", zap.String("channel_id", channelID.String()))
}

func (u *logUI) UpdateMemberList(guildID discord.Snowflake) {
	u.log.Info("member list updated", zap.String("guild_id", guildID.String()))
}

func (u *logUI) UpdateDisconnected(err error) {
	u.log.Error("disconnected", zap.Error(err))
}
