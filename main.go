package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"mixer/client"
	"mixer/server"
	"mixer/utils"
	"mixer/world"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Llongfile)

	if len(os.Args) > 1 && os.Args[1] == "server" {
		if err := server.Run(os.Args[1:]); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := utils.ReadTOML("config.toml")
	if err != nil {
		log.Fatal(err)
	}
	logger, err := utils.NewLogger(cfg.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	name := "bot"
	if len(os.Args) > 1 {
		name = os.Args[1]
	}
	bot := client.NewBot(name, logger.Named("bot"))

	ctx := context.Background()
	addr := fmt.Sprintf("ws://%s", cfg.Server.Address)
	c, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		logger.Info("dial failed, starting a local server", zap.Error(err))

		// Try to spin up the server if we fail to connect.
		go func() {
			if err := server.Run([]string{}); err != nil {
				log.Fatal(err)
			}
			log.Fatal("server shutdown")
		}()

		// TODO: Should have a good way of testing if the server is up.
		time.Sleep(50 * time.Millisecond)
		c, _, err = websocket.Dial(ctx, addr, nil)
		if err != nil {
			log.Fatal(err)
		}
	}
	defer c.Close(websocket.StatusInternalError, "")

	go func() {
		if err := bot.ReadMessages(ctx, c); err != nil {
			log.Fatal(err)
		}
	}()
	go func() {
		if err := bot.WriteMessages(ctx, c); err != nil {
			log.Fatal(err)
		}
	}()

	// Look down the -Z axis and walk in a circle.
	view := world.NewConicalFrustum(world.Vector{Y: 1.7}, world.Vector{Z: -1}, math.Pi/4, 100, 0.5)
	if err := bot.SetViewFrustums(view); err != nil {
		log.Fatal(err)
	}

	tick := time.NewTicker(utils.Millis(cfg.Server.TickInterval))
	defer tick.Stop()
	report := time.NewTicker(5 * time.Second)
	defer report.Stop()
	start := time.Now()
	for {
		select {
		case <-tick.C:
			angle := time.Since(start).Seconds()
			bot.Move(world.Vector{X: 3 * math.Cos(angle), Z: 3 * math.Sin(angle)}, nil)
		case <-report.C:
			logger.Info("avatars in view", zap.Int("count", len(bot.Others())))
		}
	}
}
