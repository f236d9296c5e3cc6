package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/ibreez3/hult-gpt/chat"
	"github.com/ibreez3/hult-gpt/config"
	"github.com/ibreez3/hult-gpt/openai"
	"github.com/ibreez3/hult-gpt/service"
)

func main() {
	cfgPath := flag.String("config", "config/config.yaml", "config file")
	mode := flag.String("mode", "", "chat mode: echo, simulated or gpt")
	port := flag.Int("port", 0, "override server port")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if *mode != "" {
		cfg.Chat.Mode = *mode
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Check(); err != nil {
		log.Fatal(err)
	}

	var completer chat.Completer
	var pinger service.Pinger
	if cfg.Chat.Mode == config.ModeGPT {
		cli := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
		completer = cli
		pinger = cli
	}
	mgr := service.NewManager(cfg, completer)

	r := gin.Default()
	service.NewHandler(cfg, mgr, pinger).Register(r)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("chat server (%s mode) listening on %s", cfg.Chat.Mode, addr)
	if err := r.Run(addr); err != nil {
		log.Fatal(err)
	}
}
