package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/ibreez3/hult-gpt/chat"
	"github.com/ibreez3/hult-gpt/config"
	"github.com/ibreez3/hult-gpt/openai"
	"github.com/ibreez3/hult-gpt/service"
)

func main() {
	cfgPath := flag.String("config", "", "config file (defaults are used when empty)")
	mode := flag.String("mode", "", "chat mode: echo, simulated or gpt")
	model := flag.String("model", "", "model to start with")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if *mode != "" {
		cfg.Chat.Mode = *mode
	}
	if *model != "" {
		cfg.OpenAI.Model = *model
	}
	if err := cfg.Check(); err != nil {
		log.Fatal(err)
	}

	var cli *openai.Client
	var completer chat.Completer
	if cfg.Chat.Mode == config.ModeGPT {
		cli = openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
		completer = cli
	}

	id := uuid.NewString()
	var logFn func(string)
	if sl, err := service.NewSessionLogger(cfg.Log.Dir, id); err == nil {
		logFn = sl.Log
		defer sl.Close()
	}
	responder, err := service.NewResponder(cfg, cfg.Chat.Mode, completer, logFn)
	if err != nil {
		log.Fatal(err)
	}
	sess := chat.NewSession(responder,
		chat.WithID(id),
		chat.WithModels(cfg.OpenAI.Models),
		chat.WithModel(cfg.OpenAI.Model),
		chat.WithLogger(logFn),
	)

	r := newREPL(sess, cfg.Chat.Mode, os.Stdout, os.Stderr)
	if cli != nil {
		r.pinger = cli
	}
	if err := r.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
