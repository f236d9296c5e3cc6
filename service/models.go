package service

import "github.com/ibreez3/hult-gpt/config"

type ModelsResponse struct {
	Models  []string `json:"models"`
	Default string   `json:"default"`
}

func GetModels(cfg config.Config) ModelsResponse {
	return ModelsResponse{Models: append([]string(nil), cfg.OpenAI.Models...), Default: cfg.OpenAI.Model}
}
