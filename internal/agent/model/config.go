package model

import "time"

// ================ Config ================
type MemoryConfig struct {
	Backend      string `envconfig:"MEMORY_BACKEND" default:"sqlite"`
	DBPath       string `envconfig:"MEMORY_DB_PATH"`
	RecentTopics int    `envconfig:"MEMORY_RECENT_TOPICS" default:"3"`
	UserName     string `envconfig:"MAYA_USER_NAME" default:"Srinika"`
}

type CompletionConfig struct {
	Provider    string        `envconfig:"COMPLETION_PROVIDER" default:"ollama"`
	Model       string        `envconfig:"COMPLETION_MODEL" default:"llama3.2:3b"`
	BaseURL     string        `envconfig:"COMPLETION_BASE_URL"`
	APIKey      string        `envconfig:"COMPLETION_API_KEY"`
	MaxTokens   int           `envconfig:"COMPLETION_MAX_TOKENS" default:"512"`
	Temperature float32       `envconfig:"COMPLETION_TEMPERATURE" default:"0.7"`
	Timeout     time.Duration `envconfig:"COMPLETION_TIMEOUT" default:"60s"`
	Offline     bool          `envconfig:"MAYA_OFFLINE_MODE" default:"false"`
}

type PromptConfig struct {
	AssistantName string `envconfig:"MAYA_ASSISTANT_NAME" default:"MAYA"`
	ChildAge      int    `envconfig:"MAYA_CHILD_AGE" default:"10"`
}

// RecentTopicLimit normalises the configured topic bound.
func (c MemoryConfig) RecentTopicLimit() int {
	if c.RecentTopics <= 0 {
		return DefaultRecentTopics
	}
	return c.RecentTopics
}
