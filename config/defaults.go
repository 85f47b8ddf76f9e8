package config

// ApplyDefaults fills every unset field with its default. It is
// idempotent and safe to call on a zero Config.
func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RequestTimeoutSeconds == 0 {
		c.Server.RequestTimeoutSeconds = 60
	}

	if c.Storage.Collection == "" {
		c.Storage.Collection = "documents"
	}
	if c.Storage.MemoryDir == "" {
		c.Storage.MemoryDir = "data/memories"
	}
	if c.Storage.CheckpointDir == "" {
		c.Storage.CheckpointDir = "data/checkpoints"
	}

	if c.LLM.Model == "" {
		c.LLM.Model = "claude-sonnet-4-20250514"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 500
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.9
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "mock"
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 384
	}

	if c.Chunking.ChunkSize == 0 {
		c.Chunking.ChunkSize = 1000
	}

	if c.Retrieval.K == 0 {
		c.Retrieval.K = 5
	}
	if c.Retrieval.FetchK == 0 {
		c.Retrieval.FetchK = 20
	}
	if c.Retrieval.Lambda == 0 {
		c.Retrieval.Lambda = 0.5
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
