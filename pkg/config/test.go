package config

func loadTestConfig(cfg *Config) {
	cfg.CoversDir = "./tmp/test-covers"
	cfg.DatabaseFilePath = ":memory:"
	cfg.JWTSecret = "test-secret"
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = 0
	cfg.UploadDir = "./tmp/test-uploads"
	cfg.WorkerProcesses = 1
}
