package config

func loadDevelopmentConfig(cfg *Config) {
	cfg.CoversDir = "./tmp/covers"
	cfg.DatabaseDebug = true
	cfg.DatabaseFilePath = "./tmp/data.sqlite"
	cfg.JWTSecret = "development-secret"
	cfg.ServerHost = "127.0.0.1"
	cfg.UploadDir = "./tmp/uploads"
}
