package config

func loadProductionConfig(cfg *Config) {
	cfg.CoversDir = "/data/covers"
	cfg.DatabaseFilePath = "/data/data.sqlite"
	cfg.ServerHost = "0.0.0.0"
	cfg.UploadDir = "/data/uploads"
}
