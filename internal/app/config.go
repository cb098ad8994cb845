package app

import (
	"github.com/choiwab/promptsmith/internal/pkg/envutil"
	"github.com/choiwab/promptsmith/internal/pkg/logger"
)

// Config holds every process-start option promptsmith reads from the
// environment. It is loaded once in New() and passed down by value to the
// components that need it.
type Config struct {
	ServerAddr  string
	Environment string
	Version     string

	DataDir     string
	ImageDir    string
	ArtifactDir string

	PostgresDSN string
	UseSQLite   bool
	SQLitePath  string

	CompareThreshold         float64
	VisionStructuralProvider string
	GCPCredentialsFile       string

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAITextModel   string
	OpenAIImageModel  string
	OpenAIVisionModel string
	OpenAITimeoutSecs int
	OpenAIMaxRetries  int

	ObjectStorageMode   string
	StorageBucket       string
	StoragePrefix       string
	StorageEmulatorHost string

	JWTSecretKey string
	AuthRequired bool
	APIKeyHash   string

	RedisAddr string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		ServerAddr:  envutil.String("SERVER_ADDR", ":8080", log),
		Environment: envutil.String("PROMPTSMITH_ENV", "development", log),
		Version:     envutil.String("PROMPTSMITH_VERSION", "dev", log),

		DataDir:     envutil.String("PROMPTSMITH_DATA_DIR", "./data", log),
		ImageDir:    envutil.String("PROMPTSMITH_IMAGE_DIR", "./data/images", log),
		ArtifactDir: envutil.String("PROMPTSMITH_ARTIFACT_DIR", "./data/artifacts", log),

		PostgresDSN: envutil.String("DATABASE_URL", "", log),
		UseSQLite:   envutil.Bool("PROMPTSMITH_USE_SQLITE", true, log),
		SQLitePath:  envutil.String("PROMPTSMITH_SQLITE_PATH", "./data/promptsmith.db", log),

		CompareThreshold:         envutil.Float("PROMPTSMITH_COMPARE_THRESHOLD", 0.30, log),
		VisionStructuralProvider: envutil.String("VISION_STRUCTURAL_PROVIDER", "openai", log),
		GCPCredentialsFile:       envutil.String("GCP_CREDENTIALS_FILE", "", log),

		OpenAIAPIKey:      envutil.String("OPENAI_API_KEY", "", log),
		OpenAIBaseURL:     envutil.String("OPENAI_BASE_URL", "https://api.openai.com", log),
		OpenAITextModel:   envutil.String("OPENAI_MODEL", "gpt-4.1-mini", log),
		OpenAIImageModel:  envutil.String("OPENAI_IMAGE_MODEL", "gpt-image-1", log),
		OpenAIVisionModel: envutil.String("OPENAI_VISION_MODEL", "gpt-4.1-mini", log),
		OpenAITimeoutSecs: envutil.Int("OPENAI_TIMEOUT_SECONDS", 60, log),
		OpenAIMaxRetries:  envutil.Int("OPENAI_MAX_RETRIES", 3, log),

		ObjectStorageMode:   envutil.String("OBJECT_STORAGE_MODE", "filesystem", log),
		StorageBucket:       envutil.String("STORAGE_BUCKET", "promptsmith-artifacts", log),
		StoragePrefix:       envutil.String("STORAGE_PREFIX", "promptsmith", log),
		StorageEmulatorHost: envutil.String("STORAGE_EMULATOR_HOST", "", log),

		JWTSecretKey: envutil.String("JWT_SECRET_KEY", "", log),
		AuthRequired: envutil.Bool("PROMPTSMITH_AUTH_REQUIRED", false, log),
		APIKeyHash:   envutil.String("PROMPTSMITH_API_KEY_HASH", "", log),

		RedisAddr: envutil.String("REDIS_ADDR", "", log),
	}
	return cfg
}
