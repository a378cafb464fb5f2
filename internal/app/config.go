package app

import (
	"strings"
	"time"

	"github.com/yungbote/shopfloor-backend/internal/logger"
	"github.com/yungbote/shopfloor-backend/internal/utils"
)

type Config struct {
	JWTSecretKey     string
	AccessTokenTTL   time.Duration
	LoginRateLimit   int
	LoginRateWindow  time.Duration
	AllowOrigins     []string
	RedisAddrPresent bool
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 28800, log)
	loginRateLimit := utils.GetEnvAsInt("LOGIN_RATE_LIMIT", 10, log)
	loginRateWindowSeconds := utils.GetEnvAsInt("LOGIN_RATE_WINDOW", 60, log)
	redisAddr := utils.GetEnv("REDIS_ADDR", "", log)

	var origins []string
	if raw := utils.GetEnv("CORS_ALLOW_ORIGINS", "", log); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}

	return Config{
		JWTSecretKey:     jwtSecretKey,
		AccessTokenTTL:   time.Duration(accessTokenTTLSeconds) * time.Second,
		LoginRateLimit:   loginRateLimit,
		LoginRateWindow:  time.Duration(loginRateWindowSeconds) * time.Second,
		AllowOrigins:     origins,
		RedisAddrPresent: redisAddr != "",
	}
}
