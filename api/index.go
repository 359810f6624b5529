package handler

import (
	"net/http"
	"parking/config"
	"parking/di"
	"parking/shared/logger"
	"parking/shared/timezone"
	"parking/transport/http/response"

	"github.com/rs/zerolog/log"
)

func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()

	cfg := config.Get()

	logger.Setup(cfg)
	timezone.Setup(cfg.App.Timezone)

	handler, err := di.InitializeService()
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize service")

		response.WithUnhealthy(w)

		return
	}

	handler.ServeHTTP(w, r)
}
