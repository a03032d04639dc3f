package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

var videoConfigClient = &http.Client{Timeout: 5 * time.Second}

// GetVideoConfig handles GET /api/video/config. When a provider URL is
// configured it proxies that provider's JSON; otherwise it serves the
// static ICE defaults.
func (s *Server) GetVideoConfig(c *fiber.Ctx) error {
	if s.config.VideoConfigURL != "" {
		if cfg, err := s.fetchProviderConfig(c); err == nil {
			return c.JSON(cfg)
		}
		// Fall through to the defaults when the provider is unreachable.
	}

	iceServers := []fiber.Map{
		{"urls": s.config.TURNURL},
	}
	if s.config.TURNUsername != "" {
		iceServers = []fiber.Map{
			{
				"urls":       s.config.TURNURL,
				"username":   s.config.TURNUsername,
				"credential": s.config.TURNPassword,
			},
		}
	}

	return c.JSON(fiber.Map{
		"iceServers": iceServers,
		"source":     "default",
	})
}

func (s *Server) fetchProviderConfig(c *fiber.Ctx) (map[string]any, error) {
	req, err := http.NewRequestWithContext(c.UserContext(), http.MethodGet, s.config.VideoConfigURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := videoConfigClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fiber.NewError(resp.StatusCode, "video config provider error")
	}

	var cfg map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
