package services

import (
	"fmt"
	"strings"

	"github.com/rpupo63/foodgram-backend/config"
)

// GetBaseURL returns the public origin of the API from BASE_URL, falling
// back to localhost on PORT.
func GetBaseURL(cfg map[string]string) string {
	if baseURL := config.GetString(cfg, "BASE_URL", ""); baseURL != "" {
		return strings.TrimSuffix(baseURL, "/")
	}
	return fmt.Sprintf("http://localhost:%s", config.GetString(cfg, "PORT", "8080"))
}

// GetMediaURL returns where locally stored images are served: MEDIA_URL, or
// /media under the base URL.
func GetMediaURL(cfg map[string]string) string {
	if mediaURL := config.GetString(cfg, "MEDIA_URL", ""); mediaURL != "" {
		return strings.TrimSuffix(mediaURL, "/")
	}
	return GetBaseURL(cfg) + "/media"
}
