package cache

import (
	"net"
	"strconv"

	"github.com/gofiber/fiber/v2"
	redisstorage "github.com/gofiber/storage/redis"
)

// NewLimiterStorage builds the fiber storage backing the API rate limiter,
// on the same Redis instance as the cache but in its own database so limiter
// counters never collide with cached status keys.
func NewLimiterStorage() fiber.Storage {
	host := "localhost"
	port := 6379
	password := ""
	if client := GetClient(); client != nil {
		addr := client.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		password = client.Options().Password
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}
