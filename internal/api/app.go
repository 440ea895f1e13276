package api

import (
	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
)

// NewApp creates the Fiber app with the shared codec and error handling
func NewApp(name string) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:       name,
		StrictRouting: true,
		CaseSensitive: true,
		JSONEncoder:   sonic.Marshal,
		JSONDecoder:   sonic.Unmarshal,
		ErrorHandler:  ErrorHandler,
	})
}
