package whatsapp

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"hermes/pkg/logger"
)

// LoggingMiddleware logs command execution with timing
func LoggingMiddleware(log *logger.Logger) CommandMiddleware {
	return func(next CommandHandler) CommandHandler {
		return func(ctx *CommandContext) error {
			start := time.Now()

			log.Infow("Executing command",
				"command", ctx.Command,
				"chat_id", ctx.ChatID,
				"sender", ctx.Sender,
			)

			err := next(ctx)
			duration := time.Since(start)

			if err != nil {
				log.Errorw("Command failed",
					"command", ctx.Command,
					"chat_id", ctx.ChatID,
					"duration_ms", duration.Milliseconds(),
					"error", err,
				)
			} else {
				log.Debugw("Command completed",
					"command", ctx.Command,
					"chat_id", ctx.ChatID,
					"duration_ms", duration.Milliseconds(),
				)
			}

			return err
		}
	}
}

// RecoveryMiddleware recovers from panics in command handlers
func RecoveryMiddleware(log *logger.Logger) CommandMiddleware {
	return func(next CommandHandler) CommandHandler {
		return func(ctx *CommandContext) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Errorw("Command handler panicked",
						"command", ctx.Command,
						"chat_id", ctx.ChatID,
						"panic", r,
					)
					err = fmt.Errorf("internal error")
					ctx.Responder.SendMessage(ctx.Ctx, ctx.ChatID, "❌ An unexpected error occurred. Please try again later.")
				}
			}()

			return next(ctx)
		}
	}
}

// RateLimitMiddleware prevents command spam with a per-sender token bucket
func RateLimitMiddleware(perMinute int, log *logger.Logger) CommandMiddleware {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	limiterFor := func(sender string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		lim, exists := limiters[sender]
		if !exists {
			lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
			limiters[sender] = lim
		}
		return lim
	}

	return func(next CommandHandler) CommandHandler {
		return func(ctx *CommandContext) error {
			if !limiterFor(ctx.Sender).Allow() {
				log.Warnw("Rate limit exceeded",
					"sender", ctx.Sender,
					"command", ctx.Command,
				)
				return ctx.Responder.SendMessage(ctx.Ctx, ctx.ChatID, "⏱️ Slow down! Please wait a moment before trying again.")
			}

			return next(ctx)
		}
	}
}
