package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"

	"golang-task-automation-engine/internal/config"
)

type chatLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// TelegramRateLimiter guards bot sends with a global limiter plus one limiter
// per destination chat, so one noisy task cannot starve the others.
type TelegramRateLimiter struct {
	cfg           *config.TelegramConfig
	log           *logrus.Logger
	globalLimiter *rate.Limiter
	chatLimiters  map[int64]*chatLimiterEntry
	bot           *telebot.Bot
	mu            sync.Mutex
	stopCleanup   chan struct{}
	wg            sync.WaitGroup
}

func NewTelegramRateLimiter(cfg *config.TelegramConfig, log *logrus.Logger, bot *telebot.Bot) *TelegramRateLimiter {
	return &TelegramRateLimiter{
		cfg:           cfg,
		log:           log,
		bot:           bot,
		globalLimiter: rate.NewLimiter(rate.Limit(cfg.MaxGlobalRequestPerSecond), cfg.MaxGlobalRequestPerSecond),
		chatLimiters:  make(map[int64]*chatLimiterEntry),
		stopCleanup:   make(chan struct{}),
	}
}

// Send delivers text to a chat after passing the global and per-chat limits.
func (t *TelegramRateLimiter) Send(ctx context.Context, chatID int64, text string, opts ...interface{}) (*telebot.Message, error) {
	if err := t.globalLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := t.chatLimiter(chatID).Wait(ctx); err != nil {
		return nil, err
	}
	return t.bot.Send(&telebot.Chat{ID: chatID}, text, opts...)
}

func (t *TelegramRateLimiter) chatLimiter(chatID int64) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.chatLimiters[chatID]
	if !ok {
		perMinute := t.cfg.MaxChatRequestPerMinute
		if perMinute <= 0 {
			perMinute = 20
		}
		entry = &chatLimiterEntry{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		}
		t.chatLimiters[chatID] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter
}

// StartCleanupExpired periodically drops per-chat limiters that have been
// idle for over an hour.
func (t *TelegramRateLimiter) StartCleanupExpired(ctx context.Context) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.stopCleanup:
				return
			case <-ticker.C:
				t.cleanupExpired()
			}
		}
	}()
}

func (t *TelegramRateLimiter) StopCleanupExpired() {
	close(t.stopCleanup)
	t.wg.Wait()
}

func (t *TelegramRateLimiter) cleanupExpired() {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := time.Now().Add(-time.Hour)
	for chatID, entry := range t.chatLimiters {
		if entry.lastAccess.Before(cutoff) {
			delete(t.chatLimiters, chatID)
		}
	}
}
